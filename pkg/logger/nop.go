package logger

type nop struct{ level Level }

// Nop returns a Logger that discards everything
func Nop() Logger {
	return &nop{level: Disabled}
}

func (n *nop) WithField(string, any) Logger { return n }
func (n *nop) WithFields(map[string]any) Logger { return n }
func (n *nop) WithError(error) Logger { return n }
func (n *nop) Print(...any) {}
func (n *nop) Trace(...any) {}
func (n *nop) Debug(...any) {}
func (n *nop) Info(...any) {}
func (n *nop) Warn(...any) {}
func (n *nop) Error(...any) {}
func (n *nop) Fatal(...any) {}
func (n *nop) Panic(...any) {}
func (n *nop) Printf(string, ...any) {}
func (n *nop) Tracef(string, ...any) {}
func (n *nop) Debugf(string, ...any) {}
func (n *nop) Infof(string, ...any) {}
func (n *nop) Warnf(string, ...any) {}
func (n *nop) Errorf(string, ...any) {}
func (n *nop) Fatalf(string, ...any) {}
func (n *nop) Panicf(string, ...any) {}
func (n *nop) SetLevel(level Level) { n.level = level }
func (n *nop) GetLevel() Level { return n.level }
