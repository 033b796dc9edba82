package core

import "fmt"

// Meta describes the instrument a chart is drawn for
type Meta struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
	Source    string `json:"source"`
}

// Title returns the price panel heading, "{symbol} · {timeframe}, {source}"
func (m Meta) Title() string {
	title := m.Symbol
	if m.Timeframe != "" {
		title = fmt.Sprintf("%s · %s", title, m.Timeframe)
	}
	if m.Source != "" {
		title = fmt.Sprintf("%s, %s", title, m.Source)
	}
	return title
}

// TelegramSettings holds configuration for Telegram delivery
type TelegramSettings struct {
	Enabled bool    `mapstructure:"enabled"` // Whether rendered charts are sent to Telegram
	Token   string  `mapstructure:"token"`   // Telegram bot token
	Users   []int64 `mapstructure:"users"`   // Chat ids receiving the charts
}

// MailSettings holds configuration for SMTP delivery
type MailSettings struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
	Password string `mapstructure:"password"`
}
