package chartshot

import (
	"fmt"
	"os"
	"strconv"

	"github.com/raykavin/chartshot/pkg/logger"
	"github.com/raykavin/chartshot/pkg/logger/logrus"
	"github.com/raykavin/chartshot/pkg/logger/zerolog"
)

const (
	// Default configuration values
	defaultLogLevel      = "info"
	defaultLogTimeFormat = "2006-01-02 15:04:05"
	defaultLogColored    = "true"
	defaultLogJSON       = "false"
	defaultLogBackend    = "zerolog"
)

// Environment variable names
const (
	envLogLevel      = "CHARTSHOT_LOG_LEVEL"
	envLogTimeFormat = "CHARTSHOT_LOG_TIME_FORMAT"
	envLogColor      = "CHARTSHOT_LOG_COLOR"
	envLogJSON       = "CHARTSHOT_LOG_JSON"
	envLogBackend    = "CHARTSHOT_LOG_BACKEND"
	envLogFile       = "CHARTSHOT_LOG_FILE"
)

func init() {
	log, err := initLogger()
	if err != nil {
		panic(err)
	}

	DefaultLog = log
}

// initLogger creates the default logger from environment variables
func initLogger() (logger.Logger, error) {
	logLevel := getEnvWithDefault(envLogLevel, defaultLogLevel)
	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}
	logLevel = level.String()

	logJSON, err := parseBoolEnv(envLogJSON, defaultLogJSON)
	if err != nil {
		return nil, err
	}

	switch backend := getEnvWithDefault(envLogBackend, defaultLogBackend); backend {
	case "logrus":
		log, err := logrus.New(logLevel, logJSON)
		if err != nil {
			return nil, err
		}
		return log, nil
	case "zerolog":
	default:
		return nil, fmt.Errorf("unknown log backend %q", backend)
	}

	logColored, err := parseBoolEnv(envLogColor, defaultLogColored)
	if err != nil {
		return nil, err
	}

	log, err := zerolog.New(zerolog.Options{
		Level:      logLevel,
		TimeLayout: getEnvWithDefault(envLogTimeFormat, defaultLogTimeFormat),
		Colored:    logColored,
		JSON:       logJSON,
		File:       os.Getenv(envLogFile),
		MaxSizeMB:  50,
		MaxBackups: 3,
		MaxAgeDays: 28,
	})
	if err != nil {
		return nil, err
	}

	return zerolog.NewAdapter(log), nil
}

// getEnvWithDefault returns the value of the environment variable or the default if not set
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// parseBoolEnv gets a boolean environment variable with a default value
func parseBoolEnv(key, defaultValue string) (bool, error) {
	value := getEnvWithDefault(key, defaultValue)
	return strconv.ParseBool(value)
}
