// pkg/logger/logger.go
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a new structured logger
func NewLogger(serviceName string) *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return build(config, serviceName)
}

// NewDevelopmentLogger creates a logger for development
func NewDevelopmentLogger(serviceName string) *zap.Logger {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return build(config, serviceName)
}

// New picks the development logger for local environments and the JSON
// production logger everywhere else.
func New(serviceName, environment string) *zap.Logger {
	switch environment {
	case "development", "local":
		return NewDevelopmentLogger(serviceName).With(zap.String("environment", environment))
	default:
		return NewLogger(serviceName).With(zap.String("environment", environment))
	}
}

func build(config zap.Config, serviceName string) *zap.Logger {
	config.InitialFields = map[string]interface{}{
		"service": serviceName,
	}

	logger, err := config.Build()
	if err != nil {
		panic(err)
	}

	return logger
}
