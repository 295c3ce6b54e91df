package util

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the process-wide logger. It is a no-op until InitLogger runs.
var Logger = zap.NewNop()

// InitLogger builds a JSON production logger for "release" and a colored
// development logger for anything else.
func InitLogger(mode string) error {
	var config zap.Config

	if mode == "release" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	logger, err := config.Build()
	if err != nil {
		return err
	}

	Logger = logger
	return nil
}

func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

// Trace 记录一段操作的耗时，用法: defer util.Trace(logger, "benchmark")()
// logger 为 nil 时使用全局 Logger
func Trace(logger *zap.Logger, msg string) func() {
	if logger == nil {
		logger = Logger
	}
	start := time.Now()
	logger.Debug("enter", zap.String("op", msg))
	return func() {
		logger.Info("done", zap.String("op", msg), zap.Duration("cost", time.Since(start)))
	}
}
