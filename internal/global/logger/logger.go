package logger

import (
	"os"

	"gitlab.com/gridnode.net/internal/adapter/logging"
	"gitlab.com/gridnode.net/internal/core/ports/primary"
)

var Logger primary.Logger = logging.NewZapLogger(os.Getenv("DEBUG_MODE") == "true")

func Info(msg string, args ...interface{}) {
	Logger.Info(msg, args...)
}

func Error(msg string, args ...interface{}) {
	Logger.Error(msg, args...)
}

func Debug(msg string, args ...interface{}) {
	Logger.Debug(msg, args...)
}

func Warn(msg string, args ...interface{}) {
	Logger.Warn(msg, args...)
}
