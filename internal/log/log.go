// Package log provides centralized logging functionality using zap logger.
package log

import (
	"fmt"

	"go.uber.org/zap"
)

var log *zap.SugaredLogger
var baseLogger *zap.Logger

// Init initializes the package-level logger
func Init(debug bool) error {
	var zapLogger *zap.Logger
	var err error

	if debug {
		zapLogger, err = zap.NewDevelopment(zap.AddCallerSkip(1))
	} else {
		zapLogger, err = zap.NewProduction(zap.AddCallerSkip(1))
	}
	if err != nil {
		return fmt.Errorf("can't initialize zap logger: %v", err)
	}

	baseLogger = zapLogger
	log = zapLogger.Sugar()
	return nil
}

// GetSugaredLogger returns the sugared logger instance
func GetSugaredLogger() *zap.SugaredLogger {
	return sugared()
}

// sugared returns the logger, building a production fallback if Init
// was never called (library consumers, tests).
func sugared() *zap.SugaredLogger {
	if log == nil {
		baseLogger, _ = zap.NewProduction(zap.AddCallerSkip(1))
		log = baseLogger.Sugar()
	}
	return log
}

// Sync flushes any buffered log entries
func Sync() {
	if log != nil {
		log.Sync()
	}
}

// Package-level convenience functions
func Debug(args ...interface{}) {
	sugared().Debug(args...)
}

func Debugf(template string, args ...interface{}) {
	sugared().Debugf(template, args...)
}

func Info(args ...interface{}) {
	sugared().Info(args...)
}

func Infof(template string, args ...interface{}) {
	sugared().Infof(template, args...)
}

func Warn(args ...interface{}) {
	sugared().Warn(args...)
}

func Warnf(template string, args ...interface{}) {
	sugared().Warnf(template, args...)
}

func Error(args ...interface{}) {
	sugared().Error(args...)
}

func Errorf(template string, args ...interface{}) {
	sugared().Errorf(template, args...)
}

func Fatalf(template string, args ...interface{}) {
	sugared().Fatalf(template, args...)
}
