package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	log  *zap.Logger
	once sync.Once
)

// Init initializes the process logger. Release mode gets production JSON
// output, everything else the development console encoder.
func Init(ginMode string) {
	once.Do(func() {
		var err error
		if ginMode == "release" {
			log, err = zap.NewProduction()
		} else {
			log, err = zap.NewDevelopment()
		}
		if err != nil {
			log = zap.NewNop()
		}
	})
}

// L returns the process logger, initializing a development logger if Init
// was never called (tests).
func L() *zap.Logger {
	if log == nil {
		Init("")
	}
	return log
}

// Sync flushes buffered log entries.
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}
