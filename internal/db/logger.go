package db

import "go.uber.org/zap"

var logger = zap.NewNop()

// InitializeLogger sets the logger for the db package.
func InitializeLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}
