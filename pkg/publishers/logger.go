package publishers

import "github.com/samvad-hq/samvad-vision-predictor/internal/logger"

// Logger is the structured logging surface publishers report delivery through.
type Logger = logger.Logger

func ensureLogger(log Logger) Logger {
	if log == nil {
		return logger.NopLogger{}
	}
	return log
}
