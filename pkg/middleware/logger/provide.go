package logger

import "go.uber.org/zap"

// Loggers are the two logs a host keeps: the system log and the access log.
type Loggers struct {
	System *zap.Logger
	Access *zap.Logger
}

// ProvideLoggers builds both logs from one base option set.
func ProvideLoggers(base Options) (Loggers, error) {
	sys := base
	sys.File = SystemLog
	s, err := NewLog(sys)
	if err != nil {
		return Loggers{}, err
	}

	acc := base
	acc.File = AccessLog
	acc.Level = "info" // a stricter system level must not silence access entries
	a, err := NewLog(acc)
	if err != nil {
		return Loggers{}, err
	}
	return Loggers{System: s, Access: a}, nil
}

func ProvideLogger(l Loggers) *zap.Logger           { return l.System }
func ProvideLoggerMiddleware(l Loggers) *Middleware { return NewMiddleware(l.Access) }
