package logger

import "log"

// An OptFn is a functional option configuring a ServiceLogger when constructing a new one.
type OptFn func(*ServiceLogger)

// WithEnv sets the environment the ServiceLogger is operating in.
func WithEnv(env string) OptFn {
	return func(l *ServiceLogger) {
		l.env = env
	}
}

// WithLevel sets the log level the ServiceLogger uses.
func WithLevel(level LogLevel) OptFn {
	return func(l *ServiceLogger) {
		l.ll = level
	}
}

// WithLogger sets the log.Logger the ServiceLogger uses.
func WithLogger(log *log.Logger) OptFn {
	return func(l *ServiceLogger) {
		l.l = log
	}
}

// WithSkip sets the number of frames in the call stack
// to skip in order to log the desired file and line number
// of the calling code.
func WithSkip(skip int) OptFn {
	return func(l *ServiceLogger) {
		l.skip = skip
	}
}
