package log

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"runtime/debug"
	"sync"
	"time"
)

type LogLevel string

const (
	FatalLevel    = "fatal"
	ErrorLevel    = "error"
	WarningLevel  = "warn"
	DebugLevel    = "debug"
	InfoLevel     = "info"
	TraceLevel    = "trace"
	DisabledLevel = "disabled"
)

var levelmap = map[LogLevel]int{
	TraceLevel:    5,
	DebugLevel:    4,
	InfoLevel:     3,
	WarningLevel:  2,
	ErrorLevel:    1,
	FatalLevel:    0,
	DisabledLevel: -1,
}

type logWrapper struct {
	mu    sync.Mutex
	log   *log.Logger
	Level LogLevel
}

func (l *logWrapper) enabled(level LogLevel) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return ShouldLog(level, l.Level)
}

func (l *logWrapper) Printf(level LogLevel, component, format string, args ...any) {
	if !l.enabled(level) {
		return
	}
	l.Println(level, component, fmt.Sprintf(format, args...))
}

func (l *logWrapper) Println(level LogLevel, component string, args ...any) {
	if !l.enabled(level) {
		return
	}
	ts := time.Now().Local()
	timeStr := fmt.Sprintf("%s.%03d", ts.Format("2006-01-02 15:04:05"), ts.Nanosecond()/1000000)
	levelStr := fmt.Sprintf("- %5s -", level)
	allArgs := []any{timeStr, levelStr}
	if component != "" {
		allArgs = append(allArgs, "["+component+"]")
	}
	allArgs = append(allArgs, args...)
	l.log.Println(allArgs...)
}

func (l *logWrapper) setLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Level = level
}

var (
	stdoutLog = &logWrapper{log: log.New(os.Stdout, "", 0), Level: InfoLevel}
	stderrLog = &logWrapper{log: log.New(os.Stderr, "", 0), Level: InfoLevel}
)

func SetLevel(loglevel LogLevel) error {
	if !ValidLogLevel(loglevel) {
		return fmt.Errorf("No such log level %s", loglevel)
	}

	stderrLog.setLevel(loglevel)
	stdoutLog.setLevel(loglevel)
	return nil
}

func GetLevel() LogLevel {
	stdoutLog.mu.Lock()
	defer stdoutLog.mu.Unlock()
	return stdoutLog.Level
}

// SetVerbosity maps a repeated -v flag count to a log level.
func SetVerbosity(verbosity int) {
	switch {
	case verbosity >= 2:
		SetLevel(TraceLevel)
	case verbosity >= 1:
		SetLevel(DebugLevel)
	}
}

// SetOutput redirects both log streams, mostly useful in tests.
func SetOutput(w io.Writer) {
	stdoutLog.log.SetOutput(w)
	stderrLog.log.SetOutput(w)
}

func ValidLogLevel(level LogLevel) bool {
	_, ok := levelmap[level]
	return ok
}

func ShouldLog(logLevel, enabled LogLevel) bool {
	if !ValidLogLevel(logLevel) || !ValidLogLevel(enabled) {
		return false
	}
	return levelmap[logLevel] <= levelmap[enabled]
}

// A Logger tags every line with the name of the component that wrote it.
type Logger struct {
	component string
}

func Component(name string) *Logger {
	return &Logger{component: name}
}

func (l *Logger) Trace(args ...any) { stdoutLog.Println(TraceLevel, l.component, args...) }
func (l *Logger) Debug(args ...any) { stdoutLog.Println(DebugLevel, l.component, args...) }
func (l *Logger) Info(args ...any)  { stdoutLog.Println(InfoLevel, l.component, args...) }
func (l *Logger) Warn(args ...any)  { stderrLog.Println(WarningLevel, l.component, args...) }
func (l *Logger) Error(args ...any) { stderrLog.Println(ErrorLevel, l.component, args...) }

func (l *Logger) Tracef(format string, args ...any) {
	stdoutLog.Printf(TraceLevel, l.component, format, args...)
}

func (l *Logger) Debugf(format string, args ...any) {
	stdoutLog.Printf(DebugLevel, l.component, format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	stdoutLog.Printf(InfoLevel, l.component, format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	stderrLog.Printf(WarningLevel, l.component, format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	stderrLog.Printf(ErrorLevel, l.component, format, args...)
}

func Trace(args ...interface{}) {
	stdoutLog.Println(TraceLevel, "", args...)
}

func Debug(args ...interface{}) {
	stdoutLog.Println(DebugLevel, "", args...)
}

func Info(args ...interface{}) {
	stdoutLog.Println(InfoLevel, "", args...)
}

func Warn(args ...interface{}) {
	stderrLog.Println(WarningLevel, "", args...)
}

func Error(args ...interface{}) {
	stderrLog.Println(ErrorLevel, "", args...)
}

func Fatal(args ...interface{}) {
	stderrLog.Println(FatalLevel, "", args...)
	debug.PrintStack()
	os.Exit(1)
}

func Tracef(format string, args ...interface{}) {
	stdoutLog.Printf(TraceLevel, "", format, args...)
}

func Debugf(format string, args ...interface{}) {
	stdoutLog.Printf(DebugLevel, "", format, args...)
}

func Infof(format string, args ...interface{}) {
	stdoutLog.Printf(InfoLevel, "", format, args...)
}

func Warnf(format string, args ...interface{}) {
	stderrLog.Printf(WarningLevel, "", format, args...)
}

func Errorf(format string, args ...interface{}) {
	stderrLog.Printf(ErrorLevel, "", format, args...)
}

func Fatalf(format string, args ...interface{}) {
	stderrLog.Printf(FatalLevel, "", format, args...)
	debug.PrintStack()
	os.Exit(1)
}

type writeFunc func([]byte) (int, error)

func (fn writeFunc) Write(data []byte) (int, error) {
	return fn(data)
}

// NewLogWriter returns a writer that logs every write at the given level.
// Used to route the stdlib logger of third-party servers into this log.
func NewLogWriter(level LogLevel) io.Writer {
	return writeFunc(func(data []byte) (int, error) {
		if !ValidLogLevel(level) || level == DisabledLevel {
			return len(data), nil
		}
		w := stdoutLog
		if levelmap[level] <= levelmap[WarningLevel] {
			w = stderrLog
		}
		w.Printf(level, "", "%s", data)
		return len(data), nil
	})
}

func DebugError(err error) {
	indent := 1

	Debug(err.Error())

	for {
		if err = errors.Unwrap(err); err == nil {
			break
		}

		Debugf("| %d: %s", indent, err.Error())
		indent += 1
	}
}
