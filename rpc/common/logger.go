package common

import (
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// --------------------------------------------------------------------------
// Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// levelLogger writes "LEVEL | name | message" lines. The level may change while
// other goroutines log.
type levelLogger struct {
	name   string
	level  atomic.Int32
	logger *log.Logger
}

// NewLogger creates a logger named name that writes to w at level INFO
func NewLogger(name string, w io.Writer) logger.ILogger {
	l := &levelLogger{
		name:   name,
		logger: log.New(w, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	l.level.Store(int32(logger.INFO))
	return l
}

func (l *levelLogger) SetLevel(level logger.LogLevel) {
	l.level.Store(int32(level))
}

func (l *levelLogger) enabled(level logger.LogLevel) bool {
	return logger.LogLevel(l.level.Load()) >= level
}

func (l *levelLogger) Debugf(format string, args ...interface{}) {
	if l.enabled(logger.DEBUG) {
		l.log("DEBUG", format, args...)
	}
}

func (l *levelLogger) Infof(format string, args ...interface{}) {
	if l.enabled(logger.INFO) {
		l.log("INFO", format, args...)
	}
}

func (l *levelLogger) Warningf(format string, args ...interface{}) {
	if l.enabled(logger.WARNING) {
		l.log("WARN", format, args...)
	}
}

func (l *levelLogger) Errorf(format string, args ...interface{}) {
	if l.enabled(logger.ERROR) {
		l.log("ERROR", format, args...)
	}
}

func (l *levelLogger) Panicf(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.log("PANIC", "%s", message)
	panic(message)
}

func (l *levelLogger) log(levelStr string, format string, args ...interface{}) {
	l.logger.Printf("%-5s | %-9s | %s", levelStr, l.name, fmt.Sprintf(format, args...))
}

// --------------------------------------------------------------------------
// Levels
// --------------------------------------------------------------------------

// ParseLogLevel converts a level name to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info", "":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return logger.INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// --------------------------------------------------------------------------
// Initialization
// --------------------------------------------------------------------------

// LoggerNames lists the loggers of the dRPC packages
var LoggerNames = []string{"connect", "ack", "policy", "host", "transport", "server", "client"}

// dragonboat panics if the factory is set twice
var installFactory sync.Once

// InitLoggers routes all dRPC loggers to stdout and sets their level. It may be called
// more than once, only the level changes then. Loggers that already wrote a line before
// the first call keep the dragonboat default output.
func InitLoggers(level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	installFactory.Do(func() {
		logger.SetLoggerFactory(func(name string) logger.ILogger {
			return NewLogger(name, os.Stdout)
		})
	})

	for _, name := range LoggerNames {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}
