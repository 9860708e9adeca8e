// Package logging builds the daemon's named loggers: one logrus entry
// per subsystem, fanned out to console and a rotated file with
// independent minimum levels.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects sink levels and the log file location.
type Options struct {
	File         string
	ConsoleLevel int
	FileLevel    int
	CoreLevel    int
	ModemLevel   int
	IPCLevel     int
}

// Set holds the daemon's named loggers.
type Set struct {
	Core  *logrus.Entry
	Modem *logrus.Entry
	IPC   *logrus.Entry

	file *lumberjack.Logger
}

// New builds the logger set.
func New(opts Options) *Set {
	file := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    100, // megabytes
		MaxBackups: 1,
	}
	consoleMin := toLevel(opts.ConsoleLevel)
	fileMin := toLevel(opts.FileLevel)
	return &Set{
		Core:  newLogger("core", toLevel(opts.CoreLevel), consoleMin, fileMin, file),
		Modem: newLogger("modem", toLevel(opts.ModemLevel), consoleMin, fileMin, file),
		IPC:   newLogger("ipc", toLevel(opts.IPCLevel), consoleMin, fileMin, file),
		file:  file,
	}
}

// Close flushes and closes the log file.
func (s *Set) Close() {
	if s.file != nil {
		_ = s.file.Close()
	}
}

// writerHook writes entries to one sink for the allowed levels.
type writerHook struct {
	Writer    io.Writer
	LogLevels []logrus.Level
}

func (h *writerHook) Fire(e *logrus.Entry) error {
	line, err := e.String()
	if err != nil {
		return err
	}
	_, err = h.Writer.Write([]byte(line))
	return err
}

func (h *writerHook) Levels() []logrus.Level {
	return h.LogLevels
}

func newLogger(name string, level, consoleMin, fileMin logrus.Level, file io.Writer) *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetOutput(io.Discard)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	logger.AddHook(&writerHook{Writer: os.Stdout, LogLevels: levelsUpTo(consoleMin)})
	logger.AddHook(&writerHook{Writer: file, LogLevels: levelsUpTo(fileMin)})
	return logger.WithField("name", name)
}

func levelsUpTo(min logrus.Level) []logrus.Level {
	var levels []logrus.Level
	for _, l := range logrus.AllLevels {
		if l <= min {
			levels = append(levels, l)
		}
	}
	return levels
}

// toLevel maps the numeric config levels onto logrus levels; higher
// numbers log less.
func toLevel(v int) logrus.Level {
	switch {
	case v <= 0:
		return logrus.TraceLevel
	case v == 1:
		return logrus.DebugLevel
	case v == 2:
		return logrus.InfoLevel
	case v == 3:
		return logrus.WarnLevel
	case v == 4:
		return logrus.ErrorLevel
	case v == 5:
		return logrus.FatalLevel
	default:
		return logrus.PanicLevel
	}
}

// Discard returns a logger set that drops everything; used in tests.
func Discard() *Set {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	entry := logger.WithField("name", "test")
	return &Set{Core: entry, Modem: entry, IPC: entry}
}
