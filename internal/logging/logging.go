// Package logging builds the dual console/file zap logger used by the CLI.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// TargetSession is the log file target used for session-scoped tasks.
const TargetSession = "session"

// Log files rotate at MaxFileSizeMB, keeping MaxBackups old files.
const (
	MaxFileSizeMB = 10
	MaxBackups    = 100
)

// Options controls where log output goes.
type Options struct {
	Task       string // process, report, bundle
	TargetType string // motor or session
	Target     string // motor file path or session directory

	Debug  bool // console at DEBUG instead of INFO
	Silent bool // no console output
	NoLog  bool // no log file

	// Dir is where the log file is created; empty means the working directory.
	Dir string
	// Console receives console output; nil means os.Stderr.
	Console io.Writer
	// Now stamps the log file name; zero means time.Now().
	Now time.Time
}

// Logger is a zap logger plus the resources behind it.
type Logger struct {
	*zap.Logger
	// File is the log file path, or "" when file logging is off.
	File string

	closer io.Closer
}

// Close flushes the logger and closes the log file.
func (l *Logger) Close() error {
	_ = l.Sync()
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// FileName returns the log file name for a task:
// YYYYMMDD-HHMM-<task>-<target>.log, where target is the motor file name
// without extension, or "session".
func FileName(now time.Time, task, targetType, target string) string {
	name := TargetSession
	if targetType != TargetSession {
		base := filepath.Base(target)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return fmt.Sprintf("%s-%s-%s.log", now.Format("20060102-1504"), task, name)
}

// New builds a logger from opts. The console core prints bare messages; the
// file core records everything at DEBUG with time, caller and level.
func New(opts Options) (*Logger, error) {
	var cores []zapcore.Core
	l := &Logger{}

	if !opts.NoLog {
		now := opts.Now
		if now.IsZero() {
			now = time.Now()
		}
		if opts.Dir != "" {
			if info, err := os.Stat(opts.Dir); err != nil {
				return nil, fmt.Errorf("failed to open log directory: %w", err)
			} else if !info.IsDir() {
				return nil, fmt.Errorf("log directory %s is not a directory", opts.Dir)
			}
		}
		f := newFileWriter(filepath.Join(opts.Dir, FileName(now, opts.Task, opts.TargetType, opts.Target)))
		l.File = f.Filename
		l.closer = f
		cores = append(cores, zapcore.NewCore(fileEncoder(), zapcore.AddSync(f), zapcore.DebugLevel))
	}

	if !opts.Silent {
		w := opts.Console
		if w == nil {
			w = os.Stderr
		}
		level := zapcore.InfoLevel
		if opts.Debug {
			level = zapcore.DebugLevel
		}
		cores = append(cores, zapcore.NewCore(consoleEncoder(), zapcore.AddSync(w), level))
	}

	if len(cores) == 0 {
		l.Logger = zap.NewNop()
		return l, nil
	}
	l.Logger = zap.New(zapcore.NewTee(cores...), zap.AddCaller())

	if opts.NoLog {
		l.Info("Logging to file is silenced")
	} else {
		l.Info("Logging to " + l.File + ".")
	}
	if opts.Silent {
		l.Info("Console messaging is silenced")
	} else {
		l.Info("Logging to console.")
	}
	return l, nil
}

// newFileWriter returns the rotating writer behind the file core. The file is
// opened on first write, appending to an existing log.
func newFileWriter(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    MaxFileSizeMB,
		MaxBackups: MaxBackups,
		LocalTime:  true,
	}
}

func fileEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.ConsoleSeparator = " "
	return zapcore.NewConsoleEncoder(cfg)
}

func consoleEncoder() zapcore.Encoder {
	return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
	})
}
