// Package logging provides structured logging using zerolog.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance.
var Logger zerolog.Logger

type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

// FileName is the log file written under Config.LogDir.
const FileName = "extforge.log"

// DefaultMaxFileSize is the size at which Init rotates the log file.
const DefaultMaxFileSize = 10 << 20

// Config holds logger configuration.
type Config struct {
	Level Level
	// Output defaults to os.Stderr. Use io.Discard for file-only logging.
	Output io.Writer
	// Pretty enables human-readable console output on Output.
	Pretty     bool
	TimeFormat string
	// LogToFile also appends JSON lines to LogDir/extforge.log. A file
	// larger than MaxFileSize is moved to extforge.log.1 first.
	LogToFile   bool
	LogDir      string
	MaxFileSize int64
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		Level:      InfoLevel,
		Output:     os.Stderr,
		TimeFormat: time.RFC3339,
		LogDir:     os.TempDir(),
	}
}

var (
	mu      sync.Mutex
	logFile *os.File
)

// Init replaces the global logger. It may be called again; the previous
// log file is closed.
func Init(cfg Config) error {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339
	}
	zerolog.TimeFieldFormat = cfg.TimeFormat

	var sinks []io.Writer
	if cfg.Output != io.Discard {
		if cfg.Pretty {
			sinks = append(sinks, zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: time.Kitchen})
		} else {
			sinks = append(sinks, cfg.Output)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	if cfg.LogToFile {
		f, err := openLogFile(cfg.LogDir, cfg.MaxFileSize)
		if err != nil {
			return err
		}
		logFile = f
		sinks = append(sinks, f)
	}

	var out io.Writer = io.Discard
	switch len(sinks) {
	case 0:
	case 1:
		out = sinks[0]
	default:
		out = zerolog.MultiLevelWriter(sinks...)
	}

	Logger = zerolog.New(out).Level(cfg.Level).With().Timestamp().Logger()
	return nil
}

func openLogFile(dir string, maxSize int64) (*os.File, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if info, err := os.Stat(path); err == nil && info.Size() > maxSize {
		if err := os.Rename(path, path+".1"); err != nil {
			return nil, fmt.Errorf("rotate log file: %w", err)
		}
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

// ParseLevel parses a log level name, case-insensitively. Unknown names
// give InfoLevel.
func ParseLevel(level string) Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DebugLevel
	case "WARN", "WARNING":
		return WarnLevel
	case "ERROR":
		return ErrorLevel
	case "FATAL":
		return FatalLevel
	default:
		return InfoLevel
	}
}

// Component returns a child of the global logger tagged with name.
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

func Debug() *zerolog.Event { return Logger.Debug() }
func Info() *zerolog.Event  { return Logger.Info() }
func Warn() *zerolog.Event  { return Logger.Warn() }
func Error() *zerolog.Event { return Logger.Error() }

// Fatal logs at fatal level; Msg or Send exits the process.
func Fatal() *zerolog.Event { return Logger.Fatal() }

func init() {
	Init(DefaultConfig())
}
