package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Config captures logging configuration options.
type Config struct {
	Level string `yaml:"log_level" json:"log_level"`
	Dir   string `yaml:"log_dir" json:"log_dir"`
	File  string `yaml:"log_file" json:"log_file"`
}

var DefaultLogger *Logger

var (
	colorReset = "\x1b[0m"
	colorTime  = "\x1b[90m"
	colorDebug = "\x1b[36m"
	colorInfo  = "\x1b[32m"
	colorWarn  = "\x1b[33m"
	colorError = "\x1b[31m"
)

// tagColors maps module tags to console colors so pipeline stages stand out.
var tagColors = map[string]string{
	"[BOOT]":    "\x1b[96m",
	"[HTTP]":    "\x1b[95m",
	"[WS]":      "\x1b[92m",
	"[CAPTURE]": "\x1b[94m",
	"[OCR]":     "\x1b[35m",
	"[LLM]":     "\x1b[34m",
	"[STORE]":   "\x1b[36m",
	"[AUTH]":    "\x1b[91m",
}

// consoleHandler renders human-oriented colored output on stdout.
type consoleHandler struct {
	writer io.Writer
	level  slog.Level
	mu     sync.Mutex
}

func (h *consoleHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *consoleHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	timeStr := r.Time.Format("2006-01-02 15:04:05.000")

	var levelColor, levelStr string
	switch r.Level {
	case slog.LevelDebug:
		levelColor, levelStr = colorDebug, "DEBUG"
	case slog.LevelWarn:
		levelColor, levelStr = colorWarn, "WARN"
	case slog.LevelError:
		levelColor, levelStr = colorError, "ERROR"
	default:
		levelColor, levelStr = colorInfo, "INFO"
	}

	msg := r.Message
	var output string
	if tagColor, ok := tagColorFor(msg); ok {
		output = fmt.Sprintf("%s[%s]%s %s%s%s",
			colorTime, timeStr, colorReset,
			tagColor, msg, colorReset)
	} else {
		output = fmt.Sprintf("%s[%s]%s %s[%s]%s %s",
			colorTime, timeStr, colorReset,
			levelColor, levelStr, colorReset,
			msg)
	}

	if r.NumAttrs() > 0 {
		output += " {"
		r.Attrs(func(a slog.Attr) bool {
			output += fmt.Sprintf(" %s=%v", a.Key, a.Value)
			return true
		})
		output += " }"
	}
	output += "\n"

	_, err := h.writer.Write([]byte(output))
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }

func (h *consoleHandler) WithGroup(name string) slog.Handler { return h }

func tagColorFor(msg string) (string, bool) {
	for tag, color := range tagColors {
		if strings.HasPrefix(msg, tag) {
			return color, true
		}
	}
	return "", false
}

// Logger writes colored text to the console and JSON lines to a file.
type Logger struct {
	config     Config
	jsonLogger *slog.Logger
	textLogger *slog.Logger
	logFile    *os.File
	mu         sync.RWMutex
}

func parseLevel(configLevel string) slog.Level {
	switch strings.ToLower(configLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a logger that mirrors console output into a JSON log file.
func New(cfg Config) (*Logger, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	logPath := filepath.Join(cfg.Dir, cfg.File)
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	level := parseLevel(cfg.Level)

	logger := &Logger{
		config: cfg,
		jsonLogger: slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{
			Level: level,
		})),
		textLogger: slog.New(&consoleHandler{
			writer: os.Stdout,
			level:  level,
		}),
		logFile: file,
	}

	if DefaultLogger == nil {
		DefaultLogger = logger
	}
	return logger, nil
}

// Slog exposes the structured file logger for integrations that want raw slog.
func (l *Logger) Slog() *slog.Logger {
	return l.jsonLogger
}

func (l *Logger) log(level slog.Level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.textLogger.Log(context.Background(), level, msg)
	l.jsonLogger.Log(context.Background(), level, msg)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(slog.LevelDebug, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.log(slog.LevelInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(slog.LevelWarn, format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.log(slog.LevelError, format, args...)
}

// DebugTag logs with a module tag prefix, e.g. DebugTag("OCR", "...").
func (l *Logger) DebugTag(tag, format string, args ...interface{}) {
	l.Debug("[%s] %s", tag, fmt.Sprintf(format, args...))
}

func (l *Logger) InfoTag(tag, format string, args ...interface{}) {
	l.Info("[%s] %s", tag, fmt.Sprintf(format, args...))
}

func (l *Logger) WarnTag(tag, format string, args ...interface{}) {
	l.Warn("[%s] %s", tag, fmt.Sprintf(format, args...))
}

func (l *Logger) ErrorTag(tag, format string, args ...interface{}) {
	l.Error("[%s] %s", tag, fmt.Sprintf(format, args...))
}

// Close flushes and closes the underlying log file.
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.logFile != nil {
		_ = l.logFile.Sync()
		_ = l.logFile.Close()
		l.logFile = nil
	}
}

// NewTestLogger returns a logger suitable for unit tests: console only,
// writing into the test's temp directory.
func NewTestLogger(dir string) (*Logger, error) {
	return New(Config{
		Level: "debug",
		Dir:   dir,
		File:  "test.log",
	})
}
