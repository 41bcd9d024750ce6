// Package permlog provides leveled application logging and a mutation
// audit log for the permission registry, both built on the standard log
// package the way the teacher's pkg/logging builds its AppLogger and
// accessLogger: a bare *log.Logger plus a formatting step, never a
// third-party structured logger.
package permlog

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

// Level is the severity of an application log message.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

var levelOrder = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// AppLogger is a leveled, key/value logger.
type AppLogger struct {
	level  Level
	logger *log.Logger
}

// NewAppLogger creates an AppLogger writing to w at the given level.
func NewAppLogger(w io.Writer, level Level) *AppLogger {
	if level == "" {
		level = LevelInfo
	}
	return &AppLogger{level: level, logger: log.New(w, "", 0)}
}

func (l *AppLogger) shouldLog(level Level) bool {
	return levelOrder[level] >= levelOrder[l.level]
}

func formatValue(v interface{}) string {
	s := fmt.Sprintf("%v", v)
	if strings.ContainsAny(s, " =\"") {
		s = strings.ReplaceAll(s, "\"", "\\\"")
		return fmt.Sprintf("%q", s)
	}
	return s
}

func (l *AppLogger) log(level Level, message string, keyvals ...interface{}) {
	if l == nil || !l.shouldLog(level) {
		return
	}
	var parts []string
	for i := 0; i+1 < len(keyvals); i += 2 {
		parts = append(parts, fmt.Sprintf("%v=%s", keyvals[i], formatValue(keyvals[i+1])))
	}
	timestamp := time.Now().UTC().Format("2006-01-02 15:04:05 -0700")
	l.logger.Printf("%s %s: %s %s", timestamp, level, message, strings.Join(parts, " "))
}

func (l *AppLogger) Debug(message string, keyvals ...interface{}) { l.log(LevelDebug, message, keyvals...) }
func (l *AppLogger) Info(message string, keyvals ...interface{})  { l.log(LevelInfo, message, keyvals...) }
func (l *AppLogger) Warn(message string, keyvals ...interface{})  { l.log(LevelWarn, message, keyvals...) }
func (l *AppLogger) Error(message string, keyvals ...interface{}) { l.log(LevelError, message, keyvals...) }

// MutationEntry describes one mutating call against the registry, rendered
// the way the teacher's logging.Entry renders one FTP operation.
type MutationEntry struct {
	Op       string
	Actor    string
	Path     string
	Argument string
	Error    error
	Time     time.Time
}

// MutationLogger is the registry's audit trail of mutating calls.
type MutationLogger struct {
	logger *log.Logger
}

// NewMutationLogger creates a MutationLogger writing to w.
func NewMutationLogger(w io.Writer) *MutationLogger {
	return &MutationLogger{logger: log.New(w, "", 0)}
}

func (l *MutationLogger) Log(e MutationEntry) {
	if l == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s]", e.Time.UTC().Format("2006-01-02 15:04:05"), e.Op)
	if e.Actor != "" {
		fmt.Fprintf(&b, " [actor=%s]", formatValue(e.Actor))
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " [path=%s]", formatValue(e.Path))
	}
	if e.Argument != "" {
		fmt.Fprintf(&b, " [argument=%s]", formatValue(e.Argument))
	}
	if e.Error != nil {
		fmt.Fprintf(&b, " [FAILURE: %s]", e.Error)
	} else {
		b.WriteString(" [OK]")
	}
	l.logger.Println(b.String())
}

// Package-level singletons, initialized once by the CLI entrypoint, mirroring
// the teacher's logging.App/logging.Access globals.
var (
	App    *AppLogger
	Access *MutationLogger
)

// Config configures the package-level loggers.
type Config struct {
	AppLogPath    string
	AccessLogPath string
	Level         Level
}

// Initialize sets up App and Access from cfg. An empty path logs to stdout
// (App) or discards entirely (Access), matching the teacher's defaults.
func Initialize(cfg Config) error {
	appWriter, err := openOrDefault(cfg.AppLogPath, os.Stdout)
	if err != nil {
		return fmt.Errorf("opening app log: %w", err)
	}
	accessWriter, err := openOrDefault(cfg.AccessLogPath, io.Discard)
	if err != nil {
		return fmt.Errorf("opening access log: %w", err)
	}
	App = NewAppLogger(appWriter, cfg.Level)
	Access = NewMutationLogger(accessWriter)
	return nil
}

func openOrDefault(path string, fallback io.Writer) (io.Writer, error) {
	if path == "" {
		return fallback, nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return f, nil
}
