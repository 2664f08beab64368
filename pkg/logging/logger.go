// Package logging wires zerolog for DroidView: a console writer, an optional
// rotating log file and a few helpers for module, user-action and timing logs.
package logging

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ========================================
// Structured logger
// ========================================

// Logger is the process-wide logger
var Logger zerolog.Logger

var (
	fileWriter   *RotatingFile
	fileWriterMu sync.Mutex
)

// Level selects the minimum level written
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a flag value to a Level. Unknown names map to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Config controls where logs go
type Config struct {
	Level      Level
	Console    bool
	File       bool
	FilePath   string
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
	Compress   bool

	// ConsoleOut defaults to stderr so the MCP stdio transport keeps stdout.
	ConsoleOut io.Writer
}

// DefaultConfig logs info and above to the console only
func DefaultConfig() Config {
	return Config{
		Level:      LevelInfo,
		Console:    true,
		MaxSizeMB:  10,
		MaxAgeDays: 7,
		MaxBackups: 5,
		Compress:   true,
	}
}

// FileConfig enables the rotating file under <dataDir>/logs
func FileConfig(dataDir string) Config {
	cfg := DefaultConfig()
	cfg.File = true
	cfg.FilePath = filepath.Join(dataDir, "logs", "droidview.log")
	return cfg
}

// ========================================
// RotatingFile
// ========================================

// RotatingFile is an io.Writer that rotates by size and prunes old files
type RotatingFile struct {
	mu     sync.Mutex
	config Config
	file   *os.File
	size   int64
	dir    string
	stopCh chan struct{}
}

// NewRotatingFile opens (or creates) the log file described by config
func NewRotatingFile(config Config) (*RotatingFile, error) {
	dir := filepath.Dir(config.FilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rf := &RotatingFile{
		config: config,
		dir:    dir,
		stopCh: make(chan struct{}),
	}
	if err := rf.open(); err != nil {
		return nil, err
	}

	go rf.cleanupLoop()
	return rf, nil
}

// Write implements io.Writer
func (rf *RotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.file == nil {
		return 0, os.ErrClosed
	}
	if rf.config.MaxSizeMB > 0 && rf.size+int64(len(p)) > int64(rf.config.MaxSizeMB)*1024*1024 {
		if err := rf.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := rf.file.Write(p)
	rf.size += int64(n)
	return n, err
}

func (rf *RotatingFile) open() error {
	f, err := os.OpenFile(rf.config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	rf.file = f
	rf.size = info.Size()
	return nil
}

func (rf *RotatingFile) rotate() error {
	if rf.file != nil {
		rf.file.Close()
	}

	stamp := time.Now().Format("2006-01-02_15-04-05.000")
	rotated := filepath.Join(rf.dir, fmt.Sprintf("droidview_%s.log", stamp))
	if err := os.Rename(rf.config.FilePath, rotated); err != nil {
		return rf.open()
	}
	if rf.config.Compress {
		go compressFile(rotated)
	}
	return rf.open()
}

func compressFile(path string) {
	src, err := os.Open(path)
	if err != nil {
		return
	}
	defer src.Close()

	dst, err := os.Create(path + ".gz")
	if err != nil {
		return
	}
	gz := gzip.NewWriter(dst)
	_, copyErr := io.Copy(gz, src)
	closeErr := gz.Close()
	dst.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(path + ".gz")
		return
	}
	os.Remove(path)
}

func (rf *RotatingFile) cleanupLoop() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	rf.cleanup()
	for {
		select {
		case <-rf.stopCh:
			return
		case <-ticker.C:
			rf.cleanup()
		}
	}
}

// cleanup removes rotated files beyond MaxBackups or older than MaxAgeDays
func (rf *RotatingFile) cleanup() {
	files := rotatedFiles(rf.dir)
	now := time.Now()
	for i, f := range files {
		if rf.config.MaxAgeDays > 0 && now.Sub(f.modTime) > time.Duration(rf.config.MaxAgeDays)*24*time.Hour {
			os.Remove(f.path)
			continue
		}
		if rf.config.MaxBackups > 0 && i >= rf.config.MaxBackups {
			os.Remove(f.path)
		}
	}
}

type logFile struct {
	path    string
	modTime time.Time
}

// rotatedFiles lists rotated logs newest first
func rotatedFiles(dir string) []logFile {
	matches, err := filepath.Glob(filepath.Join(dir, "droidview_*.log*"))
	if err != nil {
		return nil
	}
	var files []logFile
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		files = append(files, logFile{path: m, modTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.After(files[j].modTime)
	})
	return files
}

// Close flushes and closes the current file
func (rf *RotatingFile) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	select {
	case <-rf.stopCh:
	default:
		close(rf.stopCh)
	}
	if rf.file == nil {
		return nil
	}
	err := rf.file.Close()
	rf.file = nil
	return err
}

// Path returns the active log file path
func (rf *RotatingFile) Path() string {
	return rf.config.FilePath
}

// ========================================
// Setup
// ========================================

// Init replaces the global Logger according to config
func Init(config Config) error {
	var writers []io.Writer

	out := config.ConsoleOut
	if out == nil {
		out = os.Stderr
	}
	if config.Console {
		writers = append(writers, zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"})
	}

	fileWriterMu.Lock()
	defer fileWriterMu.Unlock()
	if fileWriter != nil {
		fileWriter.Close()
		fileWriter = nil
	}
	if config.File && config.FilePath != "" {
		rf, err := NewRotatingFile(config)
		if err != nil {
			return err
		}
		fileWriter = rf
		writers = append(writers, rf)
	}

	if len(writers) == 0 {
		writers = append(writers, zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"})
	}

	Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(config.Level.zerolog()).
		With().
		Timestamp().
		Logger()
	return nil
}

// SetOutput points the global Logger at w. Used by tests.
func SetOutput(w io.Writer, level Level) {
	Logger = zerolog.New(w).Level(level.zerolog()).With().Timestamp().Logger()
}

// Close releases the log file, if any
func Close() {
	fileWriterMu.Lock()
	defer fileWriterMu.Unlock()
	if fileWriter != nil {
		fileWriter.Close()
		fileWriter = nil
	}
}

// FilePath returns the active log file, or "" when file logging is off
func FilePath() string {
	fileWriterMu.Lock()
	defer fileWriterMu.Unlock()
	if fileWriter == nil {
		return ""
	}
	return fileWriter.Path()
}

// ========================================
// Module loggers
// ========================================

func LogDebug(module string) *zerolog.Event {
	return Logger.Debug().Str("module", module)
}

func LogInfo(module string) *zerolog.Event {
	return Logger.Info().Str("module", module)
}

func LogWarn(module string) *zerolog.Event {
	return Logger.Warn().Str("module", module)
}

func LogError(module string) *zerolog.Event {
	return Logger.Error().Str("module", module)
}

// ========================================
// User actions
// ========================================

// UserAction names something the user did in the UI or over MCP
type UserAction string

const (
	ActionDeviceSelect   UserAction = "device_select"
	ActionAdbRestart     UserAction = "adb_restart"
	ActionScrcpyStart    UserAction = "scrcpy_start"
	ActionScrcpyStop     UserAction = "scrcpy_stop"
	ActionScreenshot     UserAction = "screenshot"
	ActionScreenRecord   UserAction = "screen_record"
	ActionAppInstall     UserAction = "app_install"
	ActionAppUninstall   UserAction = "app_uninstall"
	ActionAppDisable     UserAction = "app_disable"
	ActionShellOpen      UserAction = "shell_open"
	ActionReboot         UserAction = "reboot"
	ActionSwipe          UserAction = "swipe"
	ActionTcpip          UserAction = "tcpip"
	ActionConnect        UserAction = "connect"
	ActionPair           UserAction = "pair"
	ActionDisconnect     UserAction = "disconnect"
	ActionSettingsChange UserAction = "settings_change"
	ActionThemeToggle    UserAction = "theme_toggle"
)

// LogUserAction records a user action with arbitrary details
func LogUserAction(action UserAction, serial string, details map[string]interface{}) {
	event := Logger.Info().
		Str("category", "user_interaction").
		Str("action", string(action)).
		Str("device_id", serial)
	addFields(event, details).Msg("User action")
}

func addFields(event *zerolog.Event, fields map[string]interface{}) *zerolog.Event {
	for k, v := range fields {
		switch val := v.(type) {
		case string:
			event.Str(k, val)
		case int:
			event.Int(k, val)
		case int64:
			event.Int64(k, val)
		case float64:
			event.Float64(k, val)
		case bool:
			event.Bool(k, val)
		case error:
			event.AnErr(k, val)
		default:
			event.Interface(k, val)
		}
	}
	return event
}

// ========================================
// Operation timing
// ========================================

// OperationTimer measures one subprocess-backed operation
type OperationTimer struct {
	module    string
	operation string
	start     time.Time
	details   map[string]interface{}
}

// StartOperation starts a timer
func StartOperation(module, operation string) *OperationTimer {
	return &OperationTimer{
		module:    module,
		operation: operation,
		start:     time.Now(),
		details:   make(map[string]interface{}),
	}
}

// AddDetail attaches a field to the final log line
func (t *OperationTimer) AddDetail(key string, value interface{}) *OperationTimer {
	t.details[key] = value
	return t
}

// End logs a successful completion
func (t *OperationTimer) End() {
	d := time.Since(t.start)
	event := Logger.Info().
		Str("module", t.module).
		Str("category", "performance").
		Str("operation", t.operation).
		Int64("duration_ms", d.Milliseconds())
	addFields(event, t.details).Msg("Operation completed")
}

// EndWithError logs a failed completion
func (t *OperationTimer) EndWithError(err error) {
	d := time.Since(t.start)
	event := Logger.Error().
		Str("module", t.module).
		Str("category", "performance").
		Str("operation", t.operation).
		Int64("duration_ms", d.Milliseconds()).
		Err(err)
	addFields(event, t.details).Msg("Operation failed")
}

// Finish calls End or EndWithError depending on err
func (t *OperationTimer) Finish(err error) {
	if err != nil {
		t.EndWithError(err)
		return
	}
	t.End()
}

func init() {
	_ = Init(DefaultConfig())
}
