package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

const defaultBufferSize = 1000

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

var (
	mutex         sync.RWMutex
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevels  = make(map[string]*slog.LevelVar)
	globalConfig  Config
	isInitialized bool

	// sink receives every enabled record from every module logger.
	sink atomic.Pointer[slogHandlerBox]

	logBuffer   = NewRingBuffer(defaultBufferSize)
	logCallback atomic.Pointer[LogCallback]
)

type slogHandlerBox struct{ h slog.Handler }

func init() {
	sink.Store(&slogHandlerBox{h: newSink("text", os.Stdout)})
}

// Initialize sets up the logging system. Loggers obtained earlier pick up
// the new levels and outputs.
func Initialize(config Config) {
	mutex.Lock()
	defer mutex.Unlock()

	globalConfig = config
	isInitialized = true

	for module, levelVar := range moduleLevels {
		levelVar.Set(levelFor(module))
	}

	s := newSink(config.Format, os.Stdout)
	sink.Store(&slogHandlerBox{h: s})

	root := &slog.LevelVar{}
	root.Set(levelFor(""))
	slog.SetDefault(slog.New(&moduleHandler{level: root}))
}

// GetLogger returns a logger for the specified module, creating it if needed.
func GetLogger(module string) *slog.Logger {
	mutex.RLock()
	if logger, exists := moduleLoggers[module]; exists {
		mutex.RUnlock()
		return logger
	}
	mutex.RUnlock()

	mutex.Lock()
	defer mutex.Unlock()

	if logger, exists := moduleLoggers[module]; exists {
		return logger
	}

	levelVar := &slog.LevelVar{}
	levelVar.Set(levelFor(module))

	logger := slog.New(&moduleHandler{level: levelVar}).With("module", module)
	moduleLoggers[module] = logger
	moduleLevels[module] = levelVar
	return logger
}

// SetLevel changes one module's level at runtime.
func SetLevel(module, level string) bool {
	parsed := parseLevel(level)
	if parsed == nil {
		return false
	}
	GetLogger(module)

	mutex.Lock()
	defer mutex.Unlock()
	moduleLevels[module].Set(*parsed)
	return true
}

// Levels returns the current level of every known module.
func Levels() map[string]string {
	mutex.RLock()
	defer mutex.RUnlock()

	out := make(map[string]string, len(moduleLevels))
	for module, lv := range moduleLevels {
		out[module] = levelToString(lv.Level())
	}
	return out
}

// Modules returns the known module names, sorted.
func Modules() []string {
	mutex.RLock()
	defer mutex.RUnlock()

	names := make([]string, 0, len(moduleLevels))
	for m := range moduleLevels {
		names = append(names, m)
	}
	sort.Strings(names)
	return names
}

// GetBuffer returns the log ring buffer for reading historical logs.
func GetBuffer() *RingBuffer {
	return logBuffer
}

// SetLogCallback sets a callback to be called for each new log entry.
// Used for publishing log events to SSE clients.
func SetLogCallback(callback LogCallback) {
	if callback == nil {
		logCallback.Store(nil)
		return
	}
	logCallback.Store(&callback)
}

// levelFor resolves a module's level from the global config. Callers
// hold mutex.
func levelFor(module string) slog.Level {
	if !isInitialized {
		return slog.LevelInfo
	}
	level := slog.LevelInfo
	if parsed := parseLevel(globalConfig.Level); parsed != nil {
		level = *parsed
	}
	if s, ok := globalConfig.Modules[module]; ok {
		if parsed := parseLevel(s); parsed != nil {
			level = *parsed
		}
	}
	return level
}

// newSink builds the output chain: stdout (text or json) when connected,
// the journal when available, and always the ring buffer.
func newSink(format string, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}

	var handlers []slog.Handler
	if f, ok := w.(*os.File); !ok || isOutputAvailable(f) {
		if format == "json" {
			handlers = append(handlers, slog.NewJSONHandler(w, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(w, opts))
		}
	}
	if IsJournalAvailable() {
		handlers = append(handlers, NewJournalHandler(slog.LevelDebug))
	}
	handlers = append(handlers, &BufferHandler{level: slog.LevelDebug})

	if len(handlers) == 1 {
		return handlers[0]
	}
	return NewMultiHandler(handlers...)
}

// moduleHandler gates records by the module's level and forwards them to
// the current sink, replaying any attrs and groups added with With.
type moduleHandler struct {
	level slog.Leveler
	ops   []func(slog.Handler) slog.Handler
}

func (h *moduleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *moduleHandler) Handle(ctx context.Context, r slog.Record) error {
	inner := sink.Load().h
	for _, op := range h.ops {
		inner = op(inner)
	}
	return inner.Handle(ctx, r)
}

func (h *moduleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.with(func(inner slog.Handler) slog.Handler { return inner.WithAttrs(attrs) })
}

func (h *moduleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.with(func(inner slog.Handler) slog.Handler { return inner.WithGroup(name) })
}

func (h *moduleHandler) with(op func(slog.Handler) slog.Handler) *moduleHandler {
	ops := make([]func(slog.Handler) slog.Handler, len(h.ops)+1)
	copy(ops, h.ops)
	ops[len(h.ops)] = op
	return &moduleHandler{level: h.level, ops: ops}
}

// isOutputAvailable checks if f is a terminal, pipe, socket, or file.
// /dev/null reports as a device and is skipped.
func isOutputAvailable(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return (mode&os.ModeCharDevice) != 0 || (mode&os.ModeNamedPipe) != 0 || (mode&os.ModeSocket) != 0 || mode.IsRegular()
}

// parseLevel converts string level to slog.Level.
func parseLevel(level string) *slog.Level {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return nil
	}
	return &l
}

// levelToString converts slog.Level to a lowercase string.
func levelToString(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}
