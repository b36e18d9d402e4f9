// Package logging provides categorized logging for codeatlas, backed by zap.
// Each subsystem logs through its own named logger so that a single category
// can be turned up to debug without drowning in the rest.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies a logging subsystem.
type Category string

const (
	CategoryRegistry Category = "registry" // Navigation stack, tool publication
	CategorySource   Category = "source"   // Source provider operations
	CategorySyntax   Category = "syntax"   // Tree parsing and splicing
	CategoryReload   Category = "reload"   // Reload coordinator, rollback
	CategorySubres   Category = "subres"   // Leaf subresources
	CategoryJournal  Category = "journal"  // Edit journal persistence
	CategoryVCS      Category = "vcs"      // Version-control undo
	CategoryCLI      Category = "cli"      // Command-line entry points
)

var (
	mu      sync.RWMutex
	base    = zap.NewNop()
	loggers = make(map[Category]*zap.SugaredLogger)
)

// Initialize installs the process logger. level is a zap level name
// ("debug", "info", "warn", "error"); unknown names fall back to info.
// Safe to call more than once; later calls replace earlier loggers.
func Initialize(level string) error {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var lvl zapcore.Level
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}

	mu.Lock()
	base = logger
	loggers = make(map[Category]*zap.SugaredLogger)
	mu.Unlock()
	return nil
}

// Sync flushes buffered log entries. Called on process shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = base.Sync()
}

// Get returns the sugared logger for a category.
func Get(cat Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[cat]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[cat]; ok {
		return l
	}
	l := base.Named(string(cat)).Sugar()
	loggers[cat] = l
	return l
}

// Printf-style helpers, one pair per category. These keep call sites terse.

func Registry(format string, args ...any)      { Get(CategoryRegistry).Infof(format, args...) }
func RegistryDebug(format string, args ...any) { Get(CategoryRegistry).Debugf(format, args...) }

func Source(format string, args ...any)      { Get(CategorySource).Infof(format, args...) }
func SourceDebug(format string, args ...any) { Get(CategorySource).Debugf(format, args...) }

func SyntaxDebug(format string, args ...any) { Get(CategorySyntax).Debugf(format, args...) }

func Reload(format string, args ...any)      { Get(CategoryReload).Infof(format, args...) }
func ReloadDebug(format string, args ...any) { Get(CategoryReload).Debugf(format, args...) }
func ReloadWarn(format string, args ...any)  { Get(CategoryReload).Warnf(format, args...) }

func Subres(format string, args ...any)      { Get(CategorySubres).Infof(format, args...) }
func SubresDebug(format string, args ...any) { Get(CategorySubres).Debugf(format, args...) }

func JournalDebug(format string, args ...any) { Get(CategoryJournal).Debugf(format, args...) }
func JournalWarn(format string, args ...any)  { Get(CategoryJournal).Warnf(format, args...) }

func VCSDebug(format string, args ...any) { Get(CategoryVCS).Debugf(format, args...) }
