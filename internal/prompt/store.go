package prompt

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vampirenirmal/dramaturg/internal/core"
)

//go:embed templates/*.txt
var defaultTemplates embed.FS

// Store hands out the few-shot template of each stage. Templates are opaque
// text. A directory override may replace any of them with a file named
// <stage>.txt; stages without an override use the built-in text.
type Store struct {
	dir    string
	cache  *FileCache
	logger *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithOverrideDir points the store at a directory of replacement templates.
func WithOverrideDir(dir string) StoreOption {
	return func(s *Store) {
		s.dir = dir
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger.With("component", "prompt_store")
	}
}

// NewStore creates a template store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		cache:  NewFileCache(),
		logger: slog.Default().With("component", "prompt_store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Template returns the few-shot template for a stage.
func (s *Store) Template(stage core.Stage) (string, error) {
	if !stage.Valid() {
		return "", fmt.Errorf("unknown stage %q", stage)
	}

	if s.dir != "" {
		path := filepath.Join(s.dir, stage.String()+".txt")
		content, err := s.cache.Load(path)
		if err == nil {
			s.logger.Debug("using template override",
				"stage", stage,
				"path", path,
				"template_length", len(content))
			return content, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("loading %s template: %w", stage, err)
		}
	}

	content, err := fs.ReadFile(defaultTemplates, "templates/"+stage.String()+".txt")
	if err != nil {
		return "", fmt.Errorf("loading built-in %s template: %w", stage, err)
	}
	return string(content), nil
}

// Preload reads every override file up front so a bad override dir fails
// before any generation starts. Stages without an override file are skipped.
func (s *Store) Preload() error {
	if s.dir == "" {
		return nil
	}
	var paths []string
	for _, stage := range core.Stages {
		path := filepath.Join(s.dir, stage.String()+".txt")
		if _, err := os.Stat(path); err == nil {
			paths = append(paths, path)
		}
	}
	if err := s.cache.Preload(paths); err != nil {
		return fmt.Errorf("loading prompt overrides: %w", err)
	}
	s.logger.Info("prompt overrides loaded",
		"dir", s.dir,
		"overrides", s.cache.Len())
	return nil
}
