package ml

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const DefaultModelCacheSize = 4

type modelKey struct {
	path    string
	modTime int64
	size    int64
}

// ModelStore reads persisted models on demand. The file is stat'ed on every call so a
// removed or replaced model is noticed immediately; decoded models are cached by
// path, mtime and size.
type ModelStore struct {
	cache  *lru.Cache[modelKey, *PersistedModel]
	logger *zap.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

func NewModelStore(size int, logger *zap.Logger) (*ModelStore, error) {
	if size <= 0 {
		size = DefaultModelCacheSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := lru.New[modelKey, *PersistedModel](size)
	if err != nil {
		return nil, err
	}
	return &ModelStore{cache: cache, logger: logger}, nil
}

func (s *ModelStore) Load(path string) (*PersistedModel, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrModelNotFound, path, err)
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrCorruptModel, path)
	}

	key := modelKey{path: filepath.Clean(path), modTime: info.ModTime().UnixNano(), size: info.Size()}
	if model, ok := s.cache.Get(key); ok {
		return model, nil
	}

	model, err := LoadModel(path)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, model)
	s.logger.Info("model loaded",
		zap.String("path", path),
		zap.Int("trees", len(model.Forest.Trees)),
		zap.Time("trained_at", model.TrainedAt),
	)
	return model, nil
}

// Len reports how many decoded models are cached.
func (s *ModelStore) Len() int {
	return s.cache.Len()
}

func (s *ModelStore) Purge() {
	s.cache.Purge()
}

// Watch drops cached models whenever the model file changes. The parent directory is
// watched because SaveModel replaces the file by rename.
func (s *ModelStore) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	s.mu.Lock()
	if s.watcher != nil {
		s.watcher.Close()
	}
	s.watcher = watcher
	s.mu.Unlock()

	target := filepath.Clean(path)
	go func() {
		for {
			select {
			case <-ctx.Done():
				s.Close()
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					s.cache.Purge()
					s.logger.Info("model file changed, cache purged", zap.String("path", target), zap.String("op", event.Op.String()))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("model watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

func (s *ModelStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	s.watcher = nil
	return err
}
