package cell

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/rs/zerolog/log"
)

// IndexStore persists route indexes between runs
type IndexStore interface {
	Name() string

	// Load returns found=false when nothing has been stored yet
	Load(ctx context.Context) (index *RouteIndex, found bool, err error)
	Save(ctx context.Context, index *RouteIndex) error
}

// FileIndexStore keeps the index in a side file next to the route file
type FileIndexStore struct {
	Path string
}

func (s *FileIndexStore) Name() string {
	return s.Path
}

func (s *FileIndexStore) Load(ctx context.Context) (*RouteIndex, bool, error) {
	file, err := os.Open(s.Path)
	if os.IsNotExist(err) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, &FileError{Path: s.Path, Err: err}
	}
	defer file.Close()

	index, err := ParseIndex(file, s.Path)
	if err != nil {
		return nil, false, err
	}

	return index, true, nil
}

func (s *FileIndexStore) Save(ctx context.Context, index *RouteIndex) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(s.Path), filepath.Base(s.Path)+".tmp-")
	if err != nil {
		return err
	}
	defer os.Remove(tmpFile.Name())

	if err := tmpFile.Chmod(0o644); err != nil {
		tmpFile.Close()
		return err
	}

	if _, err := index.WriteTo(tmpFile); err != nil {
		tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	return os.Rename(tmpFile.Name(), s.Path)
}

// CacheIndexStore keeps indexes in a shared cache so that several machines
// importing the same scenario only scan the route file once. The key covers
// the route file size and modification time so edits invalidate it.
type CacheIndexStore struct {
	cache *cache.Cache[string]
	key   string
}

func NewCacheIndexStore(indexCache *cache.Cache[string], routeFile string) (*CacheIndexStore, error) {
	fileInfo, err := os.Stat(routeFile)
	if err != nil {
		return nil, &FileError{Path: routeFile, Err: err}
	}

	absolutePath, err := filepath.Abs(routeFile)
	if err != nil {
		return nil, err
	}

	return &CacheIndexStore{
		cache: indexCache,
		key:   fmt.Sprintf("cell_rindex:%s:%d:%d", absolutePath, fileInfo.Size(), fileInfo.ModTime().Unix()),
	}, nil
}

func (s *CacheIndexStore) Name() string {
	return s.key
}

func (s *CacheIndexStore) Load(ctx context.Context) (*RouteIndex, bool, error) {
	value, err := s.cache.Get(ctx, s.key)
	if err != nil {
		// Misses and an unreachable cache both fall back to scanning
		log.Debug().Err(err).Str("key", s.key).Msg("Route index not in cache")
		return nil, false, nil
	}

	index, err := ParseIndex(strings.NewReader(value), s.key)
	if err != nil {
		return nil, false, err
	}

	return index, true, nil
}

func (s *CacheIndexStore) Save(ctx context.Context, index *RouteIndex) error {
	return s.cache.Set(ctx, s.key, index.String())
}
