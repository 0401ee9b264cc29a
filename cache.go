package trustroots

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrAlreadyInitialized is returned when the default sources are changed
// after the default store has started loading.
var ErrAlreadyInitialized = errors.New("trustroots: default store already initialized")

// ErrLoadPanicked is recorded when the load function panicked. The panic
// still propagates to the first caller; later callers see this error.
var ErrLoadPanicked = errors.New("trustroots: root certificate load panicked")

// CacheInput holds parameters for NewCache.
type CacheInput struct {
	Load   func() (*Store, error) // pipeline run at most once
	Logger *slog.Logger           // nil uses slog.Default()
}

// Cache holds a store computed at most once. The first Get runs Load;
// concurrent callers wait for it and every caller then sees the same value.
// A failed load caches a nil store and is never retried.
type Cache struct {
	load    func() (*Store, error)
	logger  *slog.Logger
	once    sync.Once
	started atomic.Bool
	done    atomic.Bool
	store   *Store
	err     error
}

// NewCache creates a cache around a load function.
func NewCache(in CacheInput) *Cache {
	return &Cache{load: in.Load, logger: in.Logger}
}

// Get returns the cached store, computing it on first use. A nil result
// means no store is available: either no source is configured or loading
// failed (see Err). Callers needing roots must then supply their own.
func (c *Cache) Get() *Store {
	c.once.Do(c.compute)
	return c.store
}

// Err returns the load failure recorded by the first Get, if any.
func (c *Cache) Err() error {
	c.once.Do(c.compute)
	return c.err
}

// Loaded reports whether the value has been computed.
func (c *Cache) Loaded() bool {
	return c.done.Load()
}

func (c *Cache) compute() {
	c.started.Store(true)
	defer c.done.Store(true)

	logger := c.logger
	if logger == nil {
		logger = slog.Default()
	}
	if c.load == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.err = fmt.Errorf("%w: %v", ErrLoadPanicked, r)
			logger.Error("tls failed to load root certificates", "error", c.err)
			panic(r)
		}
	}()

	store, err := c.load()
	if err != nil {
		c.err = err
		logger.Error("tls failed to load root certificates", "error", err)
		return
	}
	c.store = store
	if store != nil {
		logger.Debug("root certificate store ready", "source", store.Source(), "roots", store.Len(), "invalid", store.Tally().Invalid)
	}
}
