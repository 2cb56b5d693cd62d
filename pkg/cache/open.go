package cache

import (
	"context"
	"fmt"
)

// Backend names accepted by [Open].
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendNone   = "none"
)

// Options selects and configures a backend.
type Options struct {
	Backend       string
	Dir           string
	MemoryEntries int
	Redis         RedisOptions
	Mongo         MongoOptions
}

// Open constructs the backend named by opts.Backend. An empty backend means
// [BackendFile].
func Open(ctx context.Context, opts Options) (Cache, error) {
	var (
		c   Cache
		err error
	)
	switch opts.Backend {
	case "", BackendFile:
		c, err = asCache(NewFileCache(opts.Dir))
	case BackendMemory:
		c, err = asCache(NewMemoryCache(opts.MemoryEntries))
	case BackendRedis:
		c, err = asCache(NewRedisCache(ctx, opts.Redis))
	case BackendMongo:
		c, err = asCache(NewMongoCache(ctx, opts.Mongo))
	case BackendNone:
		c = NewNullCache()
	default:
		err = fmt.Errorf("%w: unknown backend %q", ErrConfig, opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// asCache drops typed nil pointers so a failed constructor yields a nil
// interface.
func asCache[C Cache](c C, err error) (Cache, error) {
	if err != nil {
		return nil, err
	}
	return c, nil
}
