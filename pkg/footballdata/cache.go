package footballdata

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores raw source bytes keyed by source URL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte) error
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (NopCache) Set(context.Context, string, []byte) error         { return nil }

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// cacheFileName turns a URL such as https://www.football-data.co.uk/mmz4281/2526/E0.csv
// into raw-league-csv-mmz4281-2526-E0.csv.
func cacheFileName(key string) string {
	key = strings.TrimPrefix(key, "https://")
	key = strings.TrimPrefix(key, "http://")
	if i := strings.Index(key, "/"); i >= 0 {
		key = key[i+1:]
	}
	key = strings.TrimSuffix(key, ".csv")
	key = strings.Trim(unsafeKeyChars.ReplaceAllString(key, "-"), "-")
	return "raw-league-csv-" + key + ".csv"
}

// FileCache keeps downloaded files in a directory and treats them as stale after TTL.
// A zero TTL means entries never expire.
type FileCache struct {
	Dir string
	TTL time.Duration

	now func() time.Time
}

func NewFileCache(dir string, ttl time.Duration) (*FileCache, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache directory must be set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FileCache{Dir: dir, TTL: ttl, now: time.Now}, nil
}

func (c *FileCache) path(key string) string {
	return filepath.Join(c.Dir, cacheFileName(key))
}

func (c *FileCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	p := c.path(key)
	info, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if c.TTL > 0 && c.now().Sub(info.ModTime()) > c.TTL {
		return nil, false, nil
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (c *FileCache) Set(_ context.Context, key string, data []byte) error {
	return os.WriteFile(c.path(key), data, 0o644)
}

// RedisCache stores files in Redis under Prefix+URL with an expiry of TTL.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, data []byte) error {
	return c.client.Set(ctx, c.prefix+key, data, c.ttl).Err()
}
