package footballdata

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheFileName(t *testing.T) {
	assert.Equal(t, "raw-league-csv-mmz4281-2526-E0.csv",
		cacheFileName("https://www.football-data.co.uk/mmz4281/2526/E0.csv"))
	assert.Equal(t, "raw-league-csv-new-ARG.csv",
		cacheFileName("https://www.football-data.co.uk/new/ARG.csv"))
}

func TestFileCacheExpiry(t *testing.T) {
	cache, err := NewFileCache(t.TempDir(), time.Hour)
	require.NoError(t, err)
	ctx := context.Background()
	key := "https://www.football-data.co.uk/mmz4281/2526/E0.csv"

	_, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, key, []byte("HomeTeam,AwayTeam,FTR\n")))
	data, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "HomeTeam,AwayTeam,FTR\n", string(data))

	cache.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, ok, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "entries older than the TTL are misses")
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := NewRedisCache(client, "matchpredict:csv:", 10*time.Minute)
	ctx := context.Background()
	key := "https://www.football-data.co.uk/mmz4281/2526/E0.csv"

	_, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, key, []byte("data")))
	data, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "data", string(data))
	assert.True(t, mr.Exists("matchpredict:csv:"+key))

	mr.FastForward(11 * time.Minute)
	_, ok, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "expired keys are misses")
}

func TestRedisCacheServesLoader(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	fetcher := &stubFetcher{body: []byte(sampleCSV)}
	loader := NewLoader(WithFetcher(fetcher), WithCache(NewRedisCache(client, "t:", 0)))
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		records, err := loader.Load(ctx, "https://example.test/mmz4281/2526/E0.csv")
		require.NoError(t, err)
		assert.Len(t, records, 3)
	}
	assert.Equal(t, 1, fetcher.calls)
}
