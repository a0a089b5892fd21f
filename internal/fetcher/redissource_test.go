package fetcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisSource(t *testing.T, prefix string) (*RedisSource, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return &RedisSource{Client: client, Prefix: prefix}, client
}

func seedRedisFixture(t *testing.T, client *redis.Client, key string) {
	t.Helper()
	fields := map[string]string{
		"input":         `{"fixture_id":"fx-1","name":"place_order"}`,
		"golden_output": `{"fixture_id":"fx-1","output":42}`,
		"stubs":         `{"fixture_id":"fx-1","db_calls":[]}`,
		"metadata":      `{"fixture_id":"fx-1","schema_version":"1.0"}`,
	}
	require.NoError(t, client.HSet(context.Background(), key, fields).Err())
}

func TestRedisSourceListsFixtureIDsUnderPrefix(t *testing.T) {
	src, client := newMiniredisSource(t, "fixtures:")
	seedRedisFixture(t, client, "fixtures:checkout:place_order:fx-1")

	ids, err := src.ListFixtureIDs(context.Background(), "checkout", "place_order")
	require.NoError(t, err)
	assert.Equal(t, []string{"fx-1"}, ids)
}

func TestRedisSourceFetchFixtureWritesConventionalFiles(t *testing.T) {
	src, client := newMiniredisSource(t, "fixtures:")
	seedRedisFixture(t, client, "fixtures:checkout:place_order:fx-1")

	dest := t.TempDir()
	err := src.FetchFixture(context.Background(), "checkout", "place_order", "fx-1", dest)
	require.NoError(t, err)

	for _, name := range endpointFiles {
		path := filepath.Join(dest, name)
		_, statErr := os.Stat(path)
		assert.NoErrorf(t, statErr, "expected %s to exist", name)
	}
}

func TestRedisSourceFetchFixtureMissingHashErrors(t *testing.T) {
	src, _ := newMiniredisSource(t, "fixtures:")

	err := src.FetchFixture(context.Background(), "checkout", "place_order", "missing", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, fmt.Sprint(err), "no hash")
}
