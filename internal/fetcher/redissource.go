package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisSource lists and downloads fixtures stored as JSON blobs in Redis
// hashes, one hash per fixture, keyed "{prefix}{service}:{endpoint}:{id}"
// with fields matching the conventional file names minus ".json". Useful
// as a hot cache in front of colder object storage.
type RedisSource struct {
	Client *redis.Client
	Prefix string
}

func (s *RedisSource) prefix() string {
	if s.Prefix == "" {
		return "fixtures:"
	}
	return s.Prefix
}

func (s *RedisSource) hashKey(service, endpoint, fixtureID string) string {
	return fmt.Sprintf("%s%s:%s:%s", s.prefix(), service, endpoint, fixtureID)
}

// ListFixtureIDs scans for hash keys under the service/endpoint prefix.
func (s *RedisSource) ListFixtureIDs(ctx context.Context, service, endpoint string) ([]string, error) {
	pattern := fmt.Sprintf("%s%s:%s:*", s.prefix(), service, endpoint)
	var ids []string
	iter := s.Client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		id := strings.TrimPrefix(key, fmt.Sprintf("%s%s:%s:", s.prefix(), service, endpoint))
		if id != "" {
			ids = append(ids, id)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis source: scan %s: %w", pattern, err)
	}
	return ids, nil
}

// FetchFixture reads each conventional field from the fixture's hash and
// writes it out as the matching JSON file.
func (s *RedisSource) FetchFixture(ctx context.Context, service, endpoint, fixtureID, destDir string) error {
	key := s.hashKey(service, endpoint, fixtureID)
	fields, err := s.Client.HGetAll(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis source: hgetall %s: %w", key, err)
	}
	if len(fields) == 0 {
		return fmt.Errorf("redis source: no hash at %s", key)
	}

	for _, name := range endpointFiles {
		field := strings.TrimSuffix(name, ".json")
		raw, ok := fields[field]
		if !ok {
			return fmt.Errorf("redis source: missing field %q in %s", field, key)
		}
		var pretty json.RawMessage
		if err := json.Unmarshal([]byte(raw), &pretty); err != nil {
			return fmt.Errorf("redis source: decode field %q: %w", field, err)
		}
		if err := os.WriteFile(filepath.Join(destDir, name), pretty, 0o644); err != nil {
			return fmt.Errorf("redis source: write %s: %w", name, err)
		}
	}
	return nil
}
