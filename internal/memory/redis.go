package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each record in a hash and lists collection members in a set.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "memory"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// collectionEscaper keeps ':' out of the collection segment, so a set key
// can never equal a record key of another collection.
var collectionEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

func (s *RedisStore) collectionKey(collection string) string {
	return fmt.Sprintf("%s:%s", s.prefix, collectionEscaper.Replace(collection))
}

func (s *RedisStore) recordKey(collection, id string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, collectionEscaper.Replace(collection), id)
}

func (s *RedisStore) SaveInformation(ctx context.Context, collection, text, externalID, additionalMetadata string) error {
	if err := s.client.HSet(ctx, s.recordKey(collection, externalID),
		"id", externalID,
		"text", text,
		"metadata", additionalMetadata,
	).Err(); err != nil {
		return fmt.Errorf("hset record %s: %w", externalID, err)
	}
	if err := s.client.SAdd(ctx, s.collectionKey(collection), externalID).Err(); err != nil {
		return fmt.Errorf("sadd collection %s: %w", collection, err)
	}
	return nil
}

func (s *RedisStore) Search(ctx context.Context, collection, query string, limit int, minRelevance float64) ([]QueryResult, error) {
	ids, err := s.client.SMembers(ctx, s.collectionKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("smembers collection %s: %w", collection, err)
	}

	records := make([]Record, 0, len(ids))
	for _, id := range ids {
		fields, err := s.client.HGetAll(ctx, s.recordKey(collection, id)).Result()
		if err != nil {
			return nil, fmt.Errorf("hgetall record %s: %w", id, err)
		}
		if len(fields) == 0 {
			continue
		}
		records = append(records, Record{
			Collection:         collection,
			ID:                 id,
			Text:               fields["text"],
			AdditionalMetadata: fields["metadata"],
		})
	}

	return rank(records, query, limit, minRelevance), nil
}
