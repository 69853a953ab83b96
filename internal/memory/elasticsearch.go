package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchStore indexes one document per record and uses a match query
// to fetch candidates, which are then ranked with Similarity.
type ElasticsearchStore struct {
	client      *elasticsearch.Client
	indexPrefix string
}

func NewElasticsearchStore(client *elasticsearch.Client, indexPrefix string) *ElasticsearchStore {
	return &ElasticsearchStore{client: client, indexPrefix: indexPrefix}
}

func (s *ElasticsearchStore) index(collection string) string {
	return strings.ToLower(s.indexPrefix + collection)
}

func (s *ElasticsearchStore) SaveInformation(ctx context.Context, collection, text, externalID, additionalMetadata string) error {
	body, err := json.Marshal(Record{
		Collection:         collection,
		ID:                 externalID,
		Text:               text,
		AdditionalMetadata: additionalMetadata,
	})
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	res, err := s.client.Index(
		s.index(collection),
		bytes.NewReader(body),
		s.client.Index.WithContext(ctx),
		s.client.Index.WithDocumentID(externalID),
		s.client.Index.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("index record %s: %w", externalID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index record %s: %s", externalID, res.Status())
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string `json:"_id"`
			Source Record `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *ElasticsearchStore) Search(ctx context.Context, collection, query string, limit int, minRelevance float64) ([]QueryResult, error) {
	if limit <= 0 {
		return nil, nil
	}

	size := limit * 10
	if size < 10 {
		size = 10
	}
	body, err := json.Marshal(map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"match": map[string]interface{}{
				"text": map[string]interface{}{"query": query, "fuzziness": "AUTO"},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index(collection)),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search collection %s: %w", collection, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("search collection %s: %s", collection, res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	records := make([]Record, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		rec := hit.Source
		if rec.ID == "" {
			rec.ID = hit.ID
		}
		rec.Collection = collection
		records = append(records, rec)
	}
	return rank(records, query, limit, minRelevance), nil
}
