package memory

import (
	"context"
	"sync"
)

// Volatile keeps records in process memory. Contents are lost on restart.
type Volatile struct {
	mu          sync.RWMutex
	collections map[string]map[string]Record
}

func NewVolatile() *Volatile {
	return &Volatile{collections: make(map[string]map[string]Record)}
}

func (v *Volatile) SaveInformation(ctx context.Context, collection, text, externalID, additionalMetadata string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	records, ok := v.collections[collection]
	if !ok {
		records = make(map[string]Record)
		v.collections[collection] = records
	}
	records[externalID] = Record{
		Collection:         collection,
		ID:                 externalID,
		Text:               text,
		AdditionalMetadata: additionalMetadata,
	}
	return nil
}

func (v *Volatile) Search(ctx context.Context, collection, query string, limit int, minRelevance float64) ([]QueryResult, error) {
	v.mu.RLock()
	records := make([]Record, 0, len(v.collections[collection]))
	for _, rec := range v.collections[collection] {
		records = append(records, rec)
	}
	v.mu.RUnlock()

	return rank(records, query, limit, minRelevance), nil
}
