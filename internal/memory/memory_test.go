package memory

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powerbi-tom-skill/internal/common/config"
)

const (
	seedText = "Large dataset storage format"
	seedURL  = "https://app.powerbi.com/groups/me/settings/datasets"
)

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity(seedText, "large DATASET storage format"))
	assert.Equal(t, 0.0, Similarity(seedText, ""))
	assert.Equal(t, 0.0, Similarity("abc", "xyz"))

	partial := Similarity(seedText, "large dataset")
	assert.Greater(t, partial, 0.0)
	assert.Less(t, partial, 0.77)

	assert.InDelta(t, Similarity("word", "words"), Similarity("words", "word"), 1e-9)
}

func TestRank_OrdersFiltersAndLimits(t *testing.T) {
	records := []Record{
		{ID: "b", Text: "dataset storage"},
		{ID: "a", Text: seedText},
		{ID: "c", Text: "refresh schedule"},
	}

	results := rank(records, seedText, 2, 0.1)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Record.ID)
	assert.Equal(t, 1.0, results[0].Relevance)
	assert.Equal(t, "b", results[1].Record.ID)

	assert.Empty(t, rank(records, seedText, 0, 0))
	assert.Len(t, rank(records, seedText, 5, 0.99), 1)
}

// storeContract checks behavior every backend must share.
func storeContract(t *testing.T, store Store) {
	ctx := context.Background()

	require.NoError(t, store.SaveInformation(ctx, "PBIUrl", seedText, "0", seedURL))
	require.NoError(t, store.SaveInformation(ctx, "PBIUrl", "Refresh schedule", "1", "https://example.invalid/refresh"))
	require.NoError(t, store.SaveInformation(ctx, "Other", seedText, "9", ""))

	results, err := store.Search(ctx, "PBIUrl", seedText, 1, 0.77)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "0", results[0].Record.ID)
	assert.Equal(t, seedURL, results[0].Record.AdditionalMetadata)
	assert.InDelta(t, 1.0, results[0].Relevance, 1e-9)

	results, err = store.Search(ctx, "PBIUrl", "gateway cluster", 1, 0.77)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = store.Search(ctx, "Missing", seedText, 1, 0.77)
	require.NoError(t, err)
	assert.Empty(t, results)

	// saving the same id again replaces the record
	require.NoError(t, store.SaveInformation(ctx, "PBIUrl", seedText, "0", "https://example.invalid/new"))
	results, err = store.Search(ctx, "PBIUrl", seedText, 5, 0.77)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://example.invalid/new", results[0].Record.AdditionalMetadata)
}

func TestVolatile(t *testing.T) {
	storeContract(t, NewVolatile())
}

func TestRedisStore_Miniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	storeContract(t, NewRedisStore(client, "memory"))

	assert.True(t, mr.Exists("memory:PBIUrl:0"))
	members, err := mr.SMembers("memory:PBIUrl")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"0", "1"}, members)
}

func TestRedisStore_ColonInCollection(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	store := NewRedisStore(client, "memory")
	require.NoError(t, store.SaveInformation(ctx, "a:b", "first record", "c", ""))
	require.NoError(t, store.SaveInformation(ctx, "a", "second record", "b:c", ""))

	assert.True(t, mr.Exists("memory:a%3Ab"))
	assert.True(t, mr.Exists("memory:a%3Ab:c"))
	assert.True(t, mr.Exists("memory:a:b:c"))

	results, err := store.Search(ctx, "a:b", "first record", 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c", results[0].Record.ID)
	assert.Equal(t, "a:b", results[0].Record.Collection)

	results, err = store.Search(ctx, "a", "second record", 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b:c", results[0].Record.ID)
}

func TestRedisStore_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("save", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		mock.ExpectHSet("memory:PBIUrl:0", "id", "0", "text", seedText, "metadata", seedURL).
			SetErr(stderrors.New("READONLY"))

		err := NewRedisStore(db, "").SaveInformation(ctx, "PBIUrl", seedText, "0", seedURL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "READONLY")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("search", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		mock.ExpectSMembers("memory:PBIUrl").SetVal([]string{"0"})
		mock.ExpectHGetAll("memory:PBIUrl:0").SetErr(stderrors.New("connection reset"))

		_, err := NewRedisStore(db, "memory").Search(ctx, "PBIUrl", seedText, 1, 0.77)
		require.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta(createTrigramExtension)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS memory_records")).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, store.EnsureSchema(ctx))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO memory_records")).
		WithArgs("PBIUrl", "0", seedText, seedURL).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.SaveInformation(ctx, "PBIUrl", seedText, "0", seedURL))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, text, metadata, similarity(text, $2) AS relevance")).
		WithArgs("PBIUrl", "large dataset storage format", 0.77, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "text", "metadata", "relevance"}).
			AddRow("0", seedText, seedURL, 1.0))

	results, err := store.Search(ctx, "PBIUrl", "large dataset storage format", 1, 0.77)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, Record{Collection: "PBIUrl", ID: "0", Text: seedText, AdditionalMetadata: seedURL}, results[0].Record)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, text, metadata")).
		WillReturnError(stderrors.New("relation does not exist"))
	_, err = store.Search(ctx, "PBIUrl", "x", 1, 0.77)
	assert.Error(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO memory_records")).
		WillReturnError(stderrors.New("disk full"))
	assert.Error(t, store.SaveInformation(ctx, "PBIUrl", seedText, "0", seedURL))

	assert.NoError(t, mock.ExpectationsWereMet())
}

// fakeES is a minimal document store speaking the index and search endpoints.
type fakeES struct {
	mu   sync.Mutex
	docs map[string]map[string]Record
	fail bool
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad request"}`))
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 3 && parts[1] == "_doc":
		var rec Record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if f.docs[parts[0]] == nil {
			f.docs[parts[0]] = make(map[string]Record)
		}
		f.docs[parts[0]][parts[2]] = rec
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"result":"created"}`))

	case len(parts) == 2 && parts[1] == "_search":
		docs, ok := f.docs[parts[0]]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"type":"index_not_found_exception"}}`))
			return
		}
		type hit struct {
			ID     string `json:"_id"`
			Source Record `json:"_source"`
		}
		var hits []hit
		for id, rec := range docs {
			hits = append(hits, hit{ID: id, Source: rec})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"hits": map[string]interface{}{"hits": hits}})

	default:
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}
}

func newESStore(t *testing.T) (*ElasticsearchStore, *fakeES) {
	fake := &fakeES{docs: make(map[string]map[string]Record)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewElasticsearchStore(client, "memory-"), fake
}

func TestElasticsearchStore(t *testing.T) {
	store, fake := newESStore(t)
	storeContract(t, store)

	fake.mu.Lock()
	_, ok := fake.docs["memory-pbiurl"]["0"]
	fake.mu.Unlock()
	assert.True(t, ok, "index name is prefix plus lower-cased collection")
}

func TestElasticsearchStore_SearchError(t *testing.T) {
	store, fake := newESStore(t)
	fake.fail = true

	_, err := store.Search(context.Background(), "PBIUrl", seedText, 1, 0.77)
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, backend, err := Open(ctx, config.MemoryConfig{Backend: "volatile"})
	require.NoError(t, err)
	assert.IsType(t, &Volatile{}, store)
	assert.Equal(t, "volatile", backend.Kind())
	assert.NoError(t, backend.Close())

	mr := miniredis.RunT(t)
	store, backend, err = Open(ctx, config.MemoryConfig{
		Backend: "redis",
		Redis:   config.RedisConfig{Address: mr.Addr(), KeyPrefix: "memory"},
	})
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, store)
	assert.Equal(t, "redis", backend.Kind())
	assert.NoError(t, backend.Ping(ctx))
	assert.NoError(t, backend.Close())

	_, _, err = Open(ctx, config.MemoryConfig{Backend: "sqlite"})
	assert.Error(t, err)
}
