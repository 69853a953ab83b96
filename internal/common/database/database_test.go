package database

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powerbi-tom-skill/internal/common/config"
)

func TestNewRedis_PingsServer(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedis(context.Background(), config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	var backend Backend = client
	assert.Equal(t, "redis", backend.Kind())
	assert.NoError(t, backend.Ping(context.Background()))

	mr.Close()
	err = backend.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
}

func TestNewRedis_UnreachableServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis(context.Background(), config.RedisConfig{Address: addr})
	assert.Error(t, err)
}

func TestNewElasticsearch_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewElasticsearch(context.Background(), config.ElasticsearchConfig{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	assert.NotNil(t, client.Client)
}

func TestNewElasticsearch_PingError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewElasticsearch(context.Background(), config.ElasticsearchConfig{Addresses: []string{srv.URL}})
	assert.Error(t, err)
}

func TestNewPostgresClient_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing()
	mock.ExpectClose()

	client, err := newPostgresClient(context.Background(), db, config.PostgresConfig{Database: "skills", MaxConnections: 4})
	require.NoError(t, err)
	assert.Equal(t, "postgres", client.Kind())
	require.NoError(t, client.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgresClient_PingFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectClose()

	_, err = newPostgresClient(context.Background(), db, config.PostgresConfig{Database: "skills"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres skills unreachable")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClient_CloseNil(t *testing.T) {
	assert.NoError(t, (&PostgresClient{}).Close())
}

func TestNone(t *testing.T) {
	var backend Backend = None{}
	assert.Equal(t, "volatile", backend.Kind())
	assert.NoError(t, backend.Ping(context.Background()))
	assert.NoError(t, backend.Close())
}
