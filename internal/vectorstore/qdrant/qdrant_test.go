package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FAL1989/consultorio-jung/internal/domain"
	"github.com/FAL1989/consultorio-jung/internal/vectorstore"
)

func TestEnsureIndex_CreatesOnlyWhenMissing(t *testing.T) {
	var puts int
	collections := []string{"outra"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/collections":
			list := make([]map[string]string, 0, len(collections))
			for _, c := range collections {
				list = append(list, map[string]string{"name": c})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"collections": list}})
		case r.Method == http.MethodPut && r.URL.Path == "/collections/jung":
			puts++
			var body map[string]map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "Cosine", body["vectors"]["distance"])
			assert.EqualValues(t, 8, body["vectors"]["size"])
			collections = append(collections, "jung")
			_, _ = w.Write([]byte(`{"result":true}`))
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	s := NewStorage(Config{URL: srv.URL, APIKey: "secret", Collection: "jung"})
	ctx := context.Background()

	created, err := vectorstore.EnsureIndex(ctx, s, "jung", 8)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = vectorstore.EnsureIndex(ctx, s, "jung", 8)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, puts)
}

func TestQuery_SendsFilterAndStripsNamespace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/collections/jung/points/search", r.URL.Path)
		var body struct {
			Limit  int `json:"limit"`
			Filter struct {
				Must []struct {
					Key   string `json:"key"`
					Match struct {
						Value string `json:"value"`
					} `json:"match"`
				} `json:"must"`
			} `json:"filter"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 3, body.Limit)
		require.Len(t, body.Filter.Must, 2)
		assert.Equal(t, namespaceKey, body.Filter.Must[0].Key)
		assert.Equal(t, "livros", body.Filter.Must[0].Match.Value)
		assert.Equal(t, "concept", body.Filter.Must[1].Key)

		_, _ = w.Write([]byte(`{"result":[{"id":"9b2c","score":0.87,
			"payload":{"text":"A sombra...","concept":"Sombra","_namespace":"livros"}}]}`))
	}))
	defer srv.Close()

	s := NewStorage(Config{URL: srv.URL, Collection: "jung"})
	got, err := s.Query(context.Background(), []float32{0.1, 0.2}, 3,
		&domain.SearchFilter{Namespace: "livros", Equals: map[string]string{"concept": "Sombra"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "9b2c", got[0].ID)
	assert.InDelta(t, 0.87, got[0].Score, 1e-9)
	assert.Equal(t, "A sombra...", got[0].Metadata["text"])
	assert.NotContains(t, got[0].Metadata, namespaceKey)
}

func TestUpsert_TagsNamespace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/collections/jung/points", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("wait"))
		var body struct {
			Points []struct {
				ID      string         `json:"id"`
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Points, 1)
		assert.Equal(t, "abc", body.Points[0].ID)
		assert.Equal(t, "livros", body.Points[0].Payload[namespaceKey])
		assert.Equal(t, "Sombra", body.Points[0].Payload["concept"])
		_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
	}))
	defer srv.Close()

	s := NewStorage(Config{URL: srv.URL, Collection: "jung"})
	err := s.Upsert(context.Background(), "livros", []vectorstore.Record{
		{ID: "abc", Values: []float32{1, 0}, Metadata: map[string]any{"concept": "Sombra"}},
	})
	require.NoError(t, err)
}

func TestMissingCollection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s := NewStorage(Config{URL: srv.URL, Collection: "nada"})
	_, err := s.Query(context.Background(), []float32{1}, 1, nil)
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
}
