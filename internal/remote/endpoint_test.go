package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "service-key-0123456789-0123456789"

func TestValidateEndpointURL(t *testing.T) {
	assert.NoError(t, ValidateEndpointURL("https://demo.supabase.co", ".supabase.co"))
	assert.Error(t, ValidateEndpointURL("http://demo.supabase.co", ".supabase.co"))
	assert.Error(t, ValidateEndpointURL("https://evil.example.com", ".supabase.co"))
	assert.Error(t, ValidateEndpointURL("://broken", ".supabase.co"))
	assert.Error(t, ValidateEndpointURL("", ".supabase.co"))
}

func TestValidateAPIKey(t *testing.T) {
	assert.NoError(t, ValidateAPIKey(testKey))
	assert.Error(t, ValidateAPIKey("short"))
	assert.Error(t, ValidateAPIKey(""))
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/", r.URL.Path)
		assert.Equal(t, testKey, r.Header.Get("apikey"))
		assert.Equal(t, "Bearer "+testKey, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	e := NewEndpoint(srv.URL, testKey, 5*time.Second, nil)
	assert.NoError(t, e.Ping(context.Background()))
}

func TestPingRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	e := NewEndpoint(srv.URL, testKey, 5*time.Second, nil)
	err := e.Ping(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestInsert(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/orders", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		assert.Equal(t, "a@corp.io", r.Header.Get("X-User-Email"))
		assert.Equal(t, "sales", r.Header.Get("X-Department"))
		assert.Equal(t, "10.0.0.1", r.Header.Get("X-Client-IP"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`[{"id": 7, "note": "hi"}]`))
	}))
	defer srv.Close()

	e := NewEndpoint(srv.URL, testKey, 5*time.Second, nil)
	row, err := e.Insert(context.Background(), "orders",
		map[string]any{"note": "hi"},
		Identity{Email: "a@corp.io", Department: "sales", ClientIP: "10.0.0.1"})
	require.NoError(t, err)
	assert.EqualValues(t, 7, row["id"])
	assert.Equal(t, "hi", gotBody["note"])
}

// при отказе отдаём сообщение эндпоинта, если оно есть
func TestInsertEndpointError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message": "duplicate key"}`))
	}))
	defer srv.Close()

	e := NewEndpoint(srv.URL, testKey, 5*time.Second, nil)
	_, err := e.Insert(context.Background(), "orders", map[string]any{"a": 1}, Identity{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransmissionFailed)
	assert.Contains(t, err.Error(), "duplicate key")
}

// liveness-GET переживает преходящий отказ за счёт ретраев
func TestPingRetriesTransientFailure(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	e := NewEndpoint(srv.URL, testKey, 5*time.Second, nil)
	assert.NoError(t, e.Ping(context.Background()))
	assert.EqualValues(t, 3, atomic.LoadInt32(&hits))
}

// вставка не идемпотентна: повтор после 500 задублировал бы строку,
// поэтому POST уходит ровно один раз и отказ виден вызывающему
func TestInsertNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`[{"id": 1}]`))
	}))
	defer srv.Close()

	e := NewEndpoint(srv.URL, testKey, 5*time.Second, nil)
	_, err := e.Insert(context.Background(), "orders", map[string]any{"a": 1}, Identity{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransmissionFailed)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestInsertNoRepresentation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	e := NewEndpoint(srv.URL, testKey, 5*time.Second, nil)
	_, err := e.Insert(context.Background(), "orders", map[string]any{"a": 1}, Identity{})
	assert.Error(t, err)
}
