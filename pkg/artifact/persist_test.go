package artifact

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/atomic"
)

func TestHTTPPersister(t *testing.T) {
	newServer := func(t *testing.T, handler func(calls int64, w http.ResponseWriter, body []byte)) (*httptest.Server, *atomic.Int64) {
		calls := atomic.NewInt64(0)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			handler(calls.Inc(), w, body)
		}))
		t.Cleanup(server.Close)
		return server, calls
	}

	t.Run("returns the id", func(t *testing.T) {
		server, calls := newServer(t, func(_ int64, w http.ResponseWriter, body []byte) {
			assert.Equal(t, "Q", gjson.GetBytes(body, "name").String())
			assert.Equal(t, "query Q { id }", gjson.GetBytes(body, "text").String())
			_, _ = w.Write([]byte(`{"id":"42"}`))
		})
		id, err := NewHTTPPersister(server.URL).Persist(context.Background(), "Q", "query Q { id }")
		require.NoError(t, err)
		assert.Equal(t, "42", id)
		assert.Equal(t, int64(1), calls.Load())
	})

	t.Run("retries server errors", func(t *testing.T) {
		server, calls := newServer(t, func(call int64, w http.ResponseWriter, _ []byte) {
			if call < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(`{"id":"7"}`))
		})
		id, err := NewHTTPPersister(server.URL, WithRetries(5), WithInitialInterval(time.Millisecond)).
			Persist(context.Background(), "Q", "query Q { id }")
		require.NoError(t, err)
		assert.Equal(t, "7", id)
		assert.Equal(t, int64(3), calls.Load())
	})

	t.Run("gives up after retries", func(t *testing.T) {
		server, calls := newServer(t, func(_ int64, w http.ResponseWriter, _ []byte) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		_, err := NewHTTPPersister(server.URL, WithRetries(2), WithInitialInterval(time.Millisecond)).
			Persist(context.Background(), "Q", "query Q { id }")
		assert.Error(t, err)
		assert.Equal(t, int64(3), calls.Load())
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		server, calls := newServer(t, func(_ int64, w http.ResponseWriter, _ []byte) {
			w.WriteHeader(http.StatusBadRequest)
		})
		_, err := NewHTTPPersister(server.URL, WithRetries(5), WithInitialInterval(time.Millisecond)).
			Persist(context.Background(), "Q", "query Q { id }")
		assert.Error(t, err)
		assert.Equal(t, int64(1), calls.Load())
	})

	t.Run("missing id", func(t *testing.T) {
		server, _ := newServer(t, func(_ int64, w http.ResponseWriter, _ []byte) {
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		_, err := NewHTTPPersister(server.URL, WithInitialInterval(time.Millisecond)).
			Persist(context.Background(), "Q", "query Q { id }")
		assert.True(t, errors.Is(err, ErrPersistResponse))
	})
}
