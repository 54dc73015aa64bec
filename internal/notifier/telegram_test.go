package notifier

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTelegram(baseURL string) *Telegram {
	tg := NewTelegram("123456:token", "-100200300")
	tg.apiBase = baseURL
	tg.backoff = 0
	return tg
}

func TestTelegram_SendText(t *testing.T) {
	t.Run("unconfigured", func(t *testing.T) {
		err := NewTelegram("", "").SendText("hi")
		assert.ErrorContains(t, err, "not fully configured")
	})

	t.Run("posts plain text to the bot endpoint", func(t *testing.T) {
		var got sendMessageRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/bot123456:token/sendMessage", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Write([]byte(`{"ok": true}`))
		}))
		defer srv.Close()

		require.NoError(t, newTestTelegram(srv.URL).SendText("🟢 Opened PEPE: amount 50 at 1.2"))
		assert.Equal(t, "-100200300", got.ChatID)
		assert.Equal(t, "🟢 Opened PEPE: amount 50 at 1.2", got.Text)
		assert.True(t, got.DisableLinkPreview)
	})

	t.Run("truncates oversized messages", func(t *testing.T) {
		var got sendMessageRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Write([]byte(`{"ok": true}`))
		}))
		defer srv.Close()

		require.NoError(t, newTestTelegram(srv.URL).SendText(strings.Repeat("x", maxMessageLen+500)))
		assert.Len(t, got.Text, maxMessageLen)
	})

	t.Run("client errors are permanent", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"ok": false, "description": "Bad Request: chat not found"}`))
		}))
		defer srv.Close()

		err := newTestTelegram(srv.URL).SendText("hi")
		assert.ErrorContains(t, err, "chat not found")
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("server errors retry and then give up", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		err := newTestTelegram(srv.URL).SendText("hi")
		assert.ErrorContains(t, err, "status=502")
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("recovers on a later attempt", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Write([]byte(`{"ok": true}`))
		}))
		defer srv.Close()

		require.NoError(t, newTestTelegram(srv.URL).SendText("hi"))
		assert.Equal(t, int32(2), calls.Load())
	})
}
