package telegram_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"certwatch/pkg/serrors"
	"certwatch/pkg/telegram"

	"github.com/stretchr/testify/require"
)

// rtFunc allows using a function as an http.RoundTripper.
type rtFunc func(*http.Request) (*http.Response, error)

func (f rtFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func newTestClient(fn rtFunc) *telegram.Client {
	return telegram.New(&http.Client{Transport: fn}, telegram.Options{
		Token:       "test-token",
		PollTimeout: 5 * time.Second,
	})
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestClient_SendMessage_success(t *testing.T) {
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "api.telegram.org", r.URL.Host)
		require.Equal(t, "/bottest-token/sendMessage", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req struct {
			ChatID    int64  `json:"chat_id"`
			Text      string `json:"text"`
			ParseMode string `json:"parse_mode"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, int64(42), req.ChatID)
		require.Equal(t, "hello", req.Text)
		require.Equal(t, "Markdown", req.ParseMode)

		return response(http.StatusOK, `{"ok":true,"result":{}}`), nil
	})

	require.NoError(t, c.SendMessage(context.Background(), 42, "hello"))
}

func TestClient_SendMessage_apiError(t *testing.T) {
	c := newTestClient(func(*http.Request) (*http.Response, error) {
		return response(http.StatusBadRequest, `{"ok":false,"description":"chat not found"}`), nil
	})

	err := c.SendMessage(context.Background(), 42, "hello")
	require.Error(t, err)
	require.ErrorIs(t, err, serrors.ErrUnavailable)
	require.Contains(t, err.Error(), "chat not found")
}

func TestClient_SendMessage_rateLimited(t *testing.T) {
	c := newTestClient(func(*http.Request) (*http.Response, error) {
		return response(http.StatusTooManyRequests, `{"ok":false,"description":"Too Many Requests"}`), nil
	})

	err := c.SendMessage(context.Background(), 42, "hello")
	require.ErrorIs(t, err, serrors.ErrRateLimited)
}

func TestClient_GetUpdates_success(t *testing.T) {
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		require.Equal(t, "/bottest-token/getUpdates", r.URL.Path)

		var req struct {
			Offset  int64 `json:"offset"`
			Timeout int   `json:"timeout"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, int64(7), req.Offset)
		require.Equal(t, 5, req.Timeout)

		return response(http.StatusOK, `{"ok":true,"result":[
			{"update_id":8,"message":{"message_id":1,"text":"/list","chat":{"id":42},"from":{"id":42}}},
			{"update_id":9}
		]}`), nil
	})

	updates, err := c.GetUpdates(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	require.Equal(t, int64(8), updates[0].ID)
	require.NotNil(t, updates[0].Message)
	require.Equal(t, "/list", updates[0].Message.Text)
	require.Equal(t, int64(42), updates[0].Message.Chat.ID)
	require.Nil(t, updates[1].Message, "non-message updates decode with nil Message")
}

func TestClient_GetUpdates_malformed(t *testing.T) {
	c := newTestClient(func(*http.Request) (*http.Response, error) {
		return response(http.StatusOK, `<html>gateway error</html>`), nil
	})

	_, err := c.GetUpdates(context.Background(), 0)
	require.ErrorIs(t, err, serrors.ErrMalformed)
}

func TestNotifier_SendsToConfiguredChat(t *testing.T) {
	var gotChat int64
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		var req struct {
			ChatID int64 `json:"chat_id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotChat = req.ChatID

		return response(http.StatusOK, `{"ok":true,"result":{}}`), nil
	})

	n := telegram.NewNotifier(c, 1234)
	require.NoError(t, n.Send(context.Background(), "alert"))
	require.Equal(t, int64(1234), gotChat)
}
