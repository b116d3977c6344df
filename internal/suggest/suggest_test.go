package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOpenAI(t *testing.T, content string, status int) *OpenAI {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"type": "server_error", "message": "unavailable"},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1234567890,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(server.Close)

	o, err := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL + "/v1", Max: 2})
	require.NoError(t, err)
	return o
}

func TestOpenAISuggest(t *testing.T) {
	ctx := context.Background()

	t.Run("valid reply", func(t *testing.T) {
		o := newTestOpenAI(t, `{"suggestions":[" Hund ","Hund","Köter","Rüde"]}`, http.StatusOK)
		got, err := o.Suggest(ctx, "canis")
		require.NoError(t, err)
		assert.Equal(t, []string{"Hund", "Köter"}, got)
	})

	t.Run("reply violates schema", func(t *testing.T) {
		o := newTestOpenAI(t, `{"words":["Hund"]}`, http.StatusOK)
		_, err := o.Suggest(ctx, "canis")
		assert.ErrorContains(t, err, "schema")
	})

	t.Run("reply is not json", func(t *testing.T) {
		o := newTestOpenAI(t, `Hund`, http.StatusOK)
		_, err := o.Suggest(ctx, "canis")
		assert.Error(t, err)
	})

	t.Run("server error", func(t *testing.T) {
		o := newTestOpenAI(t, "", http.StatusInternalServerError)
		_, err := o.Suggest(ctx, "canis")
		assert.Error(t, err)
	})
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	_, err := NewOpenAI(OpenAIConfig{})
	assert.Error(t, err)
}

type failing struct{}

func (failing) Suggest(context.Context, string) ([]string, error) {
	return nil, errors.New("offline")
}

func TestStaticAndLogging(t *testing.T) {
	ctx := context.Background()

	got, err := WithLogging(Static{}).Suggest(ctx, "canis")
	require.NoError(t, err)
	assert.Empty(t, got)

	fixed := Static{Suggestions: []string{"Hund"}}
	got, err = WithLogging(fixed).Suggest(ctx, "canis")
	require.NoError(t, err)
	assert.Equal(t, []string{"Hund"}, got)

	got[0] = "changed"
	assert.Equal(t, "Hund", fixed.Suggestions[0])

	_, err = WithLogging(failing{}).Suggest(ctx, "canis")
	assert.EqualError(t, err, "offline")
}
