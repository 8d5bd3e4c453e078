package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardscan-bot/api/internal/extract"
)

func newTestEngine(url string) *Engine {
	e := New("test-key", "gpt-4o-mini")
	e.BaseURL = url
	return e
}

func completion(content string) map[string]any {
	return map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"content": content}},
		},
	}
}

func TestExtractSuccess(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(completion(`{"name":"王大明","company":"ABC科技公司","confidence":0.92}`))
	}))
	defer srv.Close()

	f, err := newTestEngine(srv.URL).Extract(context.Background(), "王大明\nABC科技公司", nil)
	require.NoError(t, err)

	assert.Equal(t, "王大明", f.Name)
	assert.Equal(t, "ABC科技公司", f.Company)
	assert.InDelta(t, 0.92, f.Confidence, 1e-9)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotBody["model"])
	rf, _ := gotBody["response_format"].(map[string]any)
	assert.Equal(t, "json_object", rf["type"])
}

func TestExtractErrorKinds(t *testing.T) {
	cases := []struct {
		status int
		want   extract.Kind
	}{
		{http.StatusUnauthorized, extract.KindInvalidCredential},
		{http.StatusForbidden, extract.KindInvalidCredential},
		{http.StatusTooManyRequests, extract.KindQuotaExceeded},
		{http.StatusInternalServerError, extract.KindNetwork},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", tc.status)
		}))
		_, err := newTestEngine(srv.URL).Extract(context.Background(), "text", nil)
		srv.Close()

		kind, ok := extract.KindOf(err)
		require.True(t, ok, "status %d", tc.status)
		assert.Equal(t, tc.want, kind, "status %d", tc.status)
	}
}

func TestExtractTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	_, err := newTestEngine(srv.URL).Extract(context.Background(), "text", nil)
	kind, ok := extract.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, extract.KindNetwork, kind)
}

func TestExtractGarbageCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(completion("I could not parse the card, sorry."))
	}))
	defer srv.Close()

	_, err := newTestEngine(srv.URL).Extract(context.Background(), "text", nil)
	kind, ok := extract.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, extract.KindInvalidResponse, kind)
}

func TestExtractUnavailableWithoutKey(t *testing.T) {
	e := New("", "gpt-4o-mini")
	assert.False(t, e.IsAvailable())

	_, err := e.Extract(context.Background(), "text", nil)
	kind, ok := extract.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, extract.KindServiceUnavailable, kind)
}

func TestExtractAttachesImageOnlyWhenEnabled(t *testing.T) {
	var parts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Content json.RawMessage `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		var user []json.RawMessage
		_ = json.Unmarshal(body.Messages[1].Content, &user)
		parts = len(user)
		_ = json.NewEncoder(w).Encode(completion(`{"name":"x","confidence":0.5}`))
	}))
	defer srv.Close()

	img := []byte{0xFF, 0xD8, 0xFF, 0xE0} // jpeg magic

	e := newTestEngine(srv.URL)
	_, err := e.Extract(context.Background(), "text", img)
	require.NoError(t, err)
	assert.Equal(t, 1, parts)

	e.SendImage = true
	_, err = e.Extract(context.Background(), "text", img)
	require.NoError(t, err)
	assert.Equal(t, 2, parts)
}
