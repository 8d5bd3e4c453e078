package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardscan-bot/api/internal/card"
)

func TestParseContent(t *testing.T) {
	t.Run("plain json", func(t *testing.T) {
		f, err := ParseContent("gpt", `{"name":"王大明","company":"ABC科技公司","confidence":0.9}`)
		require.NoError(t, err)
		assert.Equal(t, "王大明", f.Name)
		assert.Equal(t, "ABC科技公司", f.Company)
		assert.InDelta(t, 0.9, f.Confidence, 1e-9)
		assert.Equal(t, card.SourceAI, f.Source)
	})

	t.Run("fenced json", func(t *testing.T) {
		raw := "```json\n{\"name\":\"John\",\"confidence\":0.8}\n```"
		f, err := ParseContent("gemini", raw)
		require.NoError(t, err)
		assert.Equal(t, "John", f.Name)
	})

	t.Run("values are trimmed", func(t *testing.T) {
		f, err := ParseContent("gpt", `{"email":"  a@b.co ","confidence":2}`)
		require.NoError(t, err)
		assert.Equal(t, "a@b.co", f.Email)
		assert.InDelta(t, 1.0, f.Confidence, 1e-9)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := ParseContent("gpt", "Sorry, I cannot read this card.")
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, KindInvalidResponse, kind)
	})

	t.Run("empty object", func(t *testing.T) {
		_, err := ParseContent("gpt", `{}`)
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, KindParsingFailed, kind)
	})

	t.Run("confidence alone is not a parse failure", func(t *testing.T) {
		f, err := ParseContent("gpt", `{"confidence":0.1}`)
		require.NoError(t, err)
		assert.True(t, f.IsEmpty())
	})
}

func TestFromStatus(t *testing.T) {
	cases := []struct {
		status int
		want   Kind
	}{
		{401, KindInvalidCredential},
		{403, KindInvalidCredential},
		{429, KindQuotaExceeded},
		{402, KindQuotaExceeded},
		{500, KindNetwork},
		{503, KindNetwork},
	}
	for _, tc := range cases {
		e := FromStatus("gpt", tc.status, "boom")
		assert.Equal(t, tc.want, e.Kind, "status %d", tc.status)
	}
}

func TestKindOf(t *testing.T) {
	wrapped := errors.Join(errors.New("outer"), NewError(KindQuotaExceeded, "gemini", nil))
	kind, ok := KindOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindQuotaExceeded, kind)

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestEnginesGet(t *testing.T) {
	var e Engines
	_, err := e.Get("gemini")
	assert.Error(t, err)
	_, err = e.Get("nope")
	assert.Error(t, err)
}
