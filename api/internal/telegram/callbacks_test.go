package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cardscan-bot/api/internal/card"
)

func TestApplyFieldEdits(t *testing.T) {
	f := card.Fields{Name: "王犬明", Company: "ABC科技"}

	n := applyFieldEdits(&f, "name: 王大明\ntitle: 產品經理\n\nnot a field line")

	assert.Equal(t, 2, n)
	assert.Equal(t, "王大明", f.Name)
	assert.Equal(t, "產品經理", f.JobTitle)
	assert.Equal(t, "ABC科技", f.Company)
}

func TestApplyFieldEditsFullWidthColonAndChineseKeys(t *testing.T) {
	var f card.Fields

	n := applyFieldEdits(&f, "姓名：王大明\n手機：0912-345-678\n信箱：wang@abc.com")

	assert.Equal(t, 3, n)
	assert.Equal(t, "王大明", f.Name)
	assert.Equal(t, "0912-345-678", f.Mobile)
	assert.Equal(t, "wang@abc.com", f.Email)
}

func TestApplyFieldEditsUnknownKeysIgnored(t *testing.T) {
	var f card.Fields
	n := applyFieldEdits(&f, "fax: 02-1111-2222\nrandom text")
	assert.Zero(t, n)
	assert.True(t, f.IsEmpty())
}

func TestFormatCardShowsOnlyPopulatedFields(t *testing.T) {
	f := card.Fields{
		Name: "王大明", Email: "wang@abc.com",
		Confidence: 0.95, Source: card.SourceAI,
	}

	out := formatCard(f)

	assert.Contains(t, out, "王大明")
	assert.Contains(t, out, "wang@abc.com")
	assert.NotContains(t, out, "Company")
	assert.Contains(t, out, "AI-enhanced")
	assert.Contains(t, out, "95%")
}

func TestSourceLabel(t *testing.T) {
	assert.Equal(t, "Local heuristics", sourceLabel(card.SourceLocal))
	assert.Equal(t, "AI-enhanced", sourceLabel(card.SourceAI))
	assert.Equal(t, "Manually corrected", sourceLabel(card.SourceManual))
}
