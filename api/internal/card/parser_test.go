package card

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardscan-bot/api/internal/ocr"
)

func TestParseTypicalCard(t *testing.T) {
	text := strings.Join([]string{
		"王大明",
		"ABC科技公司",
		"產品經理",
		"02-2345-6789",
		"0912-345-678",
		"wang@abc.com",
	}, "\n")

	f := Parse(text)

	assert.Equal(t, "王大明", f.Name)
	assert.Equal(t, "ABC科技公司", f.Company)
	assert.Equal(t, "產品經理", f.JobTitle)
	assert.Equal(t, "02-2345-6789", f.Phone)
	assert.Equal(t, "0912-345-678", f.Mobile)
	assert.Equal(t, "wang@abc.com", f.Email)
	assert.Equal(t, SourceLocal, f.Source)
	assert.InDelta(t, BaseConfidence, f.Confidence, 1e-9)
}

func TestParseClassification(t *testing.T) {
	cases := []struct {
		name string
		text string
		want Fields
	}{
		{
			name: "labelled landline",
			text: "Tel: 02-2345-6789",
			want: Fields{Phone: "02-2345-6789"},
		},
		{
			name: "mobile not mistaken for landline",
			text: "0922-123-456",
			want: Fields{Mobile: "0922-123-456"},
		},
		{
			name: "website without scheme",
			text: "www.abc.com.tw",
			want: Fields{Website: "www.abc.com.tw"},
		},
		{
			name: "address by unit keyword",
			text: "台北市信義區市府路45號",
			want: Fields{Address: "台北市信義區市府路45號"},
		},
		{
			name: "english address keyword",
			text: "5F, No.7, Songren Road, Taipei City",
			want: Fields{Address: "5F, No.7, Songren Road, Taipei City"},
		},
		{
			name: "email extracted out of a label",
			text: "E-mail: wang@abc.com",
			want: Fields{Email: "wang@abc.com"},
		},
		{
			// a line matching both a phone pattern and a title keyword
			// classifies as phone, never as job title
			name: "phone beats title keyword",
			text: "經理專線 02-2345-6789",
			want: Fields{Phone: "02-2345-6789"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := Parse(tc.text)
			tc.want.Source = SourceLocal
			tc.want.Confidence = BaseConfidence
			assert.Equal(t, tc.want, f)
		})
	}
}

func TestParseLabelledMobileFallsToNameSlot(t *testing.T) {
	// mobile detection requires the 09 prefix at line start, so a labelled
	// mobile line lands in the next open slot
	f := Parse("Mobile: 0912-345-678")

	assert.Empty(t, f.Mobile)
	assert.Equal(t, "Mobile: 0912-345-678", f.Name)
}

func TestParseFirstLinesBecomeNameAndCompany(t *testing.T) {
	f := Parse("John Smith\nAcme Widgets\nsome stray text")

	assert.Equal(t, "John Smith", f.Name)
	assert.Equal(t, "Acme Widgets", f.Company)
	// the third line matches nothing and has no title keyword: dropped
	assert.Empty(t, f.JobTitle)
}

func TestParseSlotsAreNeverOverwritten(t *testing.T) {
	f := Parse("02-1111-2222\n02-3333-4444")

	assert.Equal(t, "02-1111-2222", f.Phone)
	// the second landline falls through to the next open slot
	assert.Equal(t, "02-3333-4444", f.Name)
}

func TestParseIsTotal(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\n\n", "!!!@", "字"} {
		f := Parse(text)
		f2 := Parse(text)
		assert.Equal(t, f, f2)
		assert.Equal(t, SourceLocal, f.Source)
	}
}

func TestParseEmptyInputHasZeroConfidence(t *testing.T) {
	f := Parse("")
	assert.True(t, f.IsEmpty())
	assert.Zero(t, f.Confidence)
}

func TestParseResultOrdersBoxesTopToBottom(t *testing.T) {
	res := ocr.Result{
		Text: "wrong order",
		Boxes: []ocr.TextBox{
			{Text: "ABC科技公司", Frame: ocr.Rect{X: 10, Y: 50}},
			{Text: "王大明", Frame: ocr.Rect{X: 10, Y: 10}},
			{Text: "02-2345-6789", Frame: ocr.Rect{X: 10, Y: 90}},
		},
	}

	f := ParseResult(res)

	require.Equal(t, "王大明", f.Name)
	assert.Equal(t, "ABC科技公司", f.Company)
	assert.Equal(t, "02-2345-6789", f.Phone)
}

func TestParseResultFallsBackToFlatText(t *testing.T) {
	f := ParseResult(ocr.Result{Text: "王大明\n02-2345-6789"})

	assert.Equal(t, "王大明", f.Name)
	assert.Equal(t, "02-2345-6789", f.Phone)
}
