package card

import (
	"regexp"
	"sort"
	"strings"

	"cardscan-bot/api/internal/ocr"
)

// BaseConfidence is assigned to any heuristic record with at least one
// detected field. Records with nothing detected stay at 0.
const BaseConfidence = 0.75

var (
	// Taiwanese landline: 0X area code (02..08) + digit groups joined by
	// separators, anywhere in the line ("Tel: 02-1234-5678" included).
	phoneRe = regexp.MustCompile(`(^|[^\d])(0[2-8]\)?[ -]?\d{3,4}[ -]?\d{4})`)
	// Mobile: line starts with the 09 prefix. Deliberately anchored, unlike
	// phoneRe: a labelled mobile line ("Mobile: 0912-...") is not detected
	// and falls through to the next open slot.
	mobileRe = regexp.MustCompile(`^09\d{2}[ -]?\d{3}[ -]?\d{3}`)
	emailRe  = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
)

// addressKeywords are administrative-unit and thoroughfare tokens. A line
// containing any of them is classified as the address.
var addressKeywords = []string{
	"市", "縣", "區", "鄉", "鎮", "村", "里", "路", "街", "大道", "巷", "弄", "號", "樓",
	"road", "rd.", "street", "st.", "ave", "blvd", "district", "city", "county",
}

// titleKeywords mark job-title lines (localized + English).
var titleKeywords = []string{
	"經理", "副理", "協理", "襄理", "總監", "主任", "組長", "課長", "處長", "廠長",
	"執行長", "營運長", "技術長", "財務長", "董事長", "總裁", "負責人",
	"工程師", "設計師", "顧問", "專員", "助理", "業務", "會計師", "建築師",
	"manager", "director", "supervisor", "engineer", "consultant", "specialist",
	"designer", "ceo", "cto", "cfo", "coo", "president", "founder",
}

// Parse turns raw OCR text into a partially populated record using line
// heuristics. It is total: any input yields a record, absence of a field means
// "not detected". Source is always local.
func Parse(text string) Fields {
	f := Fields{Source: SourceLocal}
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		classifyLine(line, &f)
	}
	if f.FieldCount() > 0 {
		f.Confidence = BaseConfidence
	}
	f.Trim()
	return f
}

// ParseResult is the overload that additionally uses line order from the OCR
// bounding boxes (top-to-bottom, then left-to-right) instead of the flat text.
func ParseResult(res ocr.Result) Fields {
	if len(res.Boxes) == 0 {
		return Parse(res.Text)
	}
	boxes := append([]ocr.TextBox(nil), res.Boxes...)
	sort.SliceStable(boxes, func(i, j int) bool {
		if boxes[i].Frame.Y != boxes[j].Frame.Y {
			return boxes[i].Frame.Y < boxes[j].Frame.Y
		}
		return boxes[i].Frame.X < boxes[j].Frame.X
	})
	lines := make([]string, 0, len(boxes))
	for _, b := range boxes {
		lines = append(lines, b.Text)
	}
	return Parse(strings.Join(lines, "\n"))
}

// classifyLine assigns the line to the first matching unfilled slot. The
// precedence is fixed: phone, mobile, email, website, address, name (first
// unmatched line), company (next unmatched line), job title. A line matching
// nothing is dropped. Already-filled slots are never overwritten.
func classifyLine(line string, f *Fields) {
	if f.Phone == "" {
		if m := phoneRe.FindStringSubmatch(line); m != nil {
			f.Phone = m[2]
			return
		}
	}
	if f.Mobile == "" {
		if m := mobileRe.FindString(line); m != "" {
			f.Mobile = m
			return
		}
	}
	if f.Email == "" && looksLikeEmail(line) {
		if m := emailRe.FindString(line); m != "" {
			f.Email = m
		} else {
			f.Email = line
		}
		return
	}
	if f.Website == "" && looksLikeWebsite(line) {
		f.Website = line
		return
	}
	if f.Address == "" && containsAny(line, addressKeywords) {
		f.Address = line
		return
	}
	if f.Name == "" {
		f.Name = line
		return
	}
	if f.Company == "" {
		f.Company = line
		return
	}
	if f.JobTitle == "" && containsAny(line, titleKeywords) {
		f.JobTitle = line
		return
	}
}

func looksLikeEmail(line string) bool {
	i := strings.IndexByte(line, '@')
	return i >= 0 && strings.Contains(line[i:], ".")
}

func looksLikeWebsite(line string) bool {
	l := strings.ToLower(line)
	return strings.HasPrefix(l, "http") || strings.HasPrefix(l, "www.")
}

func containsAny(line string, keywords []string) bool {
	l := strings.ToLower(line)
	for _, kw := range keywords {
		if strings.Contains(l, kw) {
			return true
		}
	}
	return false
}
