package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cardscan-bot/api/internal/ocr"
	"cardscan-bot/api/internal/util"
)

// Engine recognizes text through the Google Cloud Vision REST API
// (images:annotate, DOCUMENT_TEXT_DETECTION).
type Engine struct {
	APIKey  string
	BaseURL string // overridable in tests
	httpc   *http.Client
}

func New(apiKey string) *Engine {
	return &Engine{
		APIKey:  strings.TrimSpace(apiKey),
		BaseURL: "https://vision.googleapis.com",
		httpc:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (e *Engine) Name() string { return "vision" }

type request struct {
	Requests []annotateRequest `json:"requests"`
}

type annotateRequest struct {
	Image        requestImage  `json:"image"`
	Features     []feature     `json:"features"`
	ImageContext *imageContext `json:"imageContext,omitempty"`
}

type requestImage struct {
	Content string `json:"content"`
}

type feature struct {
	Type string `json:"type"`
}

type imageContext struct {
	LanguageHints []string `json:"languageHints,omitempty"`
}

type response struct {
	Responses []struct {
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error,omitempty"`
		FullTextAnnotation *struct {
			Text  string `json:"text,omitempty"`
			Pages []page `json:"pages,omitempty"`
		} `json:"fullTextAnnotation,omitempty"`
	} `json:"responses"`
}

type page struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence,omitempty"`
	Blocks     []struct {
		Paragraphs []paragraph `json:"paragraphs,omitempty"`
	} `json:"blocks,omitempty"`
}

type paragraph struct {
	Confidence  float64 `json:"confidence,omitempty"`
	BoundingBox *struct {
		Vertices []struct {
			X int `json:"x"`
			Y int `json:"y"`
		} `json:"vertices,omitempty"`
	} `json:"boundingBox,omitempty"`
	Words []struct {
		Symbols []struct {
			Text     string `json:"text"`
			Property *struct {
				DetectedBreak *struct {
					Type string `json:"type"`
				} `json:"detectedBreak,omitempty"`
			} `json:"property,omitempty"`
		} `json:"symbols,omitempty"`
	} `json:"words,omitempty"`
}

func (e *Engine) Recognize(ctx context.Context, image []byte, opt ocr.Options) (ocr.Result, error) {
	if e.APIKey == "" {
		return ocr.Result{}, ocr.NewError(ocr.KindProcessingFailed, e.Name(), fmt.Errorf("GOOGLE_VISION_API_KEY is empty"))
	}
	if !util.IsSupportedImage(image) {
		return ocr.Result{}, ocr.NewError(ocr.KindInvalidImage, e.Name(), fmt.Errorf("unsupported image format"))
	}
	started := time.Now()

	featureType := "DOCUMENT_TEXT_DETECTION"
	if opt.Model != "" {
		featureType = opt.Model
	}
	ar := annotateRequest{
		Image:    requestImage{Content: base64.StdEncoding.EncodeToString(image)},
		Features: []feature{{Type: featureType}},
	}
	if len(opt.Langs) > 0 {
		ar.ImageContext = &imageContext{LanguageHints: opt.Langs}
	}
	payload, _ := json.Marshal(request{Requests: []annotateRequest{ar}})

	url := strings.TrimRight(e.BaseURL, "/") + "/v1/images:annotate?key=" + e.APIKey
	req, _ := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpc.Do(req)
	if err != nil {
		return ocr.Result{}, ocr.NewError(ocr.KindProcessingFailed, e.Name(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		x, _ := io.ReadAll(resp.Body)
		return ocr.Result{}, ocr.NewError(ocr.KindProcessingFailed, e.Name(),
			fmt.Errorf("vision %d: %s", resp.StatusCode, strings.TrimSpace(string(x))))
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ocr.Result{}, ocr.NewError(ocr.KindProcessingFailed, e.Name(), err)
	}
	if len(out.Responses) == 0 {
		return ocr.Result{}, ocr.NewError(ocr.KindNoTextFound, e.Name(), nil)
	}
	r0 := out.Responses[0]
	if r0.Error != nil {
		kind := ocr.KindProcessingFailed
		if r0.Error.Code == 3 { // INVALID_ARGUMENT: bad image data
			kind = ocr.KindInvalidImage
		}
		return ocr.Result{}, ocr.NewError(kind, e.Name(), fmt.Errorf("vision: %s", r0.Error.Message))
	}
	ta := r0.FullTextAnnotation
	if ta == nil || strings.TrimSpace(ta.Text) == "" {
		return ocr.Result{}, ocr.NewError(ocr.KindNoTextFound, e.Name(), nil)
	}

	res := ocr.Result{
		Text:           strings.TrimSpace(ta.Text),
		ProcessingTime: time.Since(started),
	}
	var confSum float64
	var confN int
	for _, p := range ta.Pages {
		for _, b := range p.Blocks {
			for _, par := range b.Paragraphs {
				box := paragraphBox(par, p.Width, p.Height)
				if box.Text == "" {
					continue
				}
				res.Boxes = append(res.Boxes, box)
				confSum += box.Confidence
				confN++
			}
		}
		if p.Confidence > 0 {
			res.Confidence = p.Confidence
		}
	}
	if res.Confidence == 0 && confN > 0 {
		res.Confidence = confSum / float64(confN)
	}
	return res, nil
}

// paragraphBox flattens one Vision paragraph into a line box with a
// normalized frame. Symbol breaks of type SPACE keep latin words separated;
// CJK symbols concatenate without separators.
func paragraphBox(par paragraph, w, h int) ocr.TextBox {
	var sb strings.Builder
	for _, word := range par.Words {
		for _, s := range word.Symbols {
			sb.WriteString(s.Text)
			if s.Property != nil && s.Property.DetectedBreak != nil {
				switch s.Property.DetectedBreak.Type {
				case "SPACE", "SURE_SPACE":
					sb.WriteByte(' ')
				}
			}
		}
	}
	box := ocr.TextBox{
		Text:       strings.TrimSpace(sb.String()),
		Confidence: par.Confidence,
	}
	if par.BoundingBox != nil && len(par.BoundingBox.Vertices) > 0 && w > 0 && h > 0 {
		minX, minY := par.BoundingBox.Vertices[0].X, par.BoundingBox.Vertices[0].Y
		maxX, maxY := minX, minY
		for _, v := range par.BoundingBox.Vertices[1:] {
			if v.X < minX {
				minX = v.X
			}
			if v.Y < minY {
				minY = v.Y
			}
			if v.X > maxX {
				maxX = v.X
			}
			if v.Y > maxY {
				maxY = v.Y
			}
		}
		box.Frame = ocr.Rect{
			X: float64(minX) / float64(w),
			Y: float64(minY) / float64(h),
			W: float64(maxX-minX) / float64(w),
			H: float64(maxY-minY) / float64(h),
		}
	}
	return box
}
