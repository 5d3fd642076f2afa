// Package ocr turns screenshots into extraction input using Tesseract.
package ocr

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/rustyeddy/tradebook/extract"
	"github.com/rustyeddy/tradebook/logger"
	"github.com/rustyeddy/tradebook/ocr/prep"
)

// Recognizer produces the text and word layout of an image.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (extract.Page, error)
}

type Options struct {
	Languages []string
	// FallbackLanguages produce Page.AltText. Empty, or equal to
	// Languages, disables the second run.
	FallbackLanguages []string
	TessdataPrefix    string
	Prep              prep.Options
}

var DefaultOptions = Options{
	Languages:         []string{"chi_sim", "eng"},
	FallbackLanguages: []string{"eng"},
	Prep:              prep.Default,
}

// Client runs Tesseract once per language set. A fresh gosseract client
// is created per call so Client is safe for concurrent use.
type Client struct {
	opts Options
}

func New(opts Options) *Client {
	if len(opts.Languages) == 0 {
		opts.Languages = DefaultOptions.Languages
	}
	return &Client{opts: opts}
}

func (c *Client) Recognize(ctx context.Context, image []byte) (extract.Page, error) {
	ctx, span := logger.StartSpan(ctx, "ocr.Recognize")
	defer span.End()

	img, err := prep.Prepare(image, c.opts.Prep)
	if err != nil {
		return extract.Page{}, fmt.Errorf("prepare image: %w", err)
	}

	text, boxes, err := c.run(img, c.opts.Languages, true)
	if err != nil {
		return extract.Page{}, err
	}
	page := extract.Page{Text: text, Words: Words(boxes)}

	if len(c.opts.FallbackLanguages) > 0 && !slices.Equal(c.opts.FallbackLanguages, c.opts.Languages) {
		alt, _, err := c.run(img, c.opts.FallbackLanguages, false)
		if err != nil {
			logger.Warn(ctx, "fallback recognition failed", "languages", c.opts.FallbackLanguages, "error", err)
		} else {
			page.AltText = alt
		}
	}

	logger.Debug(ctx, "recognized image", "chars", len([]rune(page.Text)), "words", len(page.Words))
	return page, nil
}

func (c *Client) run(img []byte, langs []string, withBoxes bool) (string, []gosseract.BoundingBox, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if c.opts.TessdataPrefix != "" {
		client.SetTessdataPrefix(c.opts.TessdataPrefix)
	}
	if err := client.SetLanguage(langs...); err != nil {
		return "", nil, fmt.Errorf("set language %s: %w", strings.Join(langs, "+"), err)
	}
	if err := client.SetImageFromBytes(img); err != nil {
		return "", nil, fmt.Errorf("set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", nil, fmt.Errorf("extract text: %w", err)
	}
	if !withBoxes {
		return text, nil, nil
	}

	boxes, err := client.GetBoundingBoxesVerbose()
	if err != nil {
		return "", nil, fmt.Errorf("word boxes: %w", err)
	}
	return text, boxes, nil
}

// Words converts Tesseract word boxes, dropping blank ones.
func Words(boxes []gosseract.BoundingBox) []extract.Word {
	words := make([]extract.Word, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		words = append(words, extract.Word{
			Text:   text,
			Left:   b.Box.Min.X,
			Top:    b.Box.Min.Y,
			Width:  b.Box.Dx(),
			Height: b.Box.Dy(),
			Block:  b.BlockNum,
			Par:    b.ParNum,
			Line:   b.LineNum,
		})
	}
	return words
}
