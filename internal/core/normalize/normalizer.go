package normalize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/agenthands/cardscan/internal/core/model"
)

// ErrDecode means the input bytes could not be parsed as an image.
var ErrDecode = errors.New("cannot decode image")

const (
	DefaultMaxWidth = 1600
	DefaultQuality  = 80
)

// Normalizer downscales and re-encodes captured card images so uploads stay
// within the inference endpoint's payload limits while keeping card text
// legible.
type Normalizer struct {
	MaxWidth int
	Quality  int
}

func New(maxWidth, quality int) *Normalizer {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Normalizer{MaxWidth: maxWidth, Quality: quality}
}

// Normalize decodes raw image bytes, scales the width down to MaxWidth if
// the source is wider (height follows proportionally, never upscaling), and
// re-encodes as JPEG.
func (n *Normalizer) Normalize(raw []byte) (model.ImagePayload, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return model.ImagePayload{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	bounds := src.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width > n.MaxWidth {
		scaled := image.NewRGBA(image.Rect(0, 0, n.MaxWidth,
			int(float64(height)*float64(n.MaxWidth)/float64(width)+0.5)))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, bounds, draw.Src, nil)
		src = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: n.Quality}); err != nil {
		return model.ImagePayload{}, fmt.Errorf("failed to encode image: %w", err)
	}

	return model.ImagePayload{MIMEType: "image/jpeg", Data: buf.Bytes()}, nil
}

// NormalizeAll normalizes a batch concurrently. Results keep the input
// order so image index alignment survives into the extraction request. One
// bad image fails the whole batch.
func (n *Normalizer) NormalizeAll(ctx context.Context, raws [][]byte) ([]model.ImagePayload, error) {
	out := make([]model.ImagePayload, len(raws))
	eg, ctx := errgroup.WithContext(ctx)

	for i, raw := range raws {
		i, raw := i, raw
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			payload, err := n.Normalize(raw)
			if err != nil {
				return fmt.Errorf("image %d: %w", i, err)
			}
			out[i] = payload
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
