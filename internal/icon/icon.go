// Package icon prepares broadcaster avatars for notification messages.
package icon

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif" // avatar format registration
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

const size = 128

// Icon is a prepared avatar: either downscaled PNG bytes or, for the
// passthrough strategy, the original URL.
type Icon struct {
	URL  string
	Data []byte
}

// Processor turns an avatar URL into a deliverable Icon. Implementations
// are selected once from configuration; callers degrade to the raw URL
// when processing fails.
type Processor interface {
	Process(ctx context.Context, url string) (Icon, error)
}

// Passthrough hands the avatar URL through untouched.
type Passthrough struct{}

// Process returns the URL as-is.
func (Passthrough) Process(_ context.Context, url string) (Icon, error) {
	return Icon{URL: url}, nil
}

// ImageFetcher downloads raw image bytes.
type ImageFetcher interface {
	GetImage(ctx context.Context, url string) ([]byte, error)
}

// Resizer downloads the avatar and downscales it to a small square PNG,
// so chat platforms do not render full-size avatars inline.
type Resizer struct {
	fetcher ImageFetcher
}

// NewResizer creates a Resizer downloading through fetcher.
func NewResizer(fetcher ImageFetcher) *Resizer {
	return &Resizer{fetcher: fetcher}
}

// Process fetches, downscales and re-encodes the avatar.
func (r *Resizer) Process(ctx context.Context, url string) (Icon, error) {
	data, err := r.fetcher.GetImage(ctx, url)
	if err != nil {
		return Icon{}, fmt.Errorf("fetch icon: %w", err)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Icon{}, fmt.Errorf("decode icon: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return Icon{}, fmt.Errorf("encode icon: %w", err)
	}
	return Icon{Data: buf.Bytes()}, nil
}
