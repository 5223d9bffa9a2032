package icon

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type mockFetcher struct {
	data []byte
	err  error
	url  string
}

func (m *mockFetcher) GetImage(_ context.Context, url string) ([]byte, error) {
	m.url = url
	if m.err != nil {
		return nil, m.err
	}
	return m.data, nil
}

func samplePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode sample png: %v", err)
	}
	return buf.Bytes()
}

func TestPassthrough(t *testing.T) {
	got, err := Passthrough{}.Process(context.Background(), "https://face.example/f.jpg")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	want := Icon{URL: "https://face.example/f.jpg"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("icon mismatch (-want +got):\n%s", diff)
	}
}

func TestResizerDownscales(t *testing.T) {
	fetcher := &mockFetcher{data: samplePNG(t, 512, 512)}
	r := NewResizer(fetcher)

	got, err := r.Process(context.Background(), "https://face.example/f.png")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if diff := cmp.Diff("https://face.example/f.png", fetcher.url); diff != "" {
		t.Errorf("fetched url (-want +got):\n%s", diff)
	}
	if got.URL != "" {
		t.Errorf("resized icon should carry bytes, not a URL, got %q", got.URL)
	}

	img, err := png.Decode(bytes.NewReader(got.Data))
	if err != nil {
		t.Fatalf("decode resized icon: %v", err)
	}
	bounds := img.Bounds()
	if diff := cmp.Diff(image.Rect(0, 0, 128, 128), bounds); diff != "" {
		t.Errorf("bounds mismatch (-want +got):\n%s", diff)
	}
}

func TestResizerErrors(t *testing.T) {
	t.Run("fetch failure", func(t *testing.T) {
		r := NewResizer(&mockFetcher{err: io.ErrUnexpectedEOF})
		if _, err := r.Process(context.Background(), "https://x/f.png"); err == nil {
			t.Fatal("expected error, got nil")
		}
	})

	t.Run("undecodable payload", func(t *testing.T) {
		r := NewResizer(&mockFetcher{data: []byte("not an image")})
		if _, err := r.Process(context.Background(), "https://x/f.png"); err == nil {
			t.Fatal("expected error, got nil")
		}
	})
}
