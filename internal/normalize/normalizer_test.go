package normalize

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"studio/internal/domain"
	"studio/internal/infra"
)

type captureUploader struct {
	key  string
	data []byte
	err  error
}

func (u *captureUploader) Upload(ctx context.Context, key string, data []byte) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	u.key = key
	u.data = data
	return "https://cdn.example.com/" + key, nil
}

func testImage(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, 0, color.NRGBA{R: uint8(x), A: 255})
	}
	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, img, imaging.PNG); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func newTestNormalizer(uploader domain.Uploader, maxDim int) *Normalizer {
	return New(Options{
		Uploader:     uploader,
		MaxDimension: maxDim,
		Logger:       infra.NewLogger("test"),
	})
}

func TestNormalizeDownscalesOversizedRemote(t *testing.T) {
	payload := testImage(t, 800, 400)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer ts.Close()

	uploader := &captureUploader{}
	n := newTestNormalizer(uploader, 200)

	url, err := n.Normalize(context.Background(), domain.SourceAsset{
		Identity: "img-1",
		Location: domain.SourceRemote,
		URI:      ts.URL + "/img-1.png",
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if url == "" {
		t.Fatal("expected uploaded url")
	}

	out, err := imaging.Decode(bytes.NewReader(uploader.data))
	if err != nil {
		t.Fatalf("decode uploaded bytes: %v", err)
	}
	bounds := out.Bounds()
	if bounds.Dx() != 200 {
		t.Fatalf("longer edge should equal max dimension, got %d", bounds.Dx())
	}
	if bounds.Dy() != 100 {
		t.Fatalf("aspect ratio not preserved, got height %d", bounds.Dy())
	}
}

func TestNormalizeKeepsSmallImages(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "small.png")
	if err := os.WriteFile(path, testImage(t, 64, 32), 0o644); err != nil {
		t.Fatalf("write test file: %v", err)
	}

	uploader := &captureUploader{}
	n := newTestNormalizer(uploader, 2048)

	if _, err := n.Normalize(context.Background(), domain.SourceAsset{
		Identity: "img-2",
		Location: domain.SourceLocal,
		URI:      path,
	}); err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	out, err := imaging.Decode(bytes.NewReader(uploader.data))
	if err != nil {
		t.Fatalf("decode uploaded bytes: %v", err)
	}
	if out.Bounds().Dx() != 64 || out.Bounds().Dy() != 32 {
		t.Fatalf("small image should keep its dimensions, got %v", out.Bounds())
	}
}

func TestNormalizeFormatError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not an image"))
	}))
	defer ts.Close()

	n := newTestNormalizer(&captureUploader{}, 2048)
	_, err := n.Normalize(context.Background(), domain.SourceAsset{
		Identity: "img-3",
		Location: domain.SourceRemote,
		URI:      ts.URL,
	})
	var prep *domain.PreparationError
	if !errors.As(err, &prep) {
		t.Fatalf("expected PreparationError, got %v", err)
	}
	if prep.Class != domain.FailureUnsupportedInput {
		t.Fatalf("unexpected class: %s", prep.Class)
	}
}

func TestNormalizeFetchError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	n := newTestNormalizer(&captureUploader{}, 2048)
	_, err := n.Normalize(context.Background(), domain.SourceAsset{
		Identity: "img-4",
		Location: domain.SourceRemote,
		URI:      ts.URL,
	})
	var prep *domain.PreparationError
	if !errors.As(err, &prep) {
		t.Fatalf("expected PreparationError, got %v", err)
	}
	if prep.Class != domain.FailureNetwork {
		t.Fatalf("unexpected class: %s", prep.Class)
	}
}

func TestNormalizeCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := newTestNormalizer(&captureUploader{}, 2048)
	if _, err := n.Normalize(ctx, domain.SourceAsset{Identity: "img-5"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
