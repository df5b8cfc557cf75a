package normalize

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/disintegration/imaging"

	"studio/internal/domain"
	"studio/internal/infra"
)

// Options configures a Normalizer.
type Options struct {
	Uploader     domain.Uploader
	HTTPClient   *http.Client
	MaxDimension int
	Logger       infra.Logger
}

// Normalizer prepares a source image for the inference provider: fetch if
// remote, downscale so the longer edge fits MaxDimension, re-encode as JPEG,
// upload, return the public URL. Every intermediate artifact is immutable and
// discarded on failure, so there is no rollback.
type Normalizer struct {
	uploader     domain.Uploader
	httpClient   *http.Client
	maxDimension int
	logger       infra.Logger
}

// New builds a Normalizer.
func New(opts Options) *Normalizer {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	max := opts.MaxDimension
	if max <= 0 {
		max = 2048
	}
	return &Normalizer{
		uploader:     opts.Uploader,
		httpClient:   client,
		maxDimension: max,
		logger:       opts.Logger,
	}
}

const jpegQuality = 85

// Normalize runs the fetch/downscale/upload pipeline sequentially. The
// context is consulted before each step; a fetch or upload failure surfaces
// as a network PreparationError, a decode failure as unsupported input.
// No job exists yet when Normalize fails.
func (n *Normalizer) Normalize(ctx context.Context, source domain.SourceAsset) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := n.fetch(ctx, source)
	if err != nil {
		return "", err
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", &domain.PreparationError{Stage: "decode", Class: domain.FailureUnsupportedInput, Err: err}
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if longer(width, height) > n.maxDimension {
		if width >= height {
			img = imaging.Resize(img, n.maxDimension, 0, imaging.Lanczos)
		} else {
			img = imaging.Resize(img, 0, n.maxDimension, imaging.Lanczos)
		}
		resized := img.Bounds()
		n.logger.Debug().
			Str("identity", source.Identity).
			Int("width", resized.Dx()).
			Int("height", resized.Dy()).
			Msg("normalize: downscaled source")
	}

	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return "", &domain.PreparationError{Stage: "encode", Class: domain.FailureUnsupportedInput, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	url, err := n.uploader.Upload(ctx, normalizedKey(source), buf.Bytes())
	if err != nil {
		return "", &domain.PreparationError{Stage: "upload", Class: domain.FailureNetwork, Err: err}
	}
	return url, nil
}

func (n *Normalizer) fetch(ctx context.Context, source domain.SourceAsset) ([]byte, error) {
	if !source.Remote() {
		data, err := os.ReadFile(source.URI)
		if err != nil {
			return nil, &domain.PreparationError{Stage: "fetch", Class: domain.FailureUnsupportedInput, Err: err}
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URI, nil)
	if err != nil {
		return nil, &domain.PreparationError{Stage: "fetch", Class: domain.FailureNetwork, Err: err}
	}
	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, &domain.PreparationError{Stage: "fetch", Class: domain.Classify(err), Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.PreparationError{
			Stage: "fetch",
			Class: domain.FailureNetwork,
			Err:   fmt.Errorf("fetch %s: status %d", source.URI, resp.StatusCode),
		}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.PreparationError{Stage: "fetch", Class: domain.FailureNetwork, Err: err}
	}
	return data, nil
}

func normalizedKey(source domain.SourceAsset) string {
	sum := sha256.Sum256([]byte(source.Identity))
	return "normalized/" + hex.EncodeToString(sum[:16]) + ".jpg"
}

func longer(w, h int) int {
	if w > h {
		return w
	}
	return h
}
