package orchestrate

import (
	"bytes"
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"studio/internal/adapter/repo"
	"studio/internal/domain"
	"studio/internal/normalize"
	"studio/internal/providers/inference"
	"studio/internal/track"
)

type countingProvider struct {
	mu        sync.Mutex
	submits   int
	submitErr error
	output    string
	running   bool
}

func (p *countingProvider) Submit(ctx context.Context, req inference.SubmitRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.submits++
	if p.submitErr != nil {
		return "", p.submitErr
	}
	return "task", nil
}

func (p *countingProvider) Status(ctx context.Context, taskID string) (inference.TaskStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return inference.TaskStatus{State: inference.TaskRunning, Progress: 25}, nil
	}
	return inference.TaskStatus{State: inference.TaskSucceeded, OutputURL: p.output}, nil
}

func (p *countingProvider) submitCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.submits
}

type nullUploader struct{}

func (nullUploader) Upload(ctx context.Context, key string, data []byte) (string, error) {
	return "https://cdn.example.com/" + key, nil
}

type fixture struct {
	orchestrator *Orchestrator
	tracker      *track.Tracker
	provider     *countingProvider
	source       domain.SourceAsset
}

func newFixture(t *testing.T, provider *countingProvider) *fixture {
	t.Helper()

	img := imaging.New(1200, 1200, image.White.C)
	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, img, imaging.PNG); err != nil {
		t.Fatalf("encode fixture image: %v", err)
	}
	path := filepath.Join(t.TempDir(), "img-42.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write fixture image: %v", err)
	}

	tracker := track.New(track.Options{
		Provider:     provider,
		Logger:       zerolog.Nop(),
		PollInterval: 5 * time.Millisecond,
	})
	orchestrator := New(Options{
		Normalizer: normalize.New(normalize.Options{
			Uploader:     nullUploader{},
			MaxDimension: 2048,
			Logger:       zerolog.Nop(),
		}),
		Results:  repo.NewMemoryResultCache(),
		Tracker:  tracker,
		Logger:   zerolog.Nop(),
		HitDelay: time.Millisecond,
	})
	return &fixture{
		orchestrator: orchestrator,
		tracker:      tracker,
		provider:     provider,
		source: domain.SourceAsset{
			Identity: "img-42",
			Width:    1200,
			Height:   1200,
			Location: domain.SourceLocal,
			URI:      path,
		},
	}
}

func waitState(t *testing.T, s *Session, want State) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := s.Snapshot()
		if snap.State == want {
			return snap
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("session never reached %s, last state %s", want, s.Snapshot().State)
	return Snapshot{}
}

func TestMaskResultReusedAcrossCosmeticVariants(t *testing.T) {
	provider := &countingProvider{output: "mask-url-1"}
	f := newFixture(t, provider)

	// First pass: remove-background runs inference and caches the mask.
	s1, err := f.orchestrator.Start(domain.Operation{Kind: domain.OpRemoveBackground}, f.source)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	snap1 := waitState(t, s1, StateSuccess)
	if snap1.ResultURI != "mask-url-1" {
		t.Fatalf("unexpected result uri: %s", snap1.ResultURI)
	}
	if got := provider.submitCount(); got != 1 {
		t.Fatalf("provider called %d times, want 1", got)
	}

	// Second pass: solid white background on the same source reuses the
	// cached mask; the provider is not called again.
	s2, err := f.orchestrator.Start(domain.Operation{
		Kind:  domain.OpReplaceBackgroundSolid,
		Color: "#FFFFFF",
	}, f.source)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	snap2 := waitState(t, s2, StateSuccess)
	if got := provider.submitCount(); got != 1 {
		t.Fatalf("provider called %d times after cosmetic variant, want 1", got)
	}
	if snap2.ResultURI != "mask-url-1" {
		t.Fatalf("expected cached mask url, got %s", snap2.ResultURI)
	}
	if snap2.Display == nil || snap2.Display.Type != "solid" || snap2.Display.Color != "#FFFFFF" {
		t.Fatalf("display metadata missing the chosen color: %+v", snap2.Display)
	}
}

func TestDistinctPromptsEachCallProvider(t *testing.T) {
	provider := &countingProvider{output: "gen-url"}
	f := newFixture(t, provider)

	for _, prompt := range []string{"a beach at sunset", "a snowy mountain"} {
		s, err := f.orchestrator.Start(domain.Operation{
			Kind:   domain.OpReplaceBackgroundPrompt,
			Prompt: prompt,
		}, f.source)
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
		waitState(t, s, StateSuccess)
	}
	if got := provider.submitCount(); got != 2 {
		t.Fatalf("provider called %d times for two distinct prompts, want 2", got)
	}

	// Repeating a prompt hits the cache.
	s, err := f.orchestrator.Start(domain.Operation{
		Kind:   domain.OpReplaceBackgroundPrompt,
		Prompt: "a beach at sunset",
	}, f.source)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitState(t, s, StateSuccess)
	if got := provider.submitCount(); got != 2 {
		t.Fatalf("provider called %d times after prompt repeat, want 2", got)
	}
}

func TestErrorReturnsToFeatureSelectedOnRetry(t *testing.T) {
	provider := &countingProvider{
		output:    "out-url",
		submitErr: &domain.SubmissionError{Class: domain.FailureProviderRejected, Err: errors.New("busy")},
	}
	f := newFixture(t, provider)

	op := domain.Operation{Kind: domain.OpReplaceBackgroundSolid, Color: "#FF0000"}
	s, err := f.orchestrator.Start(op, f.source)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	snap := waitState(t, s, StateError)
	if snap.ErrorCategory == "" {
		t.Fatal("error state carries no user category")
	}
	if snap.Operation.Kind != op.Kind || snap.Operation.Color != op.Color {
		t.Fatalf("operation not preserved in error state: %+v", snap.Operation)
	}

	provider.mu.Lock()
	provider.submitErr = nil
	provider.mu.Unlock()

	if err := f.orchestrator.Retry(s.ID()); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	snap = waitState(t, s, StateSuccess)
	if snap.ResultURI != "out-url" {
		t.Fatalf("unexpected result uri after retry: %s", snap.ResultURI)
	}
}

func TestCancelledSessionIgnoresLateCompletion(t *testing.T) {
	provider := &countingProvider{output: "late-url", running: true}
	f := newFixture(t, provider)

	s, err := f.orchestrator.Start(domain.Operation{Kind: domain.OpEnhance}, f.source)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitState(t, s, StateProcessing)

	if err := f.orchestrator.Cancel(s.ID()); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	waitState(t, s, StateCancelled)

	// A push completion arriving after cancellation must be dropped.
	_ = f.tracker.HandlePush(correlationOf(t, s), true, "late-url", "")

	time.Sleep(20 * time.Millisecond)
	if got := s.Snapshot().State; got != StateCancelled {
		t.Fatalf("session left Cancelled after late completion: %s", got)
	}
}

func correlationOf(t *testing.T, s *Session) string {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		job := s.job
		s.mu.Unlock()
		if job != nil {
			return job.CorrelationID()
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("session never attached a job")
	return ""
}

func TestApplyReturnsHome(t *testing.T) {
	provider := &countingProvider{output: "out"}
	f := newFixture(t, provider)

	s, err := f.orchestrator.Start(domain.Operation{Kind: domain.OpEnhance}, f.source)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitState(t, s, StateSuccess)

	if err := f.orchestrator.Apply(s.ID()); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := s.Snapshot().State; got != StateHome {
		t.Fatalf("unexpected state after apply: %s", got)
	}
	if err := f.orchestrator.Apply(s.ID()); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on second apply, got %v", err)
	}
}

func TestStartRejectsInvalidOperation(t *testing.T) {
	f := newFixture(t, &countingProvider{output: "out"})
	if _, err := f.orchestrator.Start(domain.Operation{Kind: domain.OpReplaceBackgroundSolid}, f.source); err == nil {
		t.Fatal("expected validation error for solid replacement without color")
	}
}
