package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tryon-gateway/modules/common/asynctask"
	"tryon-gateway/modules/common/imageref"
	"tryon-gateway/modules/common/resolver"
)

func pngFixture(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}
	return buf.Bytes()
}

// fakeSync - 동기 프로바이더 페이크 (인라인 data: 결과)
type fakeSync struct {
	name      string
	reqs      Requirements
	calls     int
	resultRef string
	err       error
}

func (f *fakeSync) Name() string               { return f.name }
func (f *fakeSync) Requirements() Requirements { return f.reqs }
func (f *fakeSync) Generate(ctx context.Context, req *ResolvedRequest) (*asynctask.Task, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return asynctask.Succeeded("sync-1", []string{f.resultRef}), nil
}

// fakeAsync - 비동기 프로바이더 페이크
type fakeAsync struct {
	name        string
	reqs        Requirements
	submitCalls int
	statusCalls int
	statuses    []*asynctask.Task
}

func (f *fakeAsync) Name() string               { return f.name }
func (f *fakeAsync) Requirements() Requirements { return f.reqs }
func (f *fakeAsync) Submit(ctx context.Context, req *ResolvedRequest) (*asynctask.Task, error) {
	f.submitCalls++
	return asynctask.NewTask("async-1"), nil
}
func (f *fakeAsync) Status(ctx context.Context, taskID string) (*asynctask.Task, error) {
	idx := f.statusCalls
	f.statusCalls++
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	return f.statuses[idx], nil
}

// fakeOptions - 옵션 태그드 유니온 페이크
type fakeOptions struct {
	provider string
	valErr   error
}

func (o *fakeOptions) ProviderName() string { return o.provider }
func (o *fakeOptions) Validate() error      { return o.valErr }

func testPipeline() *Pipeline {
	pl := NewPipeline()
	pl.Poller = &asynctask.Poller{
		Interval:      time.Millisecond,
		MaxWait:       time.Second,
		StatusRetries: 2,
		RetryBackoff:  time.Millisecond,
	}
	return pl
}

func artifactServer(t *testing.T, data []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
	}))
}

func TestGenerateAndDecodeSyncProvider(t *testing.T) {
	data := pngFixture(t)
	p := &fakeSync{
		name:      "fake-sync",
		reqs:      Requirements{NeedsPrompt: true},
		resultRef: resolver.DataURI("image/png", data),
	}
	pl := testPipeline()

	artifacts, err := pl.GenerateAndDecode(context.Background(), p, &Request{Prompt: "a red dress"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(artifacts) == 0 {
		t.Fatal("expected non-empty artifact list on success")
	}
	if !bytes.Equal(artifacts[0].Data, data) {
		t.Error("artifact bytes differ from provider output")
	}
}

func TestGenerateAndDecodeAsyncSucceedsOnFirstPoll(t *testing.T) {
	data := pngFixture(t)
	srv := artifactServer(t, data)
	defer srv.Close()

	p := &fakeAsync{
		name: "fake-async",
		reqs: Requirements{NeedsPrompt: true},
		statuses: []*asynctask.Task{
			{Status: asynctask.StatusSucceeded, ResultRefs: []string{srv.URL + "/a.png"}},
		},
	}
	pl := testPipeline()

	artifacts, err := pl.GenerateAndDecode(context.Background(), p, &Request{Prompt: "spin"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(artifacts) != 1 {
		t.Fatalf("expected 1 artifact, got %d", len(artifacts))
	}
	if p.statusCalls != 1 {
		t.Errorf("poll loop should have executed exactly once, got %d status calls", p.statusCalls)
	}
}

func TestGenerateAndDecodeMissingPrimaryInputFailsBeforeNetwork(t *testing.T) {
	p := &fakeAsync{
		name: "fake-tryon",
		reqs: Requirements{NeedsPrimary: true, NeedsSecondary: true},
		statuses: []*asynctask.Task{
			{Status: asynctask.StatusSucceeded},
		},
	}
	pl := testPipeline()

	garment := imageref.FromBytes(pngFixture(t))
	_, err := pl.GenerateAndDecode(context.Background(), p, &Request{SecondaryInput: &garment})

	var valErr *asynctask.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if valErr.Field != "primary_input" {
		t.Errorf("expected field primary_input, got %q", valErr.Field)
	}
	if p.submitCalls != 0 || p.statusCalls != 0 {
		t.Errorf("no transport calls expected before validation passes, got submit=%d status=%d",
			p.submitCalls, p.statusCalls)
	}
}

func TestGenerateAndDecodeAsyncTimeout(t *testing.T) {
	p := &fakeAsync{
		name: "fake-slow",
		statuses: []*asynctask.Task{
			{Status: asynctask.StatusProcessing},
		},
	}
	pl := testPipeline()
	pl.Poller.Interval = 5 * time.Millisecond
	pl.Poller.MaxWait = 25 * time.Millisecond

	_, err := pl.GenerateAndDecode(context.Background(), p, &Request{Prompt: "forever"})

	var timeoutErr *asynctask.TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
}

func TestGenerateAndDecodeProviderFailureCarriesName(t *testing.T) {
	p := &fakeAsync{
		name: "fake-flaky",
		statuses: []*asynctask.Task{
			{Status: asynctask.StatusFailed, ErrorDetail: "safety filter triggered"},
		},
	}
	pl := testPipeline()

	_, err := pl.GenerateAndDecode(context.Background(), p, &Request{Prompt: "x"})

	var taskErr *asynctask.ProviderTaskFailure
	if !errors.As(err, &taskErr) {
		t.Fatalf("expected ProviderTaskFailure, got %v", err)
	}
	if taskErr.Provider != "fake-flaky" {
		t.Errorf("expected provider name on failure, got %q", taskErr.Provider)
	}
}

func TestGenerateAndDecodeOptionsMismatch(t *testing.T) {
	p := &fakeSync{name: "fake-sync", resultRef: "data:image/png;base64,"}
	pl := testPipeline()

	_, err := pl.GenerateAndDecode(context.Background(), p, &Request{
		Options: &fakeOptions{provider: "other-provider"},
	})

	var valErr *asynctask.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if p.calls != 0 {
		t.Error("provider must not be called with mismatched options")
	}
}

func TestGenerateAndDecodeOptionValidationRunsBeforeCall(t *testing.T) {
	p := &fakeSync{name: "fake-sync", resultRef: "data:image/png;base64,"}
	pl := testPipeline()

	wantErr := asynctask.NewValidationError("steps", "must be between 1 and 100")
	_, err := pl.GenerateAndDecode(context.Background(), p, &Request{
		Options: &fakeOptions{provider: "fake-sync", valErr: wantErr},
	})

	if !errors.Is(err, wantErr) {
		var valErr *asynctask.ValidationError
		if !errors.As(err, &valErr) {
			t.Fatalf("expected option validation error, got %v", err)
		}
	}
	if p.calls != 0 {
		t.Error("provider must not be called when options are invalid")
	}
}

func TestRegistryDispatch(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeSync{name: "kling"})
	reg.Register(&fakeSync{name: "segmind"})

	if _, err := reg.Get("kling"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := reg.Get("sora"); err == nil {
		t.Fatal("expected error for unknown provider")
	}

	names := reg.Names()
	want := fmt.Sprintf("%v", []string{"kling", "segmind"})
	if fmt.Sprintf("%v", names) != want {
		t.Errorf("expected sorted names %s, got %v", want, names)
	}
}
