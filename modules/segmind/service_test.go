package segmind

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tryon-gateway/modules/common/asynctask"
	"tryon-gateway/modules/common/imageref"
	"tryon-gateway/modules/common/provider"
)

func testService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s := NewService(Credentials{APIKey: "seg-key"})
	s.endpoint = srv.URL
	s.httpClient = srv.Client()
	return s
}

func tryOnRequestFixture(opts *Options) *provider.ResolvedRequest {
	return &provider.ResolvedRequest{
		Primary:   &imageref.Resolved{Data: []byte("model-bytes"), MimeType: "image/png"},
		Secondary: &imageref.Resolved{Data: []byte("cloth-bytes"), MimeType: "image/png"},
		Options:   opts,
	}
}

func TestGenerateReturnsInlineDataRef(t *testing.T) {
	imageBytes := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 1, 2, 3}

	var gotKey string
	var gotBody tryOnRequest
	s := testService(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "image/png")
		w.Write(imageBytes)
	})

	task, err := s.Generate(context.Background(), tryOnRequestFixture(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotKey != "seg-key" {
		t.Errorf("expected x-api-key header, got %q", gotKey)
	}
	if gotBody.Steps != DefaultSteps {
		t.Errorf("expected default steps %d, got %d", DefaultSteps, gotBody.Steps)
	}
	if task.Status != asynctask.StatusSucceeded {
		t.Fatalf("sync provider must return succeeded, got %s", task.Status)
	}
	if len(task.ResultRefs) != 1 || !strings.HasPrefix(task.ResultRefs[0], "data:image/png;base64,") {
		t.Errorf("expected single data: ref, got %v", task.ResultRefs)
	}
}

func TestGenerateUnauthorized(t *testing.T) {
	s := testService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := s.Generate(context.Background(), tryOnRequestFixture(nil))

	var authErr *asynctask.AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthenticationError, got %v", err)
	}
}

func TestGenerateProviderError(t *testing.T) {
	s := testService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(errorResponse{Error: "cloth image could not be segmented"})
	})

	_, err := s.Generate(context.Background(), tryOnRequestFixture(nil))

	var taskErr *asynctask.ProviderTaskFailure
	if !errors.As(err, &taskErr) {
		t.Fatalf("expected ProviderTaskFailure, got %v", err)
	}
	if !strings.Contains(taskErr.Detail, "segmented") {
		t.Errorf("provider diagnostic lost: %q", taskErr.Detail)
	}
}

func TestOptionsRangeValidation(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"defaults valid", Options{}, false},
		{"steps in range", Options{Steps: 50}, false},
		{"steps too high", Options{Steps: 101}, true},
		{"guidance too low", Options{GuidanceScale: 0.5}, true},
		{"guidance in range", Options{GuidanceScale: 7.5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr {
				var valErr *asynctask.ValidationError
				if !errors.As(err, &valErr) {
					t.Errorf("expected ValidationError, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
