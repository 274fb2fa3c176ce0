package flux

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"tryon-gateway/modules/common/asynctask"
	"tryon-gateway/modules/common/provider"
)

func testService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s := NewService(Credentials{APIKey: "bfl-key"})
	s.baseURL = srv.URL
	s.httpClient = srv.Client()
	return s
}

func TestSubmitSendsKeyAndParsesID(t *testing.T) {
	var gotKey string
	var gotBody generateRequest

	s := testService(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-key")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(generateResponse{ID: "flux-42", PollingURL: "ignored"})
	})

	task, err := s.Submit(context.Background(), &provider.ResolvedRequest{Prompt: "a red coat"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != "bfl-key" {
		t.Errorf("expected x-key header, got %q", gotKey)
	}
	if gotBody.Width != DefaultWidth || gotBody.Height != DefaultHeight {
		t.Errorf("expected default dimensions, got %dx%d", gotBody.Width, gotBody.Height)
	}
	if task.TaskID != "flux-42" || task.Status != asynctask.StatusSubmitted {
		t.Errorf("unexpected task: %+v", task)
	}
}

func TestStatusMapsProviderStates(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		sample   string
		want     asynctask.Status
		wantRefs int
	}{
		{"pending", "Pending", "", asynctask.StatusProcessing, 0},
		{"ready", "Ready", "https://cdn.bfl/out.png", asynctask.StatusSucceeded, 1},
		{"error", "Error", "", asynctask.StatusFailed, 0},
		{"moderated", "Content Moderated", "", asynctask.StatusFailed, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testService(t, func(w http.ResponseWriter, r *http.Request) {
				resp := resultResponse{ID: "flux-42", Status: tt.status}
				resp.Result.Sample = tt.sample
				json.NewEncoder(w).Encode(resp)
			})

			task, err := s.Status(context.Background(), "flux-42")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if task.Status != tt.want {
				t.Errorf("expected status %s, got %s", tt.want, task.Status)
			}
			if len(task.ResultRefs) != tt.wantRefs {
				t.Errorf("expected %d refs, got %d", tt.wantRefs, len(task.ResultRefs))
			}
		})
	}
}

func TestStatusFailureKeepsDiagnostic(t *testing.T) {
	s := testService(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(resultResponse{
			ID:      "flux-42",
			Status:  "Error",
			Details: map[string]interface{}{"reason": "nsfw filter"},
		})
	})

	task, err := s.Status(context.Background(), "flux-42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.ErrorDetail == "" {
		t.Error("provider diagnostic must be preserved in ErrorDetail")
	}
}

func TestOptionsValidation(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"empty", Options{}, false},
		{"valid multiple of 32", Options{Width: 1024, Height: 768}, false},
		{"width not multiple of 32", Options{Width: 1000}, true},
		{"width too large", Options{Width: 2048}, true},
		{"steps too high", Options{Steps: 99}, true},
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
