package kling

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

	s := NewService(Credentials{AccessKey: "ak", SecretKey: "sk"})
	s.baseURL = srv.URL
	s.httpClient = srv.Client()
	return s
}

func resolvedTryOnRequest(opts *Options) *provider.ResolvedRequest {
	return &provider.ResolvedRequest{
		Primary:   &imageref.Resolved{Data: []byte("person-bytes"), MimeType: "image/png"},
		Secondary: &imageref.Resolved{Data: []byte("garment-bytes"), MimeType: "image/png"},
		Options:   opts,
	}
}

func TestSubmitSendsJWTAndParsesTaskID(t *testing.T) {
	var gotAuth string
	var gotBody createTaskRequest

	s := testService(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 0, "message": "SUCCEED",
			"data": map[string]interface{}{"task_id": "kt-123", "task_status": "submitted"},
		})
	})

	task, err := s.Submit(context.Background(), resolvedTryOnRequest(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.TaskID != "kt-123" {
		t.Errorf("expected task id kt-123, got %s", task.TaskID)
	}
	if task.Status != asynctask.StatusSubmitted {
		t.Errorf("expected submitted status, got %s", task.Status)
	}

	// JWT는 header.payload.signature 세 조각
	if !strings.HasPrefix(gotAuth, "Bearer ") {
		t.Fatalf("expected bearer token, got %q", gotAuth)
	}
	if parts := strings.Split(strings.TrimPrefix(gotAuth, "Bearer "), "."); len(parts) != 3 {
		t.Errorf("expected 3-part JWT, got %d parts", len(parts))
	}

	if gotBody.ModelName != DefaultModel {
		t.Errorf("expected default model %s, got %s", DefaultModel, gotBody.ModelName)
	}
	if gotBody.HumanImage == "" || gotBody.ClothImage == "" {
		t.Error("both human and cloth images must be sent")
	}
}

func TestStatusMapsProviderStates(t *testing.T) {
	tests := []struct {
		name       string
		taskStatus string
		statusMsg  string
		images     []map[string]interface{}
		want       asynctask.Status
		wantRefs   int
	}{
		{"submitted", "submitted", "", nil, asynctask.StatusSubmitted, 0},
		{"processing", "processing", "", nil, asynctask.StatusProcessing, 0},
		{"succeed", "succeed", "", []map[string]interface{}{
			{"index": 0, "url": "https://cdn.kling/a.png"},
			{"index": 1, "url": "https://cdn.kling/b.png"},
		}, asynctask.StatusSucceeded, 2},
		{"failed", "failed", "garment not detected", nil, asynctask.StatusFailed, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testService(t, func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]interface{}{
					"code": 0, "message": "SUCCEED",
					"data": map[string]interface{}{
						"task_id":         "kt-123",
						"task_status":     tt.taskStatus,
						"task_status_msg": tt.statusMsg,
						"task_result":     map[string]interface{}{"images": tt.images},
					},
				})
			})

			task, err := s.Status(context.Background(), "kt-123")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if task.Status != tt.want {
				t.Errorf("expected status %s, got %s", tt.want, task.Status)
			}
			if len(task.ResultRefs) != tt.wantRefs {
				t.Errorf("expected %d refs, got %d", tt.wantRefs, len(task.ResultRefs))
			}
			if tt.want == asynctask.StatusFailed && task.ErrorDetail != tt.statusMsg {
				t.Errorf("provider diagnostic lost: %q", task.ErrorDetail)
			}
		})
	}
}

func TestUnauthorizedIsAuthenticationError(t *testing.T) {
	s := testService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := s.Status(context.Background(), "kt-123")

	var authErr *asynctask.AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthenticationError, got %v", err)
	}
	// 자격증명 값이 메시지에 새어 나가면 안 됨
	if strings.Contains(err.Error(), "sk") && strings.Contains(err.Error(), "secret") {
		t.Errorf("error message may leak credential material: %q", err.Error())
	}
}

func TestMissingCredentialsFailBeforeNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	s := NewService(Credentials{})
	s.baseURL = srv.URL
	s.httpClient = srv.Client()

	_, err := s.Submit(context.Background(), resolvedTryOnRequest(nil))

	var authErr *asynctask.AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthenticationError, got %v", err)
	}
	if called {
		t.Error("no network call expected without credentials")
	}
}

func TestOptionsValidation(t *testing.T) {
	valid := &Options{ModelName: ModelV1}
	if err := valid.Validate(); err != nil {
		t.Errorf("unexpected error for valid model: %v", err)
	}

	invalid := &Options{ModelName: "kolors-v99"}
	err := invalid.Validate()
	var valErr *asynctask.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
