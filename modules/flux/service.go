package flux

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"tryon-gateway/modules/common/asynctask"
	"tryon-gateway/modules/common/imageref"
	"tryon-gateway/modules/common/provider"
)

const defaultBaseURL = "https://api.bfl.ai"

// Service - Black Forest Labs FLUX 어댑터 (비동기: 제출 후 get_result 폴링)
type Service struct {
	creds      Credentials
	baseURL    string
	httpClient *http.Client
}

// NewService - Service 생성
func NewService(creds Credentials) *Service {
	return &Service{
		creds:   creds,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (s *Service) Name() string { return ProviderName }

func (s *Service) Requirements() provider.Requirements {
	return provider.Requirements{NeedsPrompt: true}
}

// Submit - 생성 태스크 제출
func (s *Service) Submit(ctx context.Context, req *provider.ResolvedRequest) (*asynctask.Task, error) {
	if !s.creds.Valid() {
		return nil, &asynctask.AuthenticationError{
			Provider: ProviderName,
			Reason:   "API key not configured",
		}
	}

	opts, _ := req.Options.(*Options)
	if opts == nil {
		opts = &Options{}
	}

	body := generateRequest{
		Prompt:           req.Prompt,
		Steps:            opts.Steps,
		Guidance:         opts.Guidance,
		Seed:             opts.Seed,
		PromptUpsampling: opts.PromptUpsampling,
	}
	if opts.Width > 0 {
		body.Width = opts.Width
	} else {
		body.Width = DefaultWidth
	}
	if opts.Height > 0 {
		body.Height = opts.Height
	} else {
		body.Height = DefaultHeight
	}
	// 이미지 입력은 선택 (image-to-image 편집)
	if req.Primary != nil {
		body.InputImage = imageref.EncodeDataURI(req.Primary.MimeType, req.Primary.Data)
	}

	log.Printf("🎨 [FLUX] Submitting generation (%dx%d)...", body.Width, body.Height)

	data, err := s.doRequest(ctx, "POST", s.baseURL+"/v1/flux-2", body)
	if err != nil {
		return nil, err
	}

	var genResp generateResponse
	if err := json.Unmarshal(data, &genResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if genResp.ID == "" {
		return nil, fmt.Errorf("API returned no task id: %s", string(data))
	}

	log.Printf("✅ [FLUX] Task submitted: %s", genResp.ID)
	return asynctask.NewTask(genResp.ID), nil
}

// Status - 태스크 상태 조회
func (s *Service) Status(ctx context.Context, taskID string) (*asynctask.Task, error) {
	endpoint := s.baseURL + "/v1/get_result?id=" + url.QueryEscape(taskID)
	data, err := s.doRequest(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}

	var result resultResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse result: %w", err)
	}

	task := &asynctask.Task{TaskID: taskID, CreatedAt: time.Now()}
	switch result.Status {
	case "Pending":
		task.Status = asynctask.StatusProcessing
	case "Ready":
		task.Status = asynctask.StatusSucceeded
		if result.Result.Sample != "" {
			task.ResultRefs = []string{result.Result.Sample}
		}
	case "Error", "Content Moderated", "Request Moderated", "Task not found":
		task.Status = asynctask.StatusFailed
		task.ErrorDetail = result.Status
		if len(result.Details) > 0 {
			if detail, err := json.Marshal(result.Details); err == nil {
				task.ErrorDetail = fmt.Sprintf("%s: %s", result.Status, string(detail))
			}
		}
	default:
		return nil, fmt.Errorf("unknown task status %q", result.Status)
	}
	return task, nil
}

// doRequest - 공통 HTTP 호출 + 에러 분류
func (s *Service) doRequest(ctx context.Context, method, endpoint string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-key", s.creds.APIKey)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, &asynctask.TransientNetworkError{
			Op:       method + " " + endpoint,
			Attempts: 1,
			Err:      err,
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &asynctask.AuthenticationError{
			Provider: ProviderName,
			Reason:   fmt.Sprintf("API rejected key (status %d)", resp.StatusCode),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}
