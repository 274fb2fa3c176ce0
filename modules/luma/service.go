package luma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"tryon-gateway/modules/common/asynctask"
	"tryon-gateway/modules/common/provider"
)

const defaultBaseURL = "https://api.lumalabs.ai"

// Service - Luma Dream Machine 어댑터 (비동기 비디오 생성)
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

// Submit - 비디오 생성 태스크 제출
// Luma는 이미지 키프레임을 공개 URL로만 받음 - 바이트/파일 입력은 거부
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
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}

	body := generationRequest{
		Prompt:      req.Prompt,
		Model:       model,
		Resolution:  opts.Resolution,
		Duration:    opts.Duration,
		AspectRatio: opts.AspectRatio,
		Loop:        opts.Loop,
	}

	if req.Primary != nil {
		if req.Primary.SourceURL == "" {
			return nil, asynctask.NewValidationError("primary_input",
				"luma requires image inputs as public URLs")
		}
		body.Keyframes = map[string]keyframe{
			"frame0": {Type: "image", URL: req.Primary.SourceURL},
		}
	}
	if req.Secondary != nil {
		if req.Secondary.SourceURL == "" {
			return nil, asynctask.NewValidationError("secondary_input",
				"luma requires image inputs as public URLs")
		}
		if body.Keyframes == nil {
			body.Keyframes = map[string]keyframe{}
		}
		body.Keyframes["frame1"] = keyframe{Type: "image", URL: req.Secondary.SourceURL}
	}

	log.Printf("🎬 [Luma] Submitting generation (model: %s)...", model)

	data, err := s.doRequest(ctx, "POST", s.baseURL+"/dream-machine/v1/generations", body)
	if err != nil {
		return nil, err
	}

	var genResp generationResponse
	if err := json.Unmarshal(data, &genResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if genResp.ID == "" {
		return nil, fmt.Errorf("API returned no generation id: %s", string(data))
	}

	log.Printf("✅ [Luma] Generation submitted: %s", genResp.ID)
	return asynctask.NewTask(genResp.ID), nil
}

// Status - 생성 상태 조회
func (s *Service) Status(ctx context.Context, taskID string) (*asynctask.Task, error) {
	data, err := s.doRequest(ctx, "GET", s.baseURL+"/dream-machine/v1/generations/"+taskID, nil)
	if err != nil {
		return nil, err
	}

	var genResp generationResponse
	if err := json.Unmarshal(data, &genResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	task := &asynctask.Task{TaskID: taskID, CreatedAt: time.Now()}
	switch genResp.State {
	case "queued":
		task.Status = asynctask.StatusSubmitted
	case "dreaming":
		task.Status = asynctask.StatusProcessing
	case "completed":
		task.Status = asynctask.StatusSucceeded
		if genResp.Assets.Video != "" {
			task.ResultRefs = append(task.ResultRefs, genResp.Assets.Video)
		}
		if genResp.Assets.Image != "" {
			task.ResultRefs = append(task.ResultRefs, genResp.Assets.Image)
		}
	case "failed":
		task.Status = asynctask.StatusFailed
		task.ErrorDetail = genResp.FailureReason
	default:
		return nil, fmt.Errorf("unknown generation state %q", genResp.State)
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
	httpReq.Header.Set("Authorization", "Bearer "+s.creds.APIKey)

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
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}
