package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"time"

	"tryon-gateway/modules/common/asynctask"
	"tryon-gateway/modules/common/imageref"
	"tryon-gateway/modules/common/provider"
)

const defaultBaseURL = "https://api.openai.com"

// SoraService - Sora 비디오 생성 어댑터 (비동기)
// 결과 바이트는 인증이 필요한 /content 엔드포인트에 있으므로
// 완료 시점에 직접 내려받아 data: 참조로 변환
type SoraService struct {
	creds      Credentials
	baseURL    string
	httpClient *http.Client
}

// NewSoraService - SoraService 생성
func NewSoraService(creds Credentials) *SoraService {
	return &SoraService{
		creds:   creds,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (s *SoraService) Name() string { return SoraProviderName }

func (s *SoraService) Requirements() provider.Requirements {
	return provider.Requirements{NeedsPrompt: true}
}

// Submit - 비디오 생성 태스크 제출 (multipart - 참조 이미지 첨부 가능)
func (s *SoraService) Submit(ctx context.Context, req *provider.ResolvedRequest) (*asynctask.Task, error) {
	if !s.creds.Valid() {
		return nil, &asynctask.AuthenticationError{
			Provider: SoraProviderName,
			Reason:   "API key not configured",
		}
	}

	opts, _ := req.Options.(*SoraOptions)
	if opts == nil {
		opts = &SoraOptions{}
	}
	model := opts.Model
	if model == "" {
		model = DefaultSoraModel
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("prompt", req.Prompt)
	mw.WriteField("model", model)
	if opts.Size != "" {
		mw.WriteField("size", opts.Size)
	}
	if opts.Seconds != "" {
		mw.WriteField("seconds", opts.Seconds)
	}
	if req.Primary != nil {
		part, err := mw.CreateFormFile("input_reference", "reference.png")
		if err != nil {
			return nil, fmt.Errorf("failed to build multipart body: %w", err)
		}
		if _, err := part.Write(req.Primary.Data); err != nil {
			return nil, fmt.Errorf("failed to build multipart body: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/v1/videos", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+s.creds.APIKey)

	log.Printf("🎬 [Sora] Submitting video generation (model: %s)...", model)

	data, err := s.send(httpReq)
	if err != nil {
		return nil, err
	}

	var video videoResponse
	if err := json.Unmarshal(data, &video); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if video.ID == "" {
		return nil, fmt.Errorf("API returned no video id: %s", string(data))
	}

	log.Printf("✅ [Sora] Video task submitted: %s", video.ID)
	return asynctask.NewTask(video.ID), nil
}

// Status - 태스크 상태 조회, 완료 시 결과 바이트까지 내려받음
func (s *SoraService) Status(ctx context.Context, taskID string) (*asynctask.Task, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/v1/videos/"+taskID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.creds.APIKey)

	data, err := s.send(httpReq)
	if err != nil {
		return nil, err
	}

	var video videoResponse
	if err := json.Unmarshal(data, &video); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	task := &asynctask.Task{TaskID: taskID, CreatedAt: time.Now()}
	switch video.Status {
	case "queued":
		task.Status = asynctask.StatusSubmitted
	case "in_progress":
		task.Status = asynctask.StatusProcessing
	case "completed":
		task.Status = asynctask.StatusSucceeded
		content, err := s.downloadContent(ctx, taskID)
		if err != nil {
			return nil, err
		}
		task.ResultRefs = []string{imageref.EncodeDataURI("video/mp4", content)}
	case "failed":
		task.Status = asynctask.StatusFailed
		if video.Error != nil {
			task.ErrorDetail = video.Error.Message
		}
	default:
		return nil, fmt.Errorf("unknown video status %q", video.Status)
	}
	return task, nil
}

// downloadContent - 완료된 비디오 바이트 다운로드 (인증 필요)
func (s *SoraService) downloadContent(ctx context.Context, taskID string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/v1/videos/"+taskID+"/content", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.creds.APIKey)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, &asynctask.TransientNetworkError{
			Op:       "GET " + taskID + "/content",
			Attempts: 1,
			Err:      err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("content download returned status %d: %s", resp.StatusCode, string(body))
	}
	return io.ReadAll(resp.Body)
}

// send - 공통 응답 처리 + 에러 분류
func (s *SoraService) send(httpReq *http.Request) ([]byte, error) {
	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, &asynctask.TransientNetworkError{
			Op:       httpReq.Method + " " + httpReq.URL.Path,
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
			Provider: SoraProviderName,
			Reason:   fmt.Sprintf("API rejected key (status %d)", resp.StatusCode),
		}
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}
