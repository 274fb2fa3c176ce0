package kling

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"tryon-gateway/modules/common/asynctask"
	"tryon-gateway/modules/common/provider"
)

const defaultBaseURL = "https://api.klingai.com"

// Service - Kling AI 가상 피팅 어댑터 (비동기: submit → poll)
type Service struct {
	creds      Credentials
	baseURL    string
	httpClient *http.Client
}

// NewService - Service 생성 (자격증명은 생성자로 주입, 내부에서 환경변수 읽지 않음)
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

// Requirements - 인물 이미지(주) + 의상 이미지(보조) 필수, 프롬프트 없음
func (s *Service) Requirements() provider.Requirements {
	return provider.Requirements{NeedsPrimary: true, NeedsSecondary: true}
}

// generateJWT - Kling AI JWT 토큰 생성 (HS256, 30분 유효)
func (s *Service) generateJWT() (string, error) {
	if !s.creds.Valid() {
		return "", &asynctask.AuthenticationError{
			Provider: ProviderName,
			Reason:   "access key or secret key not configured",
		}
	}

	header := map[string]string{
		"alg": "HS256",
		"typ": "JWT",
	}
	headerBytes, _ := json.Marshal(header)
	headerEncoded := base64.RawURLEncoding.EncodeToString(headerBytes)

	now := time.Now().Unix()
	payload := map[string]interface{}{
		"iss": s.creds.AccessKey,
		"exp": now + 1800,
		"nbf": now - 5,
	}
	payloadBytes, _ := json.Marshal(payload)
	payloadEncoded := base64.RawURLEncoding.EncodeToString(payloadBytes)

	signatureInput := headerEncoded + "." + payloadEncoded
	h := hmac.New(sha256.New, []byte(s.creds.SecretKey))
	h.Write([]byte(signatureInput))
	signature := base64.RawURLEncoding.EncodeToString(h.Sum(nil))

	return signatureInput + "." + signature, nil
}

// Submit - 가상 피팅 작업 생성 (재시도 없음 - 제출 실패는 즉시 전파)
func (s *Service) Submit(ctx context.Context, req *provider.ResolvedRequest) (*asynctask.Task, error) {
	jwt, err := s.generateJWT()
	if err != nil {
		return nil, err
	}

	opts, _ := req.Options.(*Options)
	if opts == nil {
		opts = &Options{}
	}
	modelName := opts.ModelName
	if modelName == "" {
		modelName = DefaultModel
	}

	reqData := createTaskRequest{
		ModelName:   modelName,
		HumanImage:  base64.StdEncoding.EncodeToString(req.Primary.Data),
		ClothImage:  base64.StdEncoding.EncodeToString(req.Secondary.Data),
		CallbackURL: opts.CallbackURL,
	}

	reqBody, err := json.Marshal(reqData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST",
		s.baseURL+"/v1/images/kolors-virtual-try-on", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+jwt)

	log.Printf("🚀 [Kling] Creating virtual try-on task (model: %s)...", modelName)

	result, err := s.doRequest(httpReq)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ [Kling] Task created: %s", result.Data.TaskID)
	return asynctask.NewTask(result.Data.TaskID), nil
}

// Status - 작업 상태 조회 한 번 (재시도는 폴러가 담당)
func (s *Service) Status(ctx context.Context, taskID string) (*asynctask.Task, error) {
	jwt, err := s.generateJWT()
	if err != nil {
		return nil, err
	}

	statusURL := fmt.Sprintf("%s/v1/images/kolors-virtual-try-on/%s", s.baseURL, taskID)
	httpReq, err := http.NewRequestWithContext(ctx, "GET", statusURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+jwt)

	result, err := s.doRequest(httpReq)
	if err != nil {
		return nil, err
	}

	task := &asynctask.Task{TaskID: taskID}
	switch result.Data.TaskStatus {
	case "submitted":
		task.Status = asynctask.StatusSubmitted
	case "processing":
		task.Status = asynctask.StatusProcessing
	case "succeed":
		task.Status = asynctask.StatusSucceeded
		for _, img := range result.Data.TaskResult.Images {
			task.ResultRefs = append(task.ResultRefs, img.URL)
		}
	case "failed":
		task.Status = asynctask.StatusFailed
		task.ErrorDetail = result.Data.TaskStatusMsg
		if task.ErrorDetail == "" {
			task.ErrorDetail = result.Message
		}
	default:
		return nil, fmt.Errorf("unknown Kling task status: %q", result.Data.TaskStatus)
	}
	return task, nil
}

// doRequest - 공통 요청 실행 + 응답 파싱 + 에러 분류
func (s *Service) doRequest(req *http.Request) (*taskResponse, error) {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &asynctask.AuthenticationError{
			Provider: ProviderName,
			Reason:   fmt.Sprintf("API rejected credentials (status %d)", resp.StatusCode),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result taskResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if result.Code != 0 {
		return nil, fmt.Errorf("API error code %d: %s", result.Code, result.Message)
	}
	return &result, nil
}
