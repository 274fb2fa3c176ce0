package segmind

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"tryon-gateway/modules/common/asynctask"
	"tryon-gateway/modules/common/imageref"
	"tryon-gateway/modules/common/provider"
)

const defaultEndpoint = "https://api.segmind.com/v1/try-on-diffusion"

// Service - Segmind 가상 피팅 어댑터 (동기: 응답이 곧 이미지 바이트)
type Service struct {
	creds      Credentials
	endpoint   string
	httpClient *http.Client
}

// NewService - Service 생성
func NewService(creds Credentials) *Service {
	return &Service{
		creds:    creds,
		endpoint: defaultEndpoint,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (s *Service) Name() string { return ProviderName }

func (s *Service) Requirements() provider.Requirements {
	return provider.Requirements{NeedsPrimary: true, NeedsSecondary: true}
}

// Generate - 가상 피팅 실행 (동기 - 폴링 없이 이미지 바이트 즉시 반환)
func (s *Service) Generate(ctx context.Context, req *provider.ResolvedRequest) (*asynctask.Task, error) {
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
	steps := opts.Steps
	if steps <= 0 {
		steps = DefaultSteps
	}
	guidance := opts.GuidanceScale
	if guidance <= 0 {
		guidance = DefaultGuidance
	}

	body := tryOnRequest{
		ModelImage:     base64.StdEncoding.EncodeToString(req.Primary.Data),
		ClothImage:     base64.StdEncoding.EncodeToString(req.Secondary.Data),
		Prompt:         req.Prompt,
		NegativePrompt: opts.NegativePrompt,
		Steps:          steps,
		GuidanceScale:  guidance,
		Seed:           opts.Seed,
		Base64:         false,
	}

	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", s.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", s.creds.APIKey)

	log.Printf("🎨 [Segmind] Running try-on-diffusion (steps: %d, guidance: %.1f)", steps, guidance)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
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
		var errResp errorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			return nil, &asynctask.ProviderTaskFailure{
				Provider: ProviderName,
				Detail:   errResp.Error,
			}
		}
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	log.Printf("✅ [Segmind] Image generated: %d bytes (%s)", len(data), mimeType)

	taskID := "segmind-" + uuid.New().String()
	return asynctask.Succeeded(taskID, []string{imageref.EncodeDataURI(mimeType, data)}), nil
}
