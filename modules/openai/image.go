package openai

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

// ImageService - GPT-Image 생성 어댑터 (동기: 응답에 b64_json 포함)
type ImageService struct {
	creds      Credentials
	baseURL    string
	httpClient *http.Client
}

// NewImageService - ImageService 생성
func NewImageService(creds Credentials) *ImageService {
	return &ImageService{
		creds:   creds,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (s *ImageService) Name() string { return ImageProviderName }

func (s *ImageService) Requirements() provider.Requirements {
	return provider.Requirements{NeedsPrompt: true}
}

// Generate - 이미지 생성 (동기)
func (s *ImageService) Generate(ctx context.Context, req *provider.ResolvedRequest) (*asynctask.Task, error) {
	if !s.creds.Valid() {
		return nil, &asynctask.AuthenticationError{
			Provider: ImageProviderName,
			Reason:   "API key not configured",
		}
	}

	opts, _ := req.Options.(*ImageOptions)
	if opts == nil {
		opts = &ImageOptions{}
	}

	payload := map[string]interface{}{
		"model":  DefaultImageModel,
		"prompt": req.Prompt,
	}
	if opts.Size != "" {
		payload["size"] = opts.Size
	}
	if opts.Quality != "" {
		payload["quality"] = opts.Quality
	}
	if opts.N > 0 {
		payload["n"] = opts.N
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/v1/images/generations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.creds.APIKey)

	log.Printf("🎨 [GPT-Image] Generating image (model: %s)...", DefaultImageModel)

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
			Provider: ImageProviderName,
			Reason:   fmt.Sprintf("API rejected key (status %d)", resp.StatusCode),
		}
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, &asynctask.ProviderTaskFailure{
				Provider: ImageProviderName,
				Detail:   apiErr.Error.Message,
			}
		}
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
	}

	var imgResp imageResponse
	if err := json.Unmarshal(data, &imgResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(imgResp.Data) == 0 {
		return nil, &asynctask.ProviderTaskFailure{
			Provider: ImageProviderName,
			Detail:   "no images in response",
		}
	}

	refs := make([]string, 0, len(imgResp.Data))
	for _, item := range imgResp.Data {
		decoded, err := base64.StdEncoding.DecodeString(item.B64JSON)
		if err != nil {
			return nil, &asynctask.DecodeError{MimeType: "image/png", Err: err}
		}
		refs = append(refs, imageref.EncodeDataURI("image/png", decoded))
	}

	log.Printf("✅ [GPT-Image] %d image(s) generated", len(refs))
	return asynctask.Succeeded("gptimage-"+uuid.New().String(), refs), nil
}
