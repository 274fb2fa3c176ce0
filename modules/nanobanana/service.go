package nanobanana

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"tryon-gateway/modules/common/asynctask"
	"tryon-gateway/modules/common/imageref"
	"tryon-gateway/modules/common/provider"
)

// 키당 429 재시도 횟수
const maxRetriesPerKey = 3

// Service - Gemini 이미지 생성 어댑터 (동기)
// 429 Rate Limit 시 여러 API 키로 순차 로테이션
type Service struct {
	creds Credentials
}

// NewService - Service 생성
func NewService(creds Credentials) *Service {
	return &Service{creds: creds}
}

func (s *Service) Name() string { return ProviderName }

func (s *Service) Requirements() provider.Requirements {
	return provider.Requirements{NeedsPrompt: true}
}

// Generate - 프롬프트 (+ 최대 2개 입력 이미지) 기반 이미지 생성
func (s *Service) Generate(ctx context.Context, req *provider.ResolvedRequest) (*asynctask.Task, error) {
	if !s.creds.Valid() {
		return nil, &asynctask.AuthenticationError{
			Provider: ProviderName,
			Reason:   "no Gemini API keys configured",
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
	aspectRatio := opts.resolveAspectRatio()
	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = 0.7
	}

	parts := []*genai.Part{
		genai.NewPartFromText(req.Prompt),
	}
	if req.Primary != nil {
		parts = append(parts, genai.NewPartFromBytes(req.Primary.Data, req.Primary.MimeType))
	}
	if req.Secondary != nil {
		parts = append(parts, genai.NewPartFromBytes(req.Secondary.Data, req.Secondary.MimeType))
	}

	contents := []*genai.Content{{Parts: parts}}
	config := &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{
			AspectRatio: aspectRatio,
		},
		Temperature: floatPtr(temperature),
	}

	log.Printf("🎨 [NanoBanana] Generating image - model: %s, ratio: %s", model, aspectRatio)

	result, err := s.generateWithRetry(ctx, model, contents, config)
	if err != nil {
		return nil, err
	}

	var refs []string
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mimeType := part.InlineData.MIMEType
				if mimeType == "" {
					mimeType = "image/png"
				}
				refs = append(refs, imageref.EncodeDataURI(mimeType, part.InlineData.Data))
			}
		}
	}
	if len(refs) == 0 {
		return nil, &asynctask.ProviderTaskFailure{
			Provider: ProviderName,
			Detail:   "no image in Gemini response",
		}
	}

	log.Printf("✅ [NanoBanana] %d image(s) generated", len(refs))
	return asynctask.Succeeded("nb-"+uuid.New().String(), refs), nil
}

// generateWithRetry - 429 에러 시 여러 API 키로 재시도
// 각 키당 최대 maxRetriesPerKey번, 429가 아닌 에러는 즉시 반환
func (s *Service) generateWithRetry(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {

	var lastErr error

	for keyIndex, apiKey := range s.creds.APIKeys {
		for attempt := 1; attempt <= maxRetriesPerKey; attempt++ {
			client, err := genai.NewClient(ctx, &genai.ClientConfig{
				APIKey:  apiKey,
				Backend: genai.BackendGeminiAPI,
			})
			if err != nil {
				log.Printf("⚠️ [NanoBanana] Failed to create client with key #%d: %v", keyIndex+1, err)
				lastErr = err
				break
			}

			result, err := client.Models.GenerateContent(ctx, model, contents, config)
			if err == nil {
				return result, nil
			}
			lastErr = err

			if !is429Error(err) {
				return nil, &asynctask.ProviderTaskFailure{
					Provider: ProviderName,
					Detail:   err.Error(),
				}
			}

			log.Printf("⚠️ [NanoBanana] Key #%d hit rate limit (attempt %d/%d)", keyIndex+1, attempt, maxRetriesPerKey)
			if attempt < maxRetriesPerKey {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(2 * time.Second):
				}
			}
		}
		log.Printf("🔑 [NanoBanana] Key #%d exhausted, trying next key...", keyIndex+1)
	}

	return nil, &asynctask.TransientNetworkError{
		Op:        "gemini generate",
		Attempts:  len(s.creds.APIKeys) * maxRetriesPerKey,
		Exhausted: true,
		Err:       fmt.Errorf("all %d API keys exhausted: %w", len(s.creds.APIKeys), lastErr),
	}
}

// is429Error - 429 Rate Limit 에러인지 확인
func is429Error(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "quota")
}

func floatPtr(f float64) *float32 {
	f32 := float32(f)
	return &f32
}
