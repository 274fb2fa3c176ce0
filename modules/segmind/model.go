package segmind

import (
	"fmt"

	"tryon-gateway/modules/common/asynctask"
)

// ProviderName - 레지스트리/옵션 디스패치용 이름
const ProviderName = "segmind"

// 기본값 및 허용 범위
const (
	DefaultSteps    = 25
	DefaultGuidance = 7.5

	MinSteps    = 1
	MaxSteps    = 100
	MinGuidance = 1.0
	MaxGuidance = 25.0
)

// Credentials - Segmind API 키
type Credentials struct {
	APIKey string
}

func (c Credentials) Valid() bool { return c.APIKey != "" }

// Options - Segmind try-on-diffusion 옵션
type Options struct {
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	Steps          int     `json:"num_inference_steps,omitempty"`
	GuidanceScale  float64 `json:"guidance_scale,omitempty"`
	Seed           int64   `json:"seed,omitempty"`
}

func (o *Options) ProviderName() string { return ProviderName }

// Validate - 범위 밖 값은 네트워크 호출 전에 거부
func (o *Options) Validate() error {
	if o.Steps != 0 && (o.Steps < MinSteps || o.Steps > MaxSteps) {
		return asynctask.NewValidationError("num_inference_steps",
			fmt.Sprintf("must be between %d and %d, got %d", MinSteps, MaxSteps, o.Steps))
	}
	if o.GuidanceScale != 0 && (o.GuidanceScale < MinGuidance || o.GuidanceScale > MaxGuidance) {
		return asynctask.NewValidationError("guidance_scale",
			fmt.Sprintf("must be between %.1f and %.1f, got %.2f", MinGuidance, MaxGuidance, o.GuidanceScale))
	}
	return nil
}

// tryOnRequest - Segmind API 요청
type tryOnRequest struct {
	ModelImage     string  `json:"model_image"`
	ClothImage     string  `json:"cloth_image"`
	Prompt         string  `json:"prompt,omitempty"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	Steps          int     `json:"num_inference_steps"`
	GuidanceScale  float64 `json:"guidance_scale"`
	Seed           int64   `json:"seed,omitempty"`
	Base64         bool    `json:"base64"`
}

// errorResponse - Segmind 에러 응답 (JSON)
type errorResponse struct {
	Error string `json:"error"`
}
