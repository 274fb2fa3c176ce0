package openai

import (
	"fmt"

	"tryon-gateway/modules/common/asynctask"
)

// 레지스트리/옵션 디스패치용 이름 (한 API 키로 두 프로바이더)
const (
	SoraProviderName  = "sora"
	ImageProviderName = "gpt-image"
)

// 모델 이름
const (
	ModelSora2        = "sora-2"
	ModelSora2Pro     = "sora-2-pro"
	DefaultSoraModel  = ModelSora2
	DefaultImageModel = "gpt-image-1"
)

var allowedSoraModels = map[string]bool{
	ModelSora2:    true,
	ModelSora2Pro: true,
}

var allowedSoraSizes = map[string]bool{
	"720x1280": true, "1280x720": true, "1024x1792": true, "1792x1024": true,
}

var allowedImageSizes = map[string]bool{
	"1024x1024": true, "1536x1024": true, "1024x1536": true, "auto": true,
}

var allowedImageQualities = map[string]bool{
	"low": true, "medium": true, "high": true, "auto": true,
}

// Credentials - OpenAI API 키 (Sora와 GPT-Image 공용)
type Credentials struct {
	APIKey string
}

func (c Credentials) Valid() bool { return c.APIKey != "" }

// SoraOptions - Sora 비디오 생성 옵션
type SoraOptions struct {
	Model   string `json:"model,omitempty"`
	Size    string `json:"size,omitempty"`
	Seconds string `json:"seconds,omitempty"` // "4" | "8" | "12"
}

func (o *SoraOptions) ProviderName() string { return SoraProviderName }

// Validate - 허용 집합 밖 값은 네트워크 호출 전에 거부
func (o *SoraOptions) Validate() error {
	if o.Model != "" && !allowedSoraModels[o.Model] {
		return asynctask.NewValidationError("model",
			fmt.Sprintf("unknown model %q", o.Model))
	}
	if o.Size != "" && !allowedSoraSizes[o.Size] {
		return asynctask.NewValidationError("size",
			fmt.Sprintf("unknown size %q", o.Size))
	}
	switch o.Seconds {
	case "", "4", "8", "12":
	default:
		return asynctask.NewValidationError("seconds",
			fmt.Sprintf("must be 4, 8 or 12, got %q", o.Seconds))
	}
	return nil
}

// ImageOptions - GPT-Image 생성 옵션
type ImageOptions struct {
	Size    string `json:"size,omitempty"`
	Quality string `json:"quality,omitempty"`
	N       int    `json:"n,omitempty"`
}

func (o *ImageOptions) ProviderName() string { return ImageProviderName }

// Validate - 허용 집합 밖 값은 네트워크 호출 전에 거부
func (o *ImageOptions) Validate() error {
	if o.Size != "" && !allowedImageSizes[o.Size] {
		return asynctask.NewValidationError("size",
			fmt.Sprintf("unknown size %q", o.Size))
	}
	if o.Quality != "" && !allowedImageQualities[o.Quality] {
		return asynctask.NewValidationError("quality",
			fmt.Sprintf("unknown quality %q", o.Quality))
	}
	if o.N < 0 || o.N > 10 {
		return asynctask.NewValidationError("n",
			fmt.Sprintf("must be between 1 and 10, got %d", o.N))
	}
	return nil
}

// videoResponse - /v1/videos 생성/조회 응답
// status: queued | in_progress | completed | failed
type videoResponse struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Error    *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// imageResponse - /v1/images/generations 응답
type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// apiError - OpenAI 표준 에러 바디
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
