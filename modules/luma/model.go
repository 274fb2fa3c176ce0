package luma

import (
	"fmt"

	"tryon-gateway/modules/common/asynctask"
)

// ProviderName - 레지스트리/옵션 디스패치용 이름
const ProviderName = "luma"

// 모델 이름
const (
	ModelRay2     = "ray-2"
	ModelRayFlash = "ray-flash-2"
	DefaultModel  = ModelRay2
)

var allowedModels = map[string]bool{
	ModelRay2:     true,
	ModelRayFlash: true,
}

var allowedResolutions = map[string]bool{
	"540p": true, "720p": true, "1080p": true, "4k": true,
}

var allowedDurations = map[string]bool{
	"5s": true, "9s": true,
}

// Credentials - Luma API 키
type Credentials struct {
	APIKey string
}

func (c Credentials) Valid() bool { return c.APIKey != "" }

// Options - Dream Machine 비디오 생성 옵션
type Options struct {
	Model       string `json:"model,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
	Duration    string `json:"duration,omitempty"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	Loop        bool   `json:"loop,omitempty"`
}

func (o *Options) ProviderName() string { return ProviderName }

// Validate - 허용 집합 밖 값은 네트워크 호출 전에 거부
func (o *Options) Validate() error {
	if o.Model != "" && !allowedModels[o.Model] {
		return asynctask.NewValidationError("model",
			fmt.Sprintf("unknown model %q", o.Model))
	}
	if o.Resolution != "" && !allowedResolutions[o.Resolution] {
		return asynctask.NewValidationError("resolution",
			fmt.Sprintf("unknown resolution %q", o.Resolution))
	}
	if o.Duration != "" && !allowedDurations[o.Duration] {
		return asynctask.NewValidationError("duration",
			fmt.Sprintf("duration must be 5s or 9s, got %q", o.Duration))
	}
	return nil
}

// keyframe - 이미지 키프레임 (공개 URL만 허용)
type keyframe struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// generationRequest - 생성 요청
type generationRequest struct {
	Prompt      string               `json:"prompt"`
	Model       string               `json:"model"`
	Resolution  string               `json:"resolution,omitempty"`
	Duration    string               `json:"duration,omitempty"`
	AspectRatio string               `json:"aspect_ratio,omitempty"`
	Loop        bool                 `json:"loop,omitempty"`
	Keyframes   map[string]keyframe  `json:"keyframes,omitempty"`
}

// generationResponse - 생성/조회 응답
// state: queued | dreaming | completed | failed
type generationResponse struct {
	ID            string `json:"id"`
	State         string `json:"state"`
	FailureReason string `json:"failure_reason"`
	Assets        struct {
		Video string `json:"video"`
		Image string `json:"image"`
	} `json:"assets"`
}
