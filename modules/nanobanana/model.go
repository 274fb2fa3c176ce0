package nanobanana

import (
	"fmt"

	"tryon-gateway/modules/common/asynctask"
)

// ProviderName - 레지스트리/옵션 디스패치용 이름
const ProviderName = "nanobanana"

// DefaultModel - 기본 Gemini 이미지 모델
const DefaultModel = "gemini-2.5-flash-image"

var allowedAspectRatios = map[string]bool{
	"1:1": true, "4:3": true, "3:4": true, "16:9": true, "9:16": true,
}

// Credentials - Gemini API 키 목록 (429 시 순차 로테이션)
type Credentials struct {
	APIKeys []string
}

func (c Credentials) Valid() bool { return len(c.APIKeys) > 0 }

// Options - Nano Banana 생성 옵션
type Options struct {
	Model       string  `json:"model,omitempty"`
	Width       int     `json:"width,omitempty"`
	Height      int     `json:"height,omitempty"`
	AspectRatio string  `json:"aspect_ratio,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

func (o *Options) ProviderName() string { return ProviderName }

// Validate - 허용 집합/범위 밖 값은 네트워크 호출 전에 거부
func (o *Options) Validate() error {
	if o.AspectRatio != "" && !allowedAspectRatios[o.AspectRatio] {
		return asynctask.NewValidationError("aspect_ratio",
			fmt.Sprintf("unknown aspect ratio %q", o.AspectRatio))
	}
	if o.Temperature < 0 || o.Temperature > 2 {
		return asynctask.NewValidationError("temperature",
			fmt.Sprintf("must be between 0 and 2, got %.2f", o.Temperature))
	}
	if o.Width < 0 || o.Height < 0 {
		return asynctask.NewValidationError("width", "dimensions must be positive")
	}
	return nil
}

// resolveAspectRatio - 명시 비율이 없으면 width/height에서 유도
func (o *Options) resolveAspectRatio() string {
	if o.AspectRatio != "" {
		return o.AspectRatio
	}
	width, height := o.Width, o.Height
	if width <= 0 {
		width = 512
	}
	if height <= 0 {
		height = 512
	}
	if width > height {
		if float64(width)/float64(height) >= 1.7 {
			return "16:9"
		}
		return "4:3"
	}
	if height > width {
		if float64(height)/float64(width) >= 1.7 {
			return "9:16"
		}
		return "3:4"
	}
	return "1:1"
}
