package flux

import (
	"fmt"

	"tryon-gateway/modules/common/asynctask"
)

// ProviderName - 레지스트리/옵션 디스패치용 이름
const ProviderName = "flux"

// 기본값 및 허용 범위 (BFL 문서 기준)
const (
	DefaultWidth  = 1024
	DefaultHeight = 1024

	MinDimension = 256
	MaxDimension = 1440
	MaxSteps     = 50
)

// Credentials - BFL API 키
type Credentials struct {
	APIKey string
}

func (c Credentials) Valid() bool { return c.APIKey != "" }

// Options - FLUX 생성 옵션
type Options struct {
	Width            int     `json:"width,omitempty"`
	Height           int     `json:"height,omitempty"`
	Steps            int     `json:"steps,omitempty"`
	Guidance         float64 `json:"guidance,omitempty"`
	Seed             int64   `json:"seed,omitempty"`
	PromptUpsampling bool    `json:"prompt_upsampling,omitempty"`
}

func (o *Options) ProviderName() string { return ProviderName }

// Validate - 치수는 32의 배수, 범위 밖 값은 네트워크 호출 전에 거부
func (o *Options) Validate() error {
	if o.Width != 0 {
		if o.Width%32 != 0 {
			return asynctask.NewValidationError("width",
				fmt.Sprintf("must be a multiple of 32, got %d", o.Width))
		}
		if o.Width < MinDimension || o.Width > MaxDimension {
			return asynctask.NewValidationError("width",
				fmt.Sprintf("must be between %d and %d, got %d", MinDimension, MaxDimension, o.Width))
		}
	}
	if o.Height != 0 {
		if o.Height%32 != 0 {
			return asynctask.NewValidationError("height",
				fmt.Sprintf("must be a multiple of 32, got %d", o.Height))
		}
		if o.Height < MinDimension || o.Height > MaxDimension {
			return asynctask.NewValidationError("height",
				fmt.Sprintf("must be between %d and %d, got %d", MinDimension, MaxDimension, o.Height))
		}
	}
	if o.Steps < 0 || o.Steps > MaxSteps {
		return asynctask.NewValidationError("steps",
			fmt.Sprintf("must be between 1 and %d, got %d", MaxSteps, o.Steps))
	}
	return nil
}

// generateRequest - BFL 생성 요청
type generateRequest struct {
	Prompt           string  `json:"prompt"`
	InputImage       string  `json:"input_image,omitempty"`
	Width            int     `json:"width,omitempty"`
	Height           int     `json:"height,omitempty"`
	Steps            int     `json:"steps,omitempty"`
	Guidance         float64 `json:"guidance,omitempty"`
	Seed             int64   `json:"seed,omitempty"`
	PromptUpsampling bool    `json:"prompt_upsampling,omitempty"`
}

// generateResponse - 생성 요청 응답 (태스크 핸들)
type generateResponse struct {
	ID         string `json:"id"`
	PollingURL string `json:"polling_url"`
}

// resultResponse - get_result 응답
// status: Pending | Ready | Error | Content Moderated | Request Moderated | Task not found
type resultResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Result struct {
		Sample string `json:"sample"`
	} `json:"result"`
	Details map[string]interface{} `json:"details"`
}
