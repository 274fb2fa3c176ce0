package kling

import (
	"fmt"

	"tryon-gateway/modules/common/asynctask"
)

// ProviderName - 레지스트리/옵션 디스패치용 이름
const ProviderName = "kling"

// 허용 모델 버전
const (
	ModelV1  = "kolors-virtual-try-on-v1"
	ModelV15 = "kolors-virtual-try-on-v1-5"

	DefaultModel = ModelV15
)

// Credentials - Kling AI 자격증명 (환경변수 읽기는 config 패키지에서만)
type Credentials struct {
	AccessKey string
	SecretKey string
}

// Valid - 두 키가 모두 있는지 확인
func (c Credentials) Valid() bool {
	return c.AccessKey != "" && c.SecretKey != ""
}

// Options - Kling 가상 피팅 옵션
type Options struct {
	ModelName   string `json:"model_name,omitempty"`
	CallbackURL string `json:"callback_url,omitempty"`
}

func (o *Options) ProviderName() string { return ProviderName }

// Validate - 허용 집합 밖의 값은 네트워크 호출 전에 거부
func (o *Options) Validate() error {
	switch o.ModelName {
	case "", ModelV1, ModelV15:
		return nil
	default:
		return asynctask.NewValidationError("model_name",
			fmt.Sprintf("must be one of [%s, %s], got %q", ModelV1, ModelV15, o.ModelName))
	}
}

// createTaskRequest - Kling 가상 피팅 작업 생성 요청
type createTaskRequest struct {
	ModelName   string `json:"model_name"`
	HumanImage  string `json:"human_image"`
	ClothImage  string `json:"cloth_image"`
	CallbackURL string `json:"callback_url,omitempty"`
}

// taskResponse - 작업 생성/조회 공통 응답
type taskResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Data      struct {
		TaskID        string `json:"task_id"`
		TaskStatus    string `json:"task_status"` // submitted, processing, succeed, failed
		TaskStatusMsg string `json:"task_status_msg"`
		CreatedAt     int64  `json:"created_at"`
		UpdatedAt     int64  `json:"updated_at"`
		TaskResult    struct {
			Images []taskImage `json:"images"`
		} `json:"task_result"`
	} `json:"data"`
}

// taskImage - 작업 결과 이미지 하나
type taskImage struct {
	Index int    `json:"index"`
	URL   string `json:"url"`
}
