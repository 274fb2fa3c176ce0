package novacanvas

import (
	"fmt"

	"tryon-gateway/modules/common/asynctask"
)

// ProviderName - 레지스트리/옵션 디스패치용 이름
const ProviderName = "nova-canvas"

// ModelID - Bedrock 모델 ID
const ModelID = "amazon.nova-canvas-v1:0"

// 작업 타입
const (
	TaskTextImage    = "TEXT_IMAGE"
	TaskVirtualTryOn = "VIRTUAL_TRY_ON"
)

// 허용 품질 / 의상 클래스
var (
	allowedQualities     = map[string]bool{"standard": true, "premium": true}
	allowedGarmentClass  = map[string]bool{"UPPER_BODY": true, "LOWER_BODY": true, "FULL_BODY": true, "FOOTWEAR": true}
)

// 기본값 및 허용 범위 (Nova Canvas 문서 기준)
const (
	DefaultWidth    = 1024
	DefaultHeight   = 1024
	DefaultQuality  = "standard"
	DefaultCfgScale = 6.5

	MinDimension = 320
	MaxDimension = 4096
	MinCfgScale  = 1.1
	MaxCfgScale  = 10.0
	MaxImages    = 5
)

// Credentials - AWS 자격증명 (비어 있으면 기본 자격증명 체인 사용)
type Credentials struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

func (c Credentials) Valid() bool { return c.Region != "" }

// Options - Nova Canvas 옵션
type Options struct {
	TaskType       string  `json:"task_type,omitempty"` // TEXT_IMAGE(기본) | VIRTUAL_TRY_ON
	Width          int     `json:"width,omitempty"`
	Height         int     `json:"height,omitempty"`
	Quality        string  `json:"quality,omitempty"`
	CfgScale       float64 `json:"cfg_scale,omitempty"`
	Seed           int64   `json:"seed,omitempty"`
	NumberOfImages int     `json:"number_of_images,omitempty"`
	GarmentClass   string  `json:"garment_class,omitempty"` // VIRTUAL_TRY_ON 전용
}

func (o *Options) ProviderName() string { return ProviderName }

// Validate - 허용 집합/범위 밖 값은 네트워크 호출 전에 거부
func (o *Options) Validate() error {
	switch o.TaskType {
	case "", TaskTextImage, TaskVirtualTryOn:
	default:
		return asynctask.NewValidationError("task_type",
			fmt.Sprintf("must be %s or %s, got %q", TaskTextImage, TaskVirtualTryOn, o.TaskType))
	}
	if o.Width != 0 && (o.Width < MinDimension || o.Width > MaxDimension) {
		return asynctask.NewValidationError("width",
			fmt.Sprintf("must be between %d and %d, got %d", MinDimension, MaxDimension, o.Width))
	}
	if o.Height != 0 && (o.Height < MinDimension || o.Height > MaxDimension) {
		return asynctask.NewValidationError("height",
			fmt.Sprintf("must be between %d and %d, got %d", MinDimension, MaxDimension, o.Height))
	}
	if o.Quality != "" && !allowedQualities[o.Quality] {
		return asynctask.NewValidationError("quality",
			fmt.Sprintf("must be standard or premium, got %q", o.Quality))
	}
	if o.CfgScale != 0 && (o.CfgScale < MinCfgScale || o.CfgScale > MaxCfgScale) {
		return asynctask.NewValidationError("cfg_scale",
			fmt.Sprintf("must be between %.1f and %.1f, got %.2f", MinCfgScale, MaxCfgScale, o.CfgScale))
	}
	if o.NumberOfImages < 0 || o.NumberOfImages > MaxImages {
		return asynctask.NewValidationError("number_of_images",
			fmt.Sprintf("must be between 1 and %d, got %d", MaxImages, o.NumberOfImages))
	}
	if o.GarmentClass != "" && !allowedGarmentClass[o.GarmentClass] {
		return asynctask.NewValidationError("garment_class",
			fmt.Sprintf("unknown garment class %q", o.GarmentClass))
	}
	return nil
}

// invokeResponse - InvokeModel 응답 바디
type invokeResponse struct {
	Images []string `json:"images"`
	Error  string   `json:"error"`
}
