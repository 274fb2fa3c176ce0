package novacanvas

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/google/uuid"

	"tryon-gateway/modules/common/asynctask"
	"tryon-gateway/modules/common/imageref"
	"tryon-gateway/modules/common/provider"
)

// Service - Amazon Nova Canvas 어댑터 (Bedrock InvokeModel, 동기)
// SigV4 서명은 AWS SDK에 위임
type Service struct {
	bedrock *bedrockruntime.Client
}

// NewService - Service 생성
// 명시적 키가 있으면 정적 자격증명, 없으면 기본 자격증명 체인 사용
func NewService(ctx context.Context, creds Credentials) (*Service, error) {
	if !creds.Valid() {
		return nil, &asynctask.AuthenticationError{
			Provider: ProviderName,
			Reason:   "AWS region not configured",
		}
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(creds.Region),
	}
	if creds.AccessKeyID != "" && creds.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Printf("✅ [NovaCanvas] Bedrock client initialized (region: %s)", creds.Region)
	return &Service{bedrock: bedrockruntime.NewFromConfig(cfg)}, nil
}

func (s *Service) Name() string { return ProviderName }

// Requirements - 프롬프트는 TEXT_IMAGE용, VIRTUAL_TRY_ON은 이미지 두 장
// 요구사항은 옵션에 따라 달라지므로 선언은 느슨하게 두고 buildPayload에서 검증
func (s *Service) Requirements() provider.Requirements {
	return provider.Requirements{}
}

// Generate - Nova Canvas 호출 (동기)
func (s *Service) Generate(ctx context.Context, req *provider.ResolvedRequest) (*asynctask.Task, error) {
	opts, _ := req.Options.(*Options)
	if opts == nil {
		opts = &Options{}
	}

	payload, err := buildPayload(req, opts)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	taskType := opts.TaskType
	if taskType == "" {
		taskType = TaskTextImage
	}
	log.Printf("🎨 [NovaCanvas] Invoking %s (%s)...", ModelID, taskType)

	out, err := s.bedrock.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(ModelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("Bedrock InvokeModel failed: %w", err)
	}

	var resp invokeResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, &asynctask.ProviderTaskFailure{
			Provider: ProviderName,
			Detail:   resp.Error,
		}
	}
	if len(resp.Images) == 0 {
		return nil, &asynctask.ProviderTaskFailure{
			Provider: ProviderName,
			Detail:   "no images in response",
		}
	}

	refs := make([]string, 0, len(resp.Images))
	for _, b64img := range resp.Images {
		data, err := base64.StdEncoding.DecodeString(b64img)
		if err != nil {
			return nil, &asynctask.DecodeError{MimeType: "image/png", Err: err}
		}
		refs = append(refs, imageref.EncodeDataURI("image/png", data))
	}

	log.Printf("✅ [NovaCanvas] %d image(s) generated", len(refs))
	return asynctask.Succeeded("nova-"+uuid.New().String(), refs), nil
}

// buildPayload - 작업 타입에 따라 InvokeModel 바디 구성
func buildPayload(req *provider.ResolvedRequest, opts *Options) (map[string]interface{}, error) {
	genConfig := map[string]interface{}{
		"width":          orInt(opts.Width, DefaultWidth),
		"height":         orInt(opts.Height, DefaultHeight),
		"quality":        orStr(opts.Quality, DefaultQuality),
		"cfgScale":       orFloat(opts.CfgScale, DefaultCfgScale),
		"numberOfImages": orInt(opts.NumberOfImages, 1),
	}
	if opts.Seed != 0 {
		genConfig["seed"] = opts.Seed
	}

	taskType := opts.TaskType
	if taskType == "" {
		taskType = TaskTextImage
	}

	switch taskType {
	case TaskTextImage:
		if req.Prompt == "" {
			return nil, asynctask.NewValidationError("prompt", "TEXT_IMAGE requires a prompt")
		}
		params := map[string]interface{}{"text": req.Prompt}
		if req.Primary != nil {
			params["conditionImage"] = base64.StdEncoding.EncodeToString(req.Primary.Data)
		}
		return map[string]interface{}{
			"taskType":              TaskTextImage,
			"textToImageParams":     params,
			"imageGenerationConfig": genConfig,
		}, nil

	case TaskVirtualTryOn:
		if req.Primary == nil {
			return nil, asynctask.NewValidationError("primary_input", "VIRTUAL_TRY_ON requires a source image")
		}
		if req.Secondary == nil {
			return nil, asynctask.NewValidationError("secondary_input", "VIRTUAL_TRY_ON requires a reference garment image")
		}
		garmentClass := opts.GarmentClass
		if garmentClass == "" {
			garmentClass = "UPPER_BODY"
		}
		return map[string]interface{}{
			"taskType": TaskVirtualTryOn,
			"virtualTryOnParams": map[string]interface{}{
				"sourceImage":    base64.StdEncoding.EncodeToString(req.Primary.Data),
				"referenceImage": base64.StdEncoding.EncodeToString(req.Secondary.Data),
				"maskType":       "GARMENT",
				"garmentBasedMask": map[string]interface{}{
					"garmentClass": garmentClass,
				},
			},
			"imageGenerationConfig": genConfig,
		}, nil

	default:
		return nil, asynctask.NewValidationError("task_type", fmt.Sprintf("unknown task type %q", taskType))
	}
}

func orInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func orStr(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func orFloat(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}
