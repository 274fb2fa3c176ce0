package jobs

import (
	"fmt"

	"tryon-gateway/modules/common/fallback"
	"tryon-gateway/modules/common/provider"
	"tryon-gateway/modules/flux"
	"tryon-gateway/modules/kling"
	"tryon-gateway/modules/luma"
	"tryon-gateway/modules/nanobanana"
	"tryon-gateway/modules/novacanvas"
	"tryon-gateway/modules/openai"
	"tryon-gateway/modules/segmind"
)

// ParseOptions - JSONB 옵션 맵을 프로바이더별 타입 옵션으로 변환
// 알 수 없는 키는 무시, 값 형태가 이상하면 안전한 기본값으로 대체
func ParseOptions(providerName string, raw map[string]interface{}) (provider.Options, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	switch providerName {
	case kling.ProviderName:
		return &kling.Options{
			ModelName:   fallback.SafeString(raw["model_name"], ""),
			CallbackURL: fallback.SafeString(raw["callback_url"], ""),
		}, nil

	case segmind.ProviderName:
		return &segmind.Options{
			NegativePrompt: fallback.SafeString(raw["negative_prompt"], ""),
			Steps:          fallback.SafeInt(raw["num_inference_steps"], 0),
			GuidanceScale:  fallback.SafeFloat(raw["guidance_scale"], 0),
			Seed:           fallback.SafeInt64(raw["seed"], 0),
		}, nil

	case novacanvas.ProviderName:
		return &novacanvas.Options{
			TaskType:       fallback.SafeString(raw["task_type"], ""),
			Width:          fallback.SafeInt(raw["width"], 0),
			Height:         fallback.SafeInt(raw["height"], 0),
			Quality:        fallback.SafeString(raw["quality"], ""),
			CfgScale:       fallback.SafeFloat(raw["cfg_scale"], 0),
			Seed:           fallback.SafeInt64(raw["seed"], 0),
			NumberOfImages: fallback.SafeInt(raw["number_of_images"], 0),
			GarmentClass:   fallback.SafeString(raw["garment_class"], ""),
		}, nil

	case flux.ProviderName:
		return &flux.Options{
			Width:            fallback.SafeInt(raw["width"], 0),
			Height:           fallback.SafeInt(raw["height"], 0),
			Steps:            fallback.SafeInt(raw["steps"], 0),
			Guidance:         fallback.SafeFloat(raw["guidance"], 0),
			Seed:             fallback.SafeInt64(raw["seed"], 0),
			PromptUpsampling: fallback.SafeBool(raw["prompt_upsampling"], false),
		}, nil

	case luma.ProviderName:
		return &luma.Options{
			Model:       fallback.SafeString(raw["model"], ""),
			Resolution:  fallback.SafeString(raw["resolution"], ""),
			Duration:    fallback.SafeString(raw["duration"], ""),
			AspectRatio: fallback.SafeString(raw["aspect_ratio"], ""),
			Loop:        fallback.SafeBool(raw["loop"], false),
		}, nil

	case openai.SoraProviderName:
		return &openai.SoraOptions{
			Model:   fallback.SafeString(raw["model"], ""),
			Size:    fallback.SafeString(raw["size"], ""),
			Seconds: fallback.SafeString(raw["seconds"], ""),
		}, nil

	case openai.ImageProviderName:
		return &openai.ImageOptions{
			Size:    fallback.SafeString(raw["size"], ""),
			Quality: fallback.SafeString(raw["quality"], ""),
			N:       fallback.SafeInt(raw["n"], 0),
		}, nil

	case nanobanana.ProviderName:
		return &nanobanana.Options{
			Model:       fallback.SafeString(raw["model"], ""),
			Width:       fallback.SafeInt(raw["width"], 0),
			Height:      fallback.SafeInt(raw["height"], 0),
			AspectRatio: fallback.SafeString(raw["aspect_ratio"], ""),
			Temperature: fallback.SafeFloat(raw["temperature"], 0),
		}, nil

	default:
		return nil, fmt.Errorf("unknown provider for options: %s", providerName)
	}
}
