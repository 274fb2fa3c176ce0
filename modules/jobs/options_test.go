package jobs

import (
	"testing"

	"tryon-gateway/modules/flux"
	"tryon-gateway/modules/kling"
	"tryon-gateway/modules/segmind"
)

func TestParseOptionsEmptyMapIsNil(t *testing.T) {
	opts, err := ParseOptions("kling", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts != nil {
		t.Errorf("expected nil options for empty map, got %#v", opts)
	}
}

func TestParseOptionsUnknownProvider(t *testing.T) {
	if _, err := ParseOptions("unknown", map[string]interface{}{"x": 1}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestParseOptionsTypedPerProvider(t *testing.T) {
	klingOpts, err := ParseOptions("kling", map[string]interface{}{
		"model_name": "kolors-v1-5",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ko, ok := klingOpts.(*kling.Options)
	if !ok {
		t.Fatalf("expected *kling.Options, got %T", klingOpts)
	}
	if ko.ModelName != "kolors-v1-5" {
		t.Errorf("model name not mapped: %q", ko.ModelName)
	}
	if ko.ProviderName() != "kling" {
		t.Errorf("options must dispatch to kling, got %s", ko.ProviderName())
	}
}

func TestParseOptionsJSONNumberShapes(t *testing.T) {
	// JSONB에서 온 숫자는 float64로 디코딩됨
	raw := map[string]interface{}{
		"num_inference_steps": float64(30),
		"guidance_scale":      float64(5.5),
		"seed":                float64(12345),
	}

	opts, err := ParseOptions("segmind", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	so := opts.(*segmind.Options)
	if so.Steps != 30 || so.GuidanceScale != 5.5 || so.Seed != 12345 {
		t.Errorf("number shapes not converted: %+v", so)
	}
}

func TestParseOptionsStringNumbers(t *testing.T) {
	raw := map[string]interface{}{
		"width":  "1024",
		"height": "768",
	}

	opts, err := ParseOptions("flux", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fo := opts.(*flux.Options)
	if fo.Width != 1024 || fo.Height != 768 {
		t.Errorf("string numbers not converted: %+v", fo)
	}
}
