package config

import (
	"testing"
)

func lookupFrom(env map[string]string) func(string) string {
	return func(key string) string { return env[key] }
}

func baseEnv() map[string]string {
	return map[string]string{
		"REDIS_HOST":           "redis.internal",
		"SUPABASE_URL":         "https://proj.supabase.co",
		"SUPABASE_SERVICE_KEY": "service-key",
	}
}

func TestLoadConfigRequiresCoreVars(t *testing.T) {
	tests := []struct {
		name    string
		missing string
	}{
		{"redis host", "REDIS_HOST"},
		{"supabase url", "SUPABASE_URL"},
		{"supabase service key", "SUPABASE_SERVICE_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := baseEnv()
			delete(env, tt.missing)
			if _, err := LoadConfigFrom(lookupFrom(env)); err == nil {
				t.Errorf("expected error when %s is missing", tt.missing)
			}
		})
	}
}

func TestGeminiKeysSplitAndTrimmed(t *testing.T) {
	env := baseEnv()
	env["GEMINI_API_KEYS"] = "key-a, key-b ,,key-c"

	cfg, err := LoadConfigFrom(lookupFrom(env))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	keys := cfg.GeminiCredentials().APIKeys
	if len(keys) != 3 {
		t.Fatalf("expected 3 keys, got %d: %v", len(keys), keys)
	}
	for i, want := range []string{"key-a", "key-b", "key-c"} {
		if keys[i] != want {
			t.Errorf("key %d: expected %q, got %q", i, want, keys[i])
		}
	}
}

func TestSingleGeminiKeyFallback(t *testing.T) {
	env := baseEnv()
	env["GEMINI_API_KEY"] = "solo-key"

	cfg, err := LoadConfigFrom(lookupFrom(env))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if keys := cfg.GeminiAPIKeys; len(keys) != 1 || keys[0] != "solo-key" {
		t.Errorf("expected single fallback key, got %v", keys)
	}
}

func TestConfiguredProvidersReflectCredentials(t *testing.T) {
	env := baseEnv()
	env["KLING_ACCESS_KEY"] = "ak"
	env["KLING_SECRET_KEY"] = "sk"
	env["SEGMIND_API_KEY"] = "seg"

	cfg, err := LoadConfigFrom(lookupFrom(env))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := cfg.ConfiguredProviders()
	want := map[string]bool{"kling": true, "segmind": true}
	if len(names) != len(want) {
		t.Fatalf("expected %d providers, got %v", len(want), names)
	}
	for _, name := range names {
		if !want[name] {
			t.Errorf("unexpected provider %q configured", name)
		}
	}
}

func TestRedisDefaultsAndAddr(t *testing.T) {
	cfg, err := LoadConfigFrom(lookupFrom(baseEnv()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg.GetRedisAddr(); got != "redis.internal:6379" {
		t.Errorf("expected default port in addr, got %q", got)
	}
	if !cfg.RedisUseTLS {
		t.Error("TLS should default to enabled")
	}
}
