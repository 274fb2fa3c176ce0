package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"tryon-gateway/modules/flux"
	"tryon-gateway/modules/kling"
	"tryon-gateway/modules/luma"
	"tryon-gateway/modules/nanobanana"
	"tryon-gateway/modules/novacanvas"
	"tryon-gateway/modules/openai"
	"tryon-gateway/modules/segmind"
)

// Config 구조체 - 모든 환경변수를 담음
// 프로바이더 자격증명은 여기서만 환경변수를 읽음 (단일 경계)
type Config struct {
	// Redis
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisUseTLS   bool

	// Supabase
	SupabaseURL            string
	SupabaseServiceKey     string
	SupabaseStorageBaseURL string

	// Provider credentials
	KlingAccessKey     string
	KlingSecretKey     string
	OpenAIAPIKey       string
	GeminiAPIKeys      []string
	SegmindAPIKey      string
	BFLAPIKey          string
	LumaAPIKey         string
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	// Server
	Port string
}

var globalConfig *Config

// LoadConfig - .env 로드 후 환경변수에서 설정 구성
func LoadConfig() (*Config, error) {
	// .env 파일 로드 (있으면)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables")
	}
	return LoadConfigFrom(os.Getenv)
}

// LoadConfigFrom - 주어진 lookup 함수로 설정 구성 (테스트용 주입 지점)
func LoadConfigFrom(lookup func(string) string) (*Config, error) {
	getEnv := func(key, defaultValue string) string {
		if value := lookup(key); value != "" {
			return value
		}
		return defaultValue
	}

	// Redis UseTLS 파싱
	useTLS := true // 기본값
	if tlsStr := lookup("REDIS_USE_TLS"); tlsStr != "" {
		if parsed, err := strconv.ParseBool(tlsStr); err == nil {
			useTLS = parsed
		}
	}

	// Gemini 키는 쉼표 구분 목록 (단일 키 변수도 지원)
	var geminiKeys []string
	if keysStr := lookup("GEMINI_API_KEYS"); keysStr != "" {
		for _, key := range strings.Split(keysStr, ",") {
			if key = strings.TrimSpace(key); key != "" {
				geminiKeys = append(geminiKeys, key)
			}
		}
	} else if key := lookup("GEMINI_API_KEY"); key != "" {
		geminiKeys = []string{key}
	}

	globalConfig = &Config{
		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisUsername: getEnv("REDIS_USERNAME", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisUseTLS:   useTLS,

		// Supabase
		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:     getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBaseURL: getEnv("SUPABASE_STORAGE_BASE_URL", ""),

		// Provider credentials
		KlingAccessKey:     getEnv("KLING_ACCESS_KEY", ""),
		KlingSecretKey:     getEnv("KLING_SECRET_KEY", ""),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKeys:      geminiKeys,
		SegmindAPIKey:      getEnv("SEGMIND_API_KEY", ""),
		BFLAPIKey:          getEnv("BFL_API_KEY", ""),
		LumaAPIKey:         getEnv("LUMA_API_KEY", ""),
		AWSRegion:          getEnv("AWS_REGION", ""),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),

		// Server
		Port: getEnv("PORT", "8080"),
	}

	// 필수 환경변수 검증
	if err := globalConfig.validate(); err != nil {
		return nil, err
	}

	log.Println("✅ Configuration loaded successfully")
	log.Printf("   Redis: %s:%s (TLS: %v)", globalConfig.RedisHost, globalConfig.RedisPort, globalConfig.RedisUseTLS)
	log.Printf("   Supabase: %s", globalConfig.SupabaseURL)
	log.Printf("   Providers: %s", strings.Join(globalConfig.ConfiguredProviders(), ", "))

	return globalConfig, nil
}

// GetConfig - 로드된 설정 가져오기
func GetConfig() *Config {
	if globalConfig == nil {
		log.Fatal("❌ Config not loaded. Call LoadConfig() first.")
	}
	return globalConfig
}

// validate - 필수 환경변수 검증
// 프로바이더 키는 선택 (없으면 해당 프로바이더가 등록되지 않음)
func (c *Config) validate() error {
	if c.RedisHost == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseServiceKey == "" {
		return fmt.Errorf("SUPABASE_SERVICE_KEY is required")
	}
	return nil
}

// GetRedisAddr - Redis 연결 문자열 생성
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// 프로바이더별 자격증명 구성

func (c *Config) KlingCredentials() kling.Credentials {
	return kling.Credentials{AccessKey: c.KlingAccessKey, SecretKey: c.KlingSecretKey}
}

func (c *Config) OpenAICredentials() openai.Credentials {
	return openai.Credentials{APIKey: c.OpenAIAPIKey}
}

func (c *Config) GeminiCredentials() nanobanana.Credentials {
	return nanobanana.Credentials{APIKeys: c.GeminiAPIKeys}
}

func (c *Config) SegmindCredentials() segmind.Credentials {
	return segmind.Credentials{APIKey: c.SegmindAPIKey}
}

func (c *Config) FluxCredentials() flux.Credentials {
	return flux.Credentials{APIKey: c.BFLAPIKey}
}

func (c *Config) LumaCredentials() luma.Credentials {
	return luma.Credentials{APIKey: c.LumaAPIKey}
}

func (c *Config) NovaCanvasCredentials() novacanvas.Credentials {
	return novacanvas.Credentials{
		Region:          c.AWSRegion,
		AccessKeyID:     c.AWSAccessKeyID,
		SecretAccessKey: c.AWSSecretAccessKey,
	}
}

// ConfiguredProviders - 자격증명이 채워진 프로바이더 이름 목록
func (c *Config) ConfiguredProviders() []string {
	var names []string
	if c.KlingCredentials().Valid() {
		names = append(names, kling.ProviderName)
	}
	if c.OpenAICredentials().Valid() {
		names = append(names, openai.SoraProviderName, openai.ImageProviderName)
	}
	if c.GeminiCredentials().Valid() {
		names = append(names, nanobanana.ProviderName)
	}
	if c.SegmindCredentials().Valid() {
		names = append(names, segmind.ProviderName)
	}
	if c.FluxCredentials().Valid() {
		names = append(names, flux.ProviderName)
	}
	if c.LumaCredentials().Valid() {
		names = append(names, luma.ProviderName)
	}
	if c.NovaCanvasCredentials().Valid() {
		names = append(names, novacanvas.ProviderName)
	}
	return names
}
