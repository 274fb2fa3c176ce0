package generate

// GenerateRequest - POST /generate/{provider} 요청
// 이미지 입력은 base64(data URI 허용) 또는 공개 URL
type GenerateRequest struct {
	Prompt          string                 `json:"prompt,omitempty"`
	PrimaryImage    string                 `json:"primary_image,omitempty"`
	PrimaryURL      string                 `json:"primary_url,omitempty"`
	SecondaryImage  string                 `json:"secondary_image,omitempty"`
	SecondaryURL    string                 `json:"secondary_url,omitempty"`
	Options         map[string]interface{} `json:"options,omitempty"`
}

// ArtifactPayload - 디코딩된 결과 아티팩트
type ArtifactPayload struct {
	MimeType string `json:"mime_type"`
	DataURI  string `json:"data_uri"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// GenerateResponse - POST /generate/{provider} 응답
type GenerateResponse struct {
	Success   bool              `json:"success"`
	Provider  string            `json:"provider,omitempty"`
	Artifacts []ArtifactPayload `json:"artifacts,omitempty"`
	ErrorKind string            `json:"error_kind,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// ProvidersResponse - GET /providers 응답
type ProvidersResponse struct {
	Success   bool     `json:"success"`
	Providers []string `json:"providers"`
}
