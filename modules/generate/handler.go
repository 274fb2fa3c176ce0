package generate

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"tryon-gateway/modules/common/asynctask"
	"tryon-gateway/modules/common/imageref"
	"tryon-gateway/modules/common/provider"
	"tryon-gateway/modules/common/resolver"
	"tryon-gateway/modules/jobs"
)

// Handler - 동기 생성 HTTP 핸들러
// 큐를 거치지 않고 요청 스레드에서 submit → poll → resolve까지 수행
type Handler struct {
	registry *provider.Registry
	pipeline *provider.Pipeline
}

// NewHandler - Handler 생성
func NewHandler(registry *provider.Registry) *Handler {
	return &Handler{
		registry: registry,
		pipeline: provider.NewPipeline(),
	}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/generate/{provider}", h.HandleGenerate).Methods("POST", "OPTIONS")
	r.HandleFunc("/providers", h.HandleProviders).Methods("GET", "OPTIONS")
	log.Println("✅ Generate routes registered: /generate/{provider}, /providers")
}

// HandleGenerate - POST /generate/{provider}
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	providerName := mux.Vars(r)["provider"]
	p, err := h.registry.Get(providerName)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(GenerateResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	var body GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(GenerateResponse{
			Success:   false,
			ErrorKind: asynctask.KindValidation,
			Error:     "Invalid request body",
		})
		return
	}

	req, err := buildRequest(providerName, &body)
	if err != nil {
		writeError(w, providerName, err)
		return
	}

	log.Printf("🚀 [Generate] %s: synchronous generation started", providerName)

	artifacts, err := h.pipeline.GenerateAndDecode(r.Context(), p, req)
	if err != nil {
		writeError(w, providerName, err)
		return
	}

	json.NewEncoder(w).Encode(GenerateResponse{
		Success:   true,
		Provider:  providerName,
		Artifacts: toPayloads(artifacts),
	})
}

// HandleProviders - GET /providers
func (h *Handler) HandleProviders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}
	json.NewEncoder(w).Encode(ProvidersResponse{
		Success:   true,
		Providers: h.registry.Names(),
	})
}

// buildRequest - HTTP 바디를 파이프라인 요청으로 변환
func buildRequest(providerName string, body *GenerateRequest) (*provider.Request, error) {
	opts, err := jobs.ParseOptions(providerName, body.Options)
	if err != nil {
		return nil, asynctask.NewValidationError("options", err.Error())
	}

	req := &provider.Request{
		Prompt:  body.Prompt,
		Options: opts,
	}

	if primary := refFrom(body.PrimaryImage, body.PrimaryURL); primary != nil {
		req.PrimaryInput = *primary
	}
	req.SecondaryInput = refFrom(body.SecondaryImage, body.SecondaryURL)

	return req, nil
}

// refFrom - base64 또는 URL 입력에서 이미지 ref 생성
func refFrom(b64, url string) *imageref.Ref {
	if b64 != "" {
		ref := imageref.FromBase64(b64)
		return &ref
	}
	if url != "" {
		ref := imageref.FromURL(url)
		return &ref
	}
	return nil
}

// toPayloads - 아티팩트를 응답 페이로드로 변환
func toPayloads(artifacts []resolver.Artifact) []ArtifactPayload {
	payloads := make([]ArtifactPayload, 0, len(artifacts))
	for _, a := range artifacts {
		payloads = append(payloads, ArtifactPayload{
			MimeType: a.MimeType,
			DataURI:  resolver.DataURI(a.MimeType, a.Data),
			Width:    a.Width,
			Height:   a.Height,
		})
	}
	return payloads
}

// writeError - 에러 종류를 HTTP 상태 코드로 매핑
func writeError(w http.ResponseWriter, providerName string, err error) {
	kind := asynctask.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case asynctask.KindValidation:
		status = http.StatusBadRequest
	case asynctask.KindAuthentication:
		status = http.StatusUnauthorized
	case asynctask.KindProviderFailure:
		status = http.StatusUnprocessableEntity
	case asynctask.KindTimeout:
		status = http.StatusGatewayTimeout
	case asynctask.KindTransientNetwork, asynctask.KindDecode:
		status = http.StatusBadGateway
	}

	log.Printf("❌ [Generate] %s failed (%s): %v", providerName, kind, err)

	w.WriteHeader(status)
	json.NewEncoder(w).Encode(GenerateResponse{
		Success:   false,
		Provider:  providerName,
		ErrorKind: kind,
		Error:     err.Error(),
	})
}
