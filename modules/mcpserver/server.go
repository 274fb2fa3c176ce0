package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"tryon-gateway/modules/common/asynctask"
	"tryon-gateway/modules/common/imageref"
	"tryon-gateway/modules/common/provider"
	"tryon-gateway/modules/jobs"
)

// Server - MCP 서버 (streamable HTTP, /mcp에 마운트)
// 등록된 각 프로바이더를 <name>_generate 툴로 노출
type Server struct {
	registry *provider.Registry
	pipeline *provider.Pipeline
	mcp      *server.MCPServer
}

// 툴 설명 (프로바이더별)
var toolDescriptions = map[string]string{
	"kling":       "Virtual try-on: dress a person photo in a garment photo (Kling Kolors)",
	"segmind":     "Virtual try-on: dress a person photo in a garment photo (Segmind try-on-diffusion)",
	"nova-canvas": "Generate an image from a prompt, or run virtual try-on (Amazon Nova Canvas)",
	"flux":        "Generate an image from a prompt (Black Forest Labs FLUX)",
	"luma":        "Generate a video from a prompt, optionally with image keyframe URLs (Luma Dream Machine)",
	"sora":        "Generate a video from a prompt (OpenAI Sora)",
	"gpt-image":   "Generate an image from a prompt (OpenAI GPT-Image)",
	"nanobanana":  "Generate or edit an image from a prompt and up to two input images (Gemini)",
}

// NewServer - MCP 서버 생성, 레지스트리의 프로바이더들을 툴로 등록
func NewServer(registry *provider.Registry, version string) *Server {
	s := &Server{
		registry: registry,
		pipeline: provider.NewPipeline(),
		mcp: server.NewMCPServer(
			"tryon-gateway",
			version,
			server.WithToolCapabilities(false),
		),
	}

	s.registerListTool()
	for _, name := range registry.Names() {
		s.registerGenerateTool(name)
	}

	log.Printf("✅ [MCP] Server initialized with %d provider tool(s)", len(registry.Names()))
	return s
}

// Handler - /mcp에 마운트할 HTTP 핸들러
func (s *Server) Handler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp)
}

// registerListTool - list_providers 툴
func (s *Server) registerListTool() {
	tool := mcp.NewTool("list_providers",
		mcp.WithDescription("List the generation providers available on this gateway"),
	)
	s.mcp.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		payload, err := json.Marshal(map[string]interface{}{
			"providers": s.registry.Names(),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(payload)), nil
	})
}

// registerGenerateTool - 프로바이더 하나를 생성 툴로 등록
func (s *Server) registerGenerateTool(providerName string) {
	toolName := strings.ReplaceAll(providerName, "-", "_") + "_generate"
	description := toolDescriptions[providerName]
	if description == "" {
		description = fmt.Sprintf("Generate media with the %s provider", providerName)
	}

	tool := mcp.NewTool(toolName,
		mcp.WithDescription(description),
		mcp.WithString("prompt",
			mcp.Description("Text prompt for generation")),
		mcp.WithString("primary_image_url",
			mcp.Description("Public URL of the primary input image (person/source)")),
		mcp.WithString("primary_image_b64",
			mcp.Description("Base64 or data URI of the primary input image")),
		mcp.WithString("secondary_image_url",
			mcp.Description("Public URL of the secondary input image (garment/reference)")),
		mcp.WithString("secondary_image_b64",
			mcp.Description("Base64 or data URI of the secondary input image")),
		mcp.WithObject("options",
			mcp.Description("Provider-specific options object")),
	)

	s.mcp.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.handleGenerate(ctx, providerName, req)
	})
}

// handleGenerate - 툴 호출을 파이프라인 요청으로 변환해서 실행
func (s *Server) handleGenerate(ctx context.Context, providerName string, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := s.registry.Get(providerName)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := req.GetArguments()

	var rawOptions map[string]interface{}
	if opts, ok := args["options"].(map[string]interface{}); ok {
		rawOptions = opts
	}
	options, err := jobs.ParseOptions(providerName, rawOptions)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	genReq := &provider.Request{
		Prompt:  req.GetString("prompt", ""),
		Options: options,
	}
	if primary := refFromArgs(req, "primary_image_b64", "primary_image_url"); primary != nil {
		genReq.PrimaryInput = *primary
	}
	genReq.SecondaryInput = refFromArgs(req, "secondary_image_b64", "secondary_image_url")

	log.Printf("🔧 [MCP] Tool call: %s_generate", providerName)

	artifacts, err := s.pipeline.GenerateAndDecode(ctx, p, genReq)
	if err != nil {
		kind := asynctask.KindOf(err)
		return mcp.NewToolResultError(fmt.Sprintf("[%s] %v", kind, err)), nil
	}

	// 이미지는 이미지 컨텐츠로, 비디오는 메타데이터 텍스트로 반환
	content := make([]mcp.Content, 0, len(artifacts)+1)
	summary := fmt.Sprintf("%s produced %d artifact(s)", providerName, len(artifacts))
	content = append(content, mcp.NewTextContent(summary))

	for _, a := range artifacts {
		if a.IsImage() {
			content = append(content, mcp.NewImageContent(
				base64.StdEncoding.EncodeToString(a.Data), a.MimeType))
		} else {
			content = append(content, mcp.NewTextContent(fmt.Sprintf(
				"video artifact: %s, %d bytes (use data URI via HTTP API to retrieve)",
				a.MimeType, len(a.Data))))
		}
	}

	return &mcp.CallToolResult{Content: content}, nil
}

// refFromArgs - 툴 인자에서 이미지 ref 생성 (base64 우선)
func refFromArgs(req mcp.CallToolRequest, b64Key, urlKey string) *imageref.Ref {
	if b64 := req.GetString(b64Key, ""); b64 != "" {
		ref := imageref.FromBase64(b64)
		return &ref
	}
	if url := req.GetString(urlKey, ""); url != "" {
		ref := imageref.FromURL(url)
		return &ref
	}
	return nil
}
