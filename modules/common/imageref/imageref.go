package imageref

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"os"
	"strings"

	"tryon-gateway/modules/common/asynctask"
)

// Ref - 이미지 입력 유니온 (로컬 경로 / 원격 URL / 바이트 버퍼 / base64 / 디코딩된 이미지)
// 프로바이더 호출 전에 Resolve로 바이트로 정규화됨
type Ref struct {
	Path   string
	URL    string
	Bytes  []byte
	Base64 string
	Image  image.Image
}

// Resolved - 정규화된 이미지 입력
type Resolved struct {
	Data     []byte
	MimeType string
	// SourceURL - 원본이 원격 URL이었을 때만 채워짐
	// (Luma처럼 공개 URL만 받는 프로바이더가 재업로드 없이 사용)
	SourceURL string
}

func FromPath(path string) Ref     { return Ref{Path: path} }
func FromURL(url string) Ref       { return Ref{URL: url} }
func FromBytes(data []byte) Ref    { return Ref{Bytes: data} }
func FromBase64(data string) Ref   { return Ref{Base64: data} }
func FromImage(img image.Image) Ref { return Ref{Image: img} }

// IsZero - 어떤 입력도 지정되지 않았는지 확인
func (r Ref) IsZero() bool {
	return r.Path == "" && r.URL == "" && len(r.Bytes) == 0 && r.Base64 == "" && r.Image == nil
}

// Resolve - Ref를 바이트 + MIME 타입으로 정규화
// 네트워크 호출 전 단계: URL ref의 GET 한 번을 제외하면 부수효과 없음
func (r Ref) Resolve(ctx context.Context, client *http.Client) (*Resolved, error) {
	switch {
	case len(r.Bytes) > 0:
		return &Resolved{Data: r.Bytes, MimeType: sniffMIME(r.Bytes)}, nil

	case r.Base64 != "":
		data, err := DecodeBase64(r.Base64)
		if err != nil {
			return nil, asynctask.NewValidationError("image", fmt.Sprintf("invalid base64 payload: %v", err))
		}
		return &Resolved{Data: data, MimeType: sniffMIME(data)}, nil

	case r.Image != nil:
		var buf bytes.Buffer
		if err := png.Encode(&buf, r.Image); err != nil {
			return nil, asynctask.NewValidationError("image", fmt.Sprintf("failed to encode image: %v", err))
		}
		return &Resolved{Data: buf.Bytes(), MimeType: "image/png"}, nil

	case r.Path != "":
		data, err := os.ReadFile(r.Path)
		if err != nil {
			return nil, asynctask.NewValidationError("image", fmt.Sprintf("cannot read file %s: %v", r.Path, err))
		}
		if len(data) == 0 {
			return nil, asynctask.NewValidationError("image", fmt.Sprintf("file %s is empty", r.Path))
		}
		return &Resolved{Data: data, MimeType: sniffMIME(data)}, nil

	case r.URL != "":
		data, mimeType, err := fetchURL(ctx, client, r.URL)
		if err != nil {
			return nil, err
		}
		return &Resolved{Data: data, MimeType: mimeType, SourceURL: r.URL}, nil

	default:
		return nil, asynctask.NewValidationError("image", "no image source provided")
	}
}

// fetchURL - 원격 이미지 한 번 다운로드
func fetchURL(ctx context.Context, client *http.Client, url string) ([]byte, string, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, "", asynctask.NewValidationError("image", fmt.Sprintf("invalid URL %s: %v", url, err))
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", &asynctask.TransientNetworkError{Op: "fetch input image", Attempts: 1, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", &asynctask.TransientNetworkError{
			Op:       "fetch input image",
			Attempts: 1,
			Err:      fmt.Errorf("GET %s: status %d", url, resp.StatusCode),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &asynctask.TransientNetworkError{Op: "read input image", Attempts: 1, Err: err}
	}
	if len(data) == 0 {
		return nil, "", asynctask.NewValidationError("image", fmt.Sprintf("URL %s returned empty body", url))
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = sniffMIME(data)
	}
	return data, mimeType, nil
}

// DecodeBase64 - data: URI 접두어를 허용하는 base64 디코딩
func DecodeBase64(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		idx := strings.Index(s, ",")
		if idx < 0 {
			return nil, fmt.Errorf("malformed data URI")
		}
		s = s[idx+1:]
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}

// EncodeDataURI - 바이트를 data:<mime>;base64,<payload> 형태로 인코딩
func EncodeDataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func sniffMIME(data []byte) string {
	return http.DetectContentType(data)
}
