package resolver

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log"
	"net/http"
	"strings"

	_ "image/jpeg" // JPEG 디코더 등록
	_ "image/png"  // PNG 디코더 등록

	_ "github.com/kolesa-team/go-webp/decoder" // WebP 디코더 등록

	"tryon-gateway/modules/common/asynctask"
	"tryon-gateway/modules/common/imageref"
)

// Artifact - 디코딩된 최종 결과물 (이미지 또는 비디오)
type Artifact struct {
	MimeType string
	Data     []byte
	// Width/Height - 이미지일 때만 채워짐 (비디오는 0)
	Width  int
	Height int
}

// IsImage - 이미지 아티팩트 여부
func (a *Artifact) IsImage() bool {
	return strings.HasPrefix(a.MimeType, "image/")
}

// Resolver - succeeded Task의 result ref들을 아티팩트로 변환
// ref 순서는 프로바이더가 반환한 순서를 그대로 유지
// 같은 ref에 대해 몇 번을 호출해도 바이트 동일한 결과 (ref의 순수 함수)
type Resolver struct {
	client *http.Client
}

// New - Resolver 생성
func New(client *http.Client) *Resolver {
	if client == nil {
		client = http.DefaultClient
	}
	return &Resolver{client: client}
}

// Resolve - 종료(succeeded) 상태 Task의 결과를 가져와 디코딩
// fetch 실패와 decode 실패는 서로 다른 에러 종류이며 둘 다 이 계층에서 재시도하지 않음
func (r *Resolver) Resolve(ctx context.Context, task *asynctask.Task) ([]Artifact, error) {
	if task == nil || task.Status != asynctask.StatusSucceeded {
		return nil, fmt.Errorf("resolver: task is not in succeeded state")
	}
	if len(task.ResultRefs) == 0 {
		return nil, &asynctask.ProviderTaskFailure{
			TaskID: task.TaskID,
			Detail: "task succeeded but returned no result refs",
		}
	}

	artifacts := make([]Artifact, 0, len(task.ResultRefs))
	for i, ref := range task.ResultRefs {
		artifact, err := r.resolveRef(ctx, ref)
		if err != nil {
			return nil, err
		}
		log.Printf("📦 [Resolver] Artifact %d/%d resolved: %s, %d bytes",
			i+1, len(task.ResultRefs), artifact.MimeType, len(artifact.Data))
		artifacts = append(artifacts, *artifact)
	}

	return artifacts, nil
}

// resolveRef - ref 하나를 바이트로 가져와 디코딩 검증
// data: URI는 인라인 디코딩, 그 외에는 GET 한 번
func (r *Resolver) resolveRef(ctx context.Context, ref string) (*Artifact, error) {
	var data []byte
	var declaredMime string

	if strings.HasPrefix(ref, "data:") {
		decoded, mimeType, err := decodeDataURI(ref)
		if err != nil {
			return nil, &asynctask.DecodeError{MimeType: mimeType, Ref: ref, Err: err}
		}
		data = decoded
		declaredMime = mimeType
	} else {
		fetched, mimeType, err := r.fetch(ctx, ref)
		if err != nil {
			return nil, err
		}
		data = fetched
		declaredMime = mimeType
	}

	if declaredMime == "" || declaredMime == "application/octet-stream" {
		declaredMime = http.DetectContentType(data)
	}

	artifact := &Artifact{MimeType: declaredMime, Data: data}

	// 이미지는 실제로 디코딩해서 손상 여부 검증 (비디오는 raw 바이트 유지)
	if artifact.IsImage() {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, &asynctask.DecodeError{MimeType: declaredMime, Ref: ref, Err: err}
		}
		artifact.Width = cfg.Width
		artifact.Height = cfg.Height
	}

	return artifact, nil
}

// fetch - 결과 URL에서 GET 한 번 (재시도 없음 - 재시도는 호출자 책임)
func (r *Resolver) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, "", &asynctask.TransientNetworkError{Op: "fetch artifact", Attempts: 1, Err: err}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, "", &asynctask.TransientNetworkError{Op: "fetch artifact", Attempts: 1, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", &asynctask.TransientNetworkError{
			Op:       "fetch artifact",
			Attempts: 1,
			Err:      fmt.Errorf("GET %s: status %d", url, resp.StatusCode),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &asynctask.TransientNetworkError{Op: "read artifact", Attempts: 1, Err: err}
	}

	return data, resp.Header.Get("Content-Type"), nil
}

// decodeDataURI - data:<mime>;base64,<payload> 파싱
func decodeDataURI(uri string) ([]byte, string, error) {
	rest := strings.TrimPrefix(uri, "data:")
	idx := strings.Index(rest, ",")
	if idx < 0 {
		return nil, "", fmt.Errorf("malformed data URI")
	}

	meta := rest[:idx]
	payload := rest[idx+1:]
	mimeType := strings.TrimSuffix(meta, ";base64")

	if !strings.HasSuffix(meta, ";base64") {
		return nil, mimeType, fmt.Errorf("only base64 data URIs are supported")
	}

	data, err := imageref.DecodeBase64(payload)
	if err != nil {
		return nil, mimeType, err
	}
	return data, mimeType, nil
}

// DataURI - 바이트를 data: URI로 인코딩 (동기 프로바이더의 인라인 결과용)
func DataURI(mimeType string, data []byte) string {
	return imageref.EncodeDataURI(mimeType, data)
}
