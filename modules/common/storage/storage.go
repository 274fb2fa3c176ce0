package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"tryon-gateway/modules/common/config"
	"tryon-gateway/modules/common/database"
)

type Client struct {
	dbClient *database.Client
}

// NewClient - Storage 클라이언트 생성
func NewClient(dbClient *database.Client) *Client {
	return &Client{
		dbClient: dbClient,
	}
}

// DownloadFromStorage - Supabase Storage에서 attach 파일 다운로드
func (c *Client) DownloadFromStorage(attachID int) ([]byte, error) {
	cfg := config.GetConfig()

	// 1. tryon_attach에서 파일 경로 조회
	attach, err := c.dbClient.FetchAttachInfo(attachID)
	if err != nil {
		return nil, err
	}

	// 2. attach_file_path 확인 (없으면 attach_directory 사용)
	var filePath string
	if attach.AttachFilePath != nil && *attach.AttachFilePath != "" {
		filePath = *attach.AttachFilePath
	} else if attach.AttachDirectory != nil && *attach.AttachDirectory != "" {
		filePath = *attach.AttachDirectory
	} else {
		return nil, fmt.Errorf("no file path found for attach_id: %d", attachID)
	}

	// uploads/ 폴더가 누락된 경우 자동 추가 (upload-로 시작하는 경우)
	if strings.HasPrefix(filePath, "upload-") {
		filePath = "uploads/" + filePath
	}

	// 3. Full URL 생성 후 다운로드
	fullURL := cfg.SupabaseStorageBaseURL + filePath
	log.Printf("📥 Downloading from storage: %s", fullURL)

	httpResp, err := http.Get(fullURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("failed to download file: status %d, body: %s", httpResp.StatusCode, string(body))
	}

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file data: %w", err)
	}

	log.Printf("✅ File downloaded: %d bytes", len(data))
	return data, nil
}

// UploadImage - 이미지를 WebP로 변환해서 Supabase Storage에 업로드
// 반환: 파일 경로, 저장된 크기
func (c *Client) UploadImage(ctx context.Context, imageData []byte, userID string, convertToWebP func([]byte, float32) ([]byte, error)) (string, int64, error) {
	webpData, err := convertToWebP(imageData, 90.0)
	if err != nil {
		return "", 0, fmt.Errorf("failed to convert image to WebP: %w", err)
	}

	fileName := fmt.Sprintf("tryon_%d_%d.webp",
		time.Now().UnixNano()/int64(time.Millisecond), rand.Intn(999999))
	filePath := fmt.Sprintf("tryon-results/user-%s/%s", userID, fileName)

	if err := c.upload(ctx, filePath, webpData, "image/webp"); err != nil {
		return "", 0, err
	}
	return filePath, int64(len(webpData)), nil
}

// UploadVideo - 비디오를 변환 없이 그대로 업로드
func (c *Client) UploadVideo(ctx context.Context, videoData []byte, userID string) (string, int64, error) {
	fileName := fmt.Sprintf("tryon_%d_%d.mp4",
		time.Now().UnixNano()/int64(time.Millisecond), rand.Intn(999999))
	filePath := fmt.Sprintf("tryon-results/user-%s/%s", userID, fileName)

	if err := c.upload(ctx, filePath, videoData, "video/mp4"); err != nil {
		return "", 0, err
	}
	return filePath, int64(len(videoData)), nil
}

// upload - Supabase Storage API 호출
func (c *Client) upload(ctx context.Context, filePath string, data []byte, contentType string) error {
	cfg := config.GetConfig()

	log.Printf("📤 Uploading to storage: %s (%d bytes)", filePath, len(data))

	uploadURL := fmt.Sprintf("%s/storage/v1/object/attachments/%s",
		cfg.SupabaseURL, filePath)

	req, err := http.NewRequestWithContext(ctx, "POST", uploadURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+cfg.SupabaseServiceKey)
	req.Header.Set("Content-Type", contentType)

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	log.Printf("✅ Uploaded: %s", filePath)
	return nil
}
