package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/supabase-community/supabase-go"
	"tryon-gateway/modules/common/config"
	"tryon-gateway/modules/common/model"
)

type Client struct {
	supabase *supabase.Client
}

// NewClient - Database 클라이언트 생성
func NewClient() *Client {
	cfg := config.GetConfig()

	supabaseClient, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, &supabase.ClientOptions{})
	if err != nil {
		log.Printf("❌ Failed to create Supabase client: %v", err)
		return nil
	}

	return &Client{
		supabase: supabaseClient,
	}
}

// CreateJob - tryon_jobs에 새 Job 레코드 생성
func (c *Client) CreateJob(ctx context.Context, job *model.TryonJob) error {
	log.Printf("💾 Creating job record: %s (provider: %s)", job.JobID, job.Provider)

	insertData := map[string]interface{}{
		"job_id":         job.JobID,
		"provider":       job.Provider,
		"job_status":     model.StatusPending,
		"job_input_data": job.JobInputData,
	}
	if job.RequestedByUserID != nil {
		insertData["requested_by_user_id"] = *job.RequestedByUserID
	}

	_, _, err := c.supabase.From("tryon_jobs").
		Insert(insertData, false, "", "", "").
		Execute()

	if err != nil {
		return fmt.Errorf("failed to insert job record: %w", err)
	}

	log.Printf("✅ Job record created: %s", job.JobID)
	return nil
}

// FetchJob - tryon_jobs에서 Job 데이터 조회
func (c *Client) FetchJob(jobID string) (*model.TryonJob, error) {
	var jobs []model.TryonJob

	data, _, err := c.supabase.From("tryon_jobs").
		Select("*", "exact", false).
		Eq("job_id", jobID).
		Execute()

	if err != nil {
		return nil, fmt.Errorf("failed to query tryon_jobs: %w", err)
	}

	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(jobs) == 0 {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}

	job := &jobs[0]
	log.Printf("✅ Job fetched: %s (provider: %s, status: %s)",
		job.JobID, job.Provider, job.JobStatus)

	return job, nil
}

// UpdateJobStatus - Job 상태 업데이트
func (c *Client) UpdateJobStatus(ctx context.Context, jobID string, status string) error {
	log.Printf("📝 Updating job %s status to: %s", jobID, status)

	updateData := map[string]interface{}{
		"job_status": status,
		"updated_at": "now()",
	}

	if status == model.StatusProcessing {
		updateData["started_at"] = "now()"
	} else if status == model.StatusCompleted || status == model.StatusFailed || status == model.StatusUserCancelled {
		updateData["completed_at"] = "now()"
	}

	_, _, err := c.supabase.From("tryon_jobs").
		Update(updateData, "", "").
		Eq("job_id", jobID).
		Execute()

	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	return nil
}

// UpdateJobProviderTaskID - 원격 태스크 핸들 기록
func (c *Client) UpdateJobProviderTaskID(ctx context.Context, jobID string, taskID string) error {
	updateData := map[string]interface{}{
		"provider_task_id": taskID,
		"updated_at":       "now()",
	}

	_, _, err := c.supabase.From("tryon_jobs").
		Update(updateData, "", "").
		Eq("job_id", jobID).
		Execute()

	if err != nil {
		return fmt.Errorf("failed to update provider task id: %w", err)
	}
	return nil
}

// CompleteJob - 결과 attach ID들과 함께 Job 완료 처리
func (c *Client) CompleteJob(ctx context.Context, jobID string, attachIDs []int) error {
	log.Printf("📊 Completing job %s with %d result(s)", jobID, len(attachIDs))

	updateData := map[string]interface{}{
		"job_status":        model.StatusCompleted,
		"result_attach_ids": attachIDs,
		"completed_at":      "now()",
		"updated_at":        "now()",
	}

	_, _, err := c.supabase.From("tryon_jobs").
		Update(updateData, "", "").
		Eq("job_id", jobID).
		Execute()

	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	log.Printf("✅ Job %s completed", jobID)
	return nil
}

// FailJob - 에러 종류/메시지와 함께 Job 실패 처리
func (c *Client) FailJob(ctx context.Context, jobID string, errorKind, errorMessage string) error {
	log.Printf("📝 Failing job %s (%s): %s", jobID, errorKind, errorMessage)

	updateData := map[string]interface{}{
		"job_status":    model.StatusFailed,
		"error_kind":    errorKind,
		"error_message": errorMessage,
		"completed_at":  "now()",
		"updated_at":    "now()",
	}

	_, _, err := c.supabase.From("tryon_jobs").
		Update(updateData, "", "").
		Eq("job_id", jobID).
		Execute()

	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}
	return nil
}

// FetchAttachInfo - tryon_attach 테이블에서 파일 정보 조회
func (c *Client) FetchAttachInfo(attachID int) (*model.Attach, error) {
	var attaches []model.Attach

	data, _, err := c.supabase.From("tryon_attach").
		Select("*", "exact", false).
		Eq("attach_id", fmt.Sprintf("%d", attachID)).
		Execute()

	if err != nil {
		return nil, fmt.Errorf("failed to query tryon_attach: %w", err)
	}

	if err := json.Unmarshal(data, &attaches); err != nil {
		return nil, fmt.Errorf("failed to parse attach response: %w", err)
	}

	if len(attaches) == 0 {
		return nil, fmt.Errorf("attach not found: %d", attachID)
	}

	attach := &attaches[0]
	log.Printf("✅ Attach info fetched: ID=%d", attach.AttachID)

	return attach, nil
}

// CreateAttachRecord - tryon_attach 테이블에 레코드 생성
func (c *Client) CreateAttachRecord(ctx context.Context, filePath string, fileSize int64, fileType string) (int, error) {
	log.Printf("💾 Creating attach record for: %s", filePath)

	fileName := filePath
	if idx := strings.LastIndexByte(filePath, '/'); idx >= 0 {
		fileName = filePath[idx+1:]
	}

	insertData := map[string]interface{}{
		"attach_original_name": fileName,
		"attach_file_name":     fileName,
		"attach_file_path":     filePath,
		"attach_file_size":     fileSize,
		"attach_file_type":     fileType,
		"attach_directory":     filePath,
		"attach_storage_type":  "supabase",
	}

	data, _, err := c.supabase.From("tryon_attach").
		Insert(insertData, false, "", "", "").
		Execute()

	if err != nil {
		return 0, fmt.Errorf("failed to insert attach record: %w", err)
	}

	var attaches []model.Attach
	if err := json.Unmarshal(data, &attaches); err != nil {
		return 0, fmt.Errorf("failed to parse attach response: %w", err)
	}

	if len(attaches) == 0 {
		return 0, fmt.Errorf("no attach record returned")
	}

	attachID := int(attaches[0].AttachID)
	log.Printf("✅ Attach record created: ID=%d", attachID)

	return attachID, nil
}
