package model

import "time"

// TryonJob - tryon_jobs 테이블 구조
type TryonJob struct {
	JobID              string        `json:"job_id"`
	Provider           string        `json:"provider"`
	JobStatus          string        `json:"job_status"`
	JobInputData       JobInputData  `json:"job_input_data"`
	ResultAttachIDs    []interface{} `json:"result_attach_ids"`
	ErrorKind          *string       `json:"error_kind"`
	ErrorMessage       *string       `json:"error_message"`
	ProviderTaskID     *string       `json:"provider_task_id"`
	RetryCount         int           `json:"retry_count"`
	CreatedAt          time.Time     `json:"created_at"`
	StartedAt          *time.Time    `json:"started_at"`
	CompletedAt        *time.Time    `json:"completed_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
	RequestedByUserID  *string       `json:"requested_by_user_id"`
}

// JobInputData - job_input_data JSONB 구조
// 이미지 입력은 attach ID 또는 공개 URL 중 하나
type JobInputData struct {
	Prompt            string                 `json:"prompt,omitempty"`
	PrimaryAttachID   int                    `json:"primaryAttachId,omitempty"`
	PrimaryURL        string                 `json:"primaryUrl,omitempty"`
	SecondaryAttachID int                    `json:"secondaryAttachId,omitempty"`
	SecondaryURL      string                 `json:"secondaryUrl,omitempty"`
	Options           map[string]interface{} `json:"options,omitempty"`
	UserID            string                 `json:"userId,omitempty"`
}

// Attach - tryon_attach 테이블 구조
type Attach struct {
	AttachID           int64     `json:"attach_id"`
	CreatedAt          time.Time `json:"created_at"`
	AttachOriginalName *string   `json:"attach_original_name"`
	AttachFileName     *string   `json:"attach_file_name"`
	AttachFilePath     *string   `json:"attach_file_path"`
	AttachFileSize     *int64    `json:"attach_file_size"`
	AttachFileType     *string   `json:"attach_file_type"`
	AttachDirectory    *string   `json:"attach_directory"`
	AttachStorageType  *string   `json:"attach_storage_type"`
}

const (
	StatusPending       = "pending"
	StatusProcessing    = "processing"
	StatusCompleted     = "completed"
	StatusFailed        = "failed"
	StatusUserCancelled = "user_cancelled"
)
