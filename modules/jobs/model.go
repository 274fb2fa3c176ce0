package jobs

// Redis 큐/이벤트 채널 이름
const (
	QueueName    = "jobs:tryon"
	EventChannel = "jobs:events"
)

// EnqueueRequest - POST /enqueue 요청
// 이미지 입력은 attach ID 또는 공개 URL 중 하나
type EnqueueRequest struct {
	Provider          string                 `json:"provider"`
	Prompt            string                 `json:"prompt,omitempty"`
	PrimaryAttachID   int                    `json:"primary_attach_id,omitempty"`
	PrimaryURL        string                 `json:"primary_url,omitempty"`
	SecondaryAttachID int                    `json:"secondary_attach_id,omitempty"`
	SecondaryURL      string                 `json:"secondary_url,omitempty"`
	Options           map[string]interface{} `json:"options,omitempty"`
	UserID            string                 `json:"user_id,omitempty"`
}

// EnqueueResponse - POST /enqueue 응답
type EnqueueResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
	JobID         string `json:"job_id,omitempty"`
	Queue         string `json:"queue,omitempty"`
	QueuePosition int64  `json:"queuePosition,omitempty"`
}

// StatusResponse - GET /jobs/{jobID} 응답
type StatusResponse struct {
	Success         bool          `json:"success"`
	Error           string        `json:"error,omitempty"`
	JobID           string        `json:"job_id,omitempty"`
	Provider        string        `json:"provider,omitempty"`
	JobStatus       string        `json:"job_status,omitempty"`
	ResultAttachIDs []interface{} `json:"result_attach_ids,omitempty"`
	ErrorKind       string        `json:"error_kind,omitempty"`
	ErrorMessage    string        `json:"error_message,omitempty"`
}

// CancelResponse - POST /jobs/{jobID}/cancel 응답
type CancelResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ProgressEvent - jobs:events 채널에 발행되는 진행 이벤트
type ProgressEvent struct {
	JobID     string `json:"job_id"`
	Provider  string `json:"provider,omitempty"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	AttachIDs []int  `json:"attach_ids,omitempty"`
	Timestamp int64  `json:"timestamp"`
}
