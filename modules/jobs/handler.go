package jobs

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"tryon-gateway/modules/common/cancel"
	"tryon-gateway/modules/common/database"
	"tryon-gateway/modules/common/model"
	"tryon-gateway/modules/common/provider"
)

// Handler - Job 큐 HTTP 핸들러 (enqueue / status / cancel)
type Handler struct {
	rdb         *redis.Client
	dbClient    *database.Client
	cancelStore *cancel.Store
	registry    *provider.Registry
}

// NewHandler - Handler 생성
func NewHandler(rdb *redis.Client, dbClient *database.Client, cancelStore *cancel.Store, registry *provider.Registry) *Handler {
	return &Handler{
		rdb:         rdb,
		dbClient:    dbClient,
		cancelStore: cancelStore,
		registry:    registry,
	}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/enqueue", h.HandleEnqueue).Methods("POST", "OPTIONS")
	r.HandleFunc("/jobs/{jobID}", h.HandleStatus).Methods("GET", "OPTIONS")
	r.HandleFunc("/jobs/{jobID}/cancel", h.HandleCancel).Methods("POST", "OPTIONS")
	log.Println("✅ Job routes registered: /enqueue, /jobs/{jobID}, /jobs/{jobID}/cancel")
}

// HandleEnqueue - POST /enqueue
// Job 레코드 생성 후 Redis 큐에 job_id 적재
func (h *Handler) HandleEnqueue(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		json.NewEncoder(w).Encode(EnqueueResponse{
			Success: false,
			Error:   "Invalid request body",
		})
		return
	}

	if req.Provider == "" {
		json.NewEncoder(w).Encode(EnqueueResponse{
			Success: false,
			Error:   "provider is required",
		})
		return
	}
	if _, err := h.registry.Get(req.Provider); err != nil {
		json.NewEncoder(w).Encode(EnqueueResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	jobID := uuid.New().String()
	job := &model.TryonJob{
		JobID:    jobID,
		Provider: req.Provider,
		JobInputData: model.JobInputData{
			Prompt:            req.Prompt,
			PrimaryAttachID:   req.PrimaryAttachID,
			PrimaryURL:        req.PrimaryURL,
			SecondaryAttachID: req.SecondaryAttachID,
			SecondaryURL:      req.SecondaryURL,
			Options:           req.Options,
			UserID:            req.UserID,
		},
	}
	if req.UserID != "" {
		job.RequestedByUserID = &req.UserID
	}

	ctx, cancelCtx := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancelCtx()

	if err := h.dbClient.CreateJob(ctx, job); err != nil {
		log.Printf("❌ [Enqueue] Failed to create job record: %v", err)
		json.NewEncoder(w).Encode(EnqueueResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	if _, err := h.rdb.LPush(ctx, QueueName, jobID).Result(); err != nil {
		log.Printf("❌ [Enqueue] Redis LPUSH failed: %v", err)
		json.NewEncoder(w).Encode(EnqueueResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	queueLen, _ := h.rdb.LLen(ctx, QueueName).Result()
	log.Printf("✅ [Enqueue] Job %s enqueued (provider: %s, position: %d)", jobID, req.Provider, queueLen)

	json.NewEncoder(w).Encode(EnqueueResponse{
		Success:       true,
		Message:       "Job enqueued successfully",
		JobID:         jobID,
		Queue:         QueueName,
		QueuePosition: queueLen,
	})
}

// HandleStatus - GET /jobs/{jobID}
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	jobID := mux.Vars(r)["jobID"]
	job, err := h.dbClient.FetchJob(jobID)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(StatusResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	resp := StatusResponse{
		Success:         true,
		JobID:           job.JobID,
		Provider:        job.Provider,
		JobStatus:       job.JobStatus,
		ResultAttachIDs: job.ResultAttachIDs,
	}
	if job.ErrorKind != nil {
		resp.ErrorKind = *job.ErrorKind
	}
	if job.ErrorMessage != nil {
		resp.ErrorMessage = *job.ErrorMessage
	}
	json.NewEncoder(w).Encode(resp)
}

// HandleCancel - POST /jobs/{jobID}/cancel
// 플래그만 세움 - 워커가 다음 체크포인트에서 중단
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	jobID := mux.Vars(r)["jobID"]
	job, err := h.dbClient.FetchJob(jobID)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(CancelResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	if job.JobStatus == model.StatusCompleted || job.JobStatus == model.StatusFailed {
		json.NewEncoder(w).Encode(CancelResponse{
			Success: false,
			Error:   "job already finished: " + job.JobStatus,
		})
		return
	}

	ctx, cancelCtx := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancelCtx()

	if err := h.cancelStore.Request(ctx, jobID); err != nil {
		json.NewEncoder(w).Encode(CancelResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	// 아직 큐에서 대기 중이면 바로 취소 상태로
	if job.JobStatus == model.StatusPending {
		if err := h.dbClient.UpdateJobStatus(ctx, jobID, model.StatusUserCancelled); err != nil {
			log.Printf("⚠️ Failed to mark pending job cancelled: %v", err)
		}
	}

	json.NewEncoder(w).Encode(CancelResponse{
		Success: true,
		Message: "Cancel requested",
	})
}
