package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"tryon-gateway/modules/common/asynctask"
	"tryon-gateway/modules/common/cancel"
	"tryon-gateway/modules/common/database"
	"tryon-gateway/modules/common/imageref"
	"tryon-gateway/modules/common/model"
	"tryon-gateway/modules/common/provider"
	"tryon-gateway/modules/common/storage"
	"tryon-gateway/modules/common/utils"
)

// Worker - Redis 큐를 감시하며 Job을 처리
type Worker struct {
	rdb           *redis.Client
	dbClient      *database.Client
	storageClient *storage.Client
	cancelStore   *cancel.Store
	registry      *provider.Registry
	pipeline      *provider.Pipeline
}

// NewWorker - Worker 생성
func NewWorker(rdb *redis.Client, dbClient *database.Client, storageClient *storage.Client,
	cancelStore *cancel.Store, registry *provider.Registry) *Worker {
	return &Worker{
		rdb:           rdb,
		dbClient:      dbClient,
		storageClient: storageClient,
		cancelStore:   cancelStore,
		registry:      registry,
		pipeline:      provider.NewPipeline(),
	}
}

// Start - 큐 감시 루프 시작 (블로킹)
func (w *Worker) Start(ctx context.Context) {
	log.Printf("🔄 Job worker starting, watching queue: %s", QueueName)

	for {
		result, err := w.rdb.BRPop(ctx, 0, QueueName).Result()
		if err != nil {
			if ctx.Err() != nil {
				log.Println("🛑 Job worker stopped")
				return
			}
			log.Printf("❌ Redis BRPOP error: %v", err)
			time.Sleep(5 * time.Second)
			continue
		}

		// result[0]은 큐 이름, result[1]이 실제 job_id
		jobID := result[1]
		log.Printf("🎯 Received new job: %s", jobID)

		go w.processJob(ctx, jobID)
	}
}

// processJob - Job 하나를 끝까지 처리
func (w *Worker) processJob(ctx context.Context, jobID string) {
	job, err := w.dbClient.FetchJob(jobID)
	if err != nil {
		log.Printf("❌ Failed to fetch job %s: %v", jobID, err)
		return
	}

	// 큐 대기 중 취소된 Job은 건너뜀
	if job.JobStatus == model.StatusUserCancelled || w.cancelStore.IsCancelled(ctx, jobID) {
		log.Printf("🛑 Job %s cancelled before processing, skipping", jobID)
		w.dbClient.UpdateJobStatus(ctx, jobID, model.StatusUserCancelled)
		w.cancelStore.Clear(ctx, jobID)
		w.publish(ctx, ProgressEvent{JobID: jobID, Provider: job.Provider, Status: model.StatusUserCancelled})
		return
	}

	w.dbClient.UpdateJobStatus(ctx, jobID, model.StatusProcessing)
	w.publish(ctx, ProgressEvent{JobID: jobID, Provider: job.Provider, Status: model.StatusProcessing})

	attachIDs, err := w.runJob(ctx, job)
	if err != nil {
		kind := asynctask.KindOf(err)
		log.Printf("❌ Job %s failed (%s): %v", jobID, kind, err)
		w.dbClient.FailJob(ctx, jobID, kind, err.Error())
		w.publish(ctx, ProgressEvent{
			JobID:     jobID,
			Provider:  job.Provider,
			Status:    model.StatusFailed,
			ErrorKind: kind,
			Message:   err.Error(),
		})
		w.cancelStore.Clear(ctx, jobID)
		return
	}

	// 생성 도중 취소된 경우 결과는 버리지 않고 저장된 상태로 취소 처리
	if w.cancelStore.IsCancelled(ctx, jobID) {
		log.Printf("🛑 Job %s cancelled during processing, keeping %d result(s)", jobID, len(attachIDs))
		w.dbClient.UpdateJobStatus(ctx, jobID, model.StatusUserCancelled)
		w.publish(ctx, ProgressEvent{
			JobID:     jobID,
			Provider:  job.Provider,
			Status:    model.StatusUserCancelled,
			AttachIDs: attachIDs,
		})
		w.cancelStore.Clear(ctx, jobID)
		return
	}

	w.dbClient.CompleteJob(ctx, jobID, attachIDs)
	w.publish(ctx, ProgressEvent{
		JobID:     jobID,
		Provider:  job.Provider,
		Status:    model.StatusCompleted,
		AttachIDs: attachIDs,
	})
	w.cancelStore.Clear(ctx, jobID)
	log.Printf("✅ Job %s completed with %d result(s)", jobID, len(attachIDs))
}

// runJob - 요청 구성 → 생성 → 결과 업로드
func (w *Worker) runJob(ctx context.Context, job *model.TryonJob) ([]int, error) {
	p, err := w.registry.Get(job.Provider)
	if err != nil {
		return nil, asynctask.NewValidationError("provider", err.Error())
	}

	req, err := w.buildRequest(job)
	if err != nil {
		return nil, err
	}

	artifacts, err := w.pipeline.GenerateAndDecode(ctx, p, req)
	if err != nil {
		return nil, err
	}

	userID := job.JobInputData.UserID
	if userID == "" {
		userID = "anonymous"
	}

	attachIDs := make([]int, 0, len(artifacts))
	for i, artifact := range artifacts {
		var filePath string
		var fileSize int64
		var fileType string

		if artifact.IsImage() {
			filePath, fileSize, err = w.storageClient.UploadImage(ctx, artifact.Data, userID, utils.ConvertToWebP)
			fileType = "image/webp"
		} else {
			filePath, fileSize, err = w.storageClient.UploadVideo(ctx, artifact.Data, userID)
			fileType = artifact.MimeType
		}
		if err != nil {
			return nil, fmt.Errorf("failed to store artifact %d: %w", i, err)
		}

		attachID, err := w.dbClient.CreateAttachRecord(ctx, filePath, fileSize, fileType)
		if err != nil {
			return nil, fmt.Errorf("failed to record artifact %d: %w", i, err)
		}
		attachIDs = append(attachIDs, attachID)
	}

	return attachIDs, nil
}

// buildRequest - JSONB 입력을 파이프라인 요청으로 변환
func (w *Worker) buildRequest(job *model.TryonJob) (*provider.Request, error) {
	input := job.JobInputData

	opts, err := ParseOptions(job.Provider, input.Options)
	if err != nil {
		return nil, asynctask.NewValidationError("options", err.Error())
	}

	req := &provider.Request{
		Prompt:  input.Prompt,
		Options: opts,
	}

	primary, err := w.refFromInput(input.PrimaryAttachID, input.PrimaryURL)
	if err != nil {
		return nil, err
	}
	if primary != nil {
		req.PrimaryInput = *primary
	}

	secondary, err := w.refFromInput(input.SecondaryAttachID, input.SecondaryURL)
	if err != nil {
		return nil, err
	}
	req.SecondaryInput = secondary

	return req, nil
}

// refFromInput - attach ID 또는 URL에서 이미지 ref 생성
func (w *Worker) refFromInput(attachID int, url string) (*imageref.Ref, error) {
	if attachID > 0 {
		data, err := w.storageClient.DownloadFromStorage(attachID)
		if err != nil {
			return nil, fmt.Errorf("failed to load attach %d: %w", attachID, err)
		}
		ref := imageref.FromBytes(data)
		return &ref, nil
	}
	if url != "" {
		ref := imageref.FromURL(url)
		return &ref, nil
	}
	return nil, nil
}

// publish - 진행 이벤트를 Redis 채널에 발행
func (w *Worker) publish(ctx context.Context, event ProgressEvent) {
	event.Timestamp = time.Now().UnixMilli()
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := w.rdb.Publish(ctx, EventChannel, payload).Err(); err != nil {
		log.Printf("⚠️ Failed to publish progress event for %s: %v", event.JobID, err)
	}
}
