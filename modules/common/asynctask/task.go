package asynctask

import (
	"fmt"
	"time"
)

// Status - 원격 작업 상태
type Status string

const (
	StatusSubmitted  Status = "submitted"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// Terminal - 종료 상태 여부 (succeeded / failed)
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Task - 진행 중인 원격 생성 작업 하나를 나타내는 핸들
// 호출 한 번당 하나의 Task를 소유하며, 프로세스 재시작 간에는 유지되지 않음
type Task struct {
	TaskID      string    `json:"task_id"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	ResultRefs  []string  `json:"result_refs,omitempty"`  // succeeded일 때만 채워짐 (URL 또는 data: URI)
	ErrorDetail string    `json:"error_detail,omitempty"` // failed일 때만 채워짐
}

// NewTask - submitted 상태의 새 Task 생성
func NewTask(taskID string) *Task {
	return &Task{
		TaskID:    taskID,
		Status:    StatusSubmitted,
		CreatedAt: time.Now(),
	}
}

// Succeeded - succeeded 상태의 Task 생성 (동기 프로바이더용)
// 동기 프로바이더는 제출 즉시 결과를 받으므로 폴링 없이 종료 상태로 시작
func Succeeded(taskID string, resultRefs []string) *Task {
	return &Task{
		TaskID:     taskID,
		Status:     StatusSucceeded,
		CreatedAt:  time.Now(),
		ResultRefs: resultRefs,
	}
}

// Transition - 상태 전이 (submitted → processing* → succeeded | failed)
// 종료 상태에서 벗어나는 전이는 거부
func (t *Task) Transition(next Status) error {
	if t.Status.Terminal() {
		if t.Status == next {
			return nil
		}
		return fmt.Errorf("task %s: cannot transition out of terminal state %s (to %s)",
			t.TaskID, t.Status, next)
	}

	switch next {
	case StatusSubmitted:
		if t.Status != StatusSubmitted {
			return fmt.Errorf("task %s: cannot go back to submitted from %s", t.TaskID, t.Status)
		}
	case StatusProcessing, StatusSucceeded, StatusFailed:
		// submitted/processing에서는 모두 허용
	default:
		return fmt.Errorf("task %s: unknown status %q", t.TaskID, next)
	}

	t.Status = next
	return nil
}

// ApplyObservation - 폴링 응답으로 관측된 상태를 Task에 반영
// 결과 참조와 에러 상세는 종료 상태에서만 복사
func (t *Task) ApplyObservation(observed *Task) error {
	if observed == nil {
		return fmt.Errorf("task %s: nil observation", t.TaskID)
	}

	if err := t.Transition(observed.Status); err != nil {
		return err
	}

	switch t.Status {
	case StatusSucceeded:
		t.ResultRefs = observed.ResultRefs
	case StatusFailed:
		t.ErrorDetail = observed.ErrorDetail
	}
	return nil
}
