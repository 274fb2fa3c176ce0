package asynctask

import (
	"context"
	"errors"
	"log"
	"time"
)

// 기본 폴링 설정값
const (
	DefaultInterval      = 3 * time.Second
	DefaultMaxWait       = 5 * time.Minute
	DefaultStatusRetries = 3
	DefaultRetryBackoff  = 2 * time.Second
)

// StatusFunc - 원격 작업 상태를 한 번 조회하는 함수
// 반환 에러는 전송 계층 실패를 의미 (작업 실패는 StatusFailed Task로 표현)
type StatusFunc func(ctx context.Context) (*Task, error)

// Poller - Task를 종료 상태까지 구동하는 폴링 루프
// 벽시계 기준 예산(MaxWait)을 계산하며 절대 예산을 넘겨 잠들지 않음
type Poller struct {
	Interval      time.Duration // 폴링 간격
	MaxWait       time.Duration // 전체 대기 예산 (벽시계 기준)
	StatusRetries int           // 일시적 상태조회 실패의 최대 재시도 횟수
	RetryBackoff  time.Duration // 재시도 간 초기 대기 (매 재시도마다 2배)
}

// NewPoller - 기본값으로 Poller 생성
func NewPoller() *Poller {
	return &Poller{
		Interval:      DefaultInterval,
		MaxWait:       DefaultMaxWait,
		StatusRetries: DefaultStatusRetries,
		RetryBackoff:  DefaultRetryBackoff,
	}
}

// Wait - task가 종료 상태에 도달할 때까지 폴링
// - 첫 sleep 전에 반드시 한 번 상태를 확인
// - 남은 예산을 매 반복마다 계산 (고정 반복 횟수 아님)
// - 일시적 상태조회 실패는 StatusRetries 회까지 백오프 재시도 후 승격
// - 프로바이더가 보고한 작업 실패는 즉시 ProviderTaskFailure (재시도 없음)
// - 예산 소진 시 TimeoutError (원격 작업 취소는 시도하지 않음)
func (p *Poller) Wait(ctx context.Context, task *Task, status StatusFunc) (*Task, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	maxWait := p.MaxWait
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}

	start := time.Now()
	deadline := start.Add(maxWait)

	for {
		observed, err := p.checkWithRetry(ctx, status)
		if err != nil {
			return nil, err
		}

		if err := task.ApplyObservation(observed); err != nil {
			return nil, err
		}

		if task.Status.Terminal() {
			if task.Status == StatusFailed {
				return nil, &ProviderTaskFailure{
					TaskID: task.TaskID,
					Detail: task.ErrorDetail,
				}
			}
			return task, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			log.Printf("⏰ [Poller] Task %s abandoned after %v (still %s)",
				task.TaskID, time.Since(start).Round(time.Millisecond), task.Status)
			return nil, &TimeoutError{
				TaskID:  task.TaskID,
				Waited:  time.Since(start),
				MaxWait: maxWait,
			}
		}

		// 남은 예산보다 길게 잠들지 않음 (초과는 최대 한 간격으로 제한)
		sleep := interval
		if sleep > remaining {
			sleep = remaining
		}
		if err := sleepCtx(ctx, sleep); err != nil {
			return nil, err
		}
	}
}

// checkWithRetry - 상태 조회 한 번 (일시적 실패는 제한된 횟수로 재시도)
func (p *Poller) checkWithRetry(ctx context.Context, status StatusFunc) (*Task, error) {
	retries := p.StatusRetries
	if retries < 0 {
		retries = 0
	}
	backoff := p.RetryBackoff
	if backoff <= 0 {
		backoff = DefaultRetryBackoff
	}

	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= retries; attempt++ {
		attempts++
		observed, err := status(ctx)
		if err == nil {
			return observed, nil
		}
		lastErr = err

		// 분류 가능한 에러는 일시적이지 않음 - 즉시 전파
		var authErr *AuthenticationError
		var valErr *ValidationError
		var taskErr *ProviderTaskFailure
		if errors.As(err, &authErr) || errors.As(err, &valErr) || errors.As(err, &taskErr) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if attempt < retries {
			log.Printf("⚠️ [Poller] Status check failed (attempt %d/%d), retrying in %v: %v",
				attempt+1, retries+1, backoff, err)
			if err := sleepCtx(ctx, backoff); err != nil {
				return nil, err
			}
			backoff *= 2
		}
	}

	return nil, &TransientNetworkError{
		Op:        "status check",
		Attempts:  attempts,
		Exhausted: true,
		Err:       lastErr,
	}
}

// sleepCtx - 취소 가능한 sleep (호출자 취소 시 다음 폴까지 기다리지 않고 즉시 중단)
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
