package asynctask

import (
	"errors"
	"fmt"
	"time"
)

// 에러 분류 체계 - 모든 에러는 generate-and-decode 호출자까지 그대로 전파됨
// ValidationError / AuthenticationError - 재시도 안 함 (호출자 실수 / 자격증명 문제)
// TransientNetworkError - 폴러 내부에서만 제한된 횟수로 재시도
// ProviderTaskFailure / TimeoutError - 종료 상태, 재시도 안 함
// DecodeError - 결과 디코딩 실패, 재시도 안 함

// ValidationError - 필수 입력 누락 또는 허용 범위 밖의 값
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field %q: %s", e.Field, e.Reason)
}

// NewValidationError - 필드 단위 메시지를 가진 ValidationError 생성
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// AuthenticationError - 자격증명 누락/무효
// 메시지에 자격증명 값 자체를 절대 포함하지 않음
type AuthenticationError struct {
	Provider string
	Reason   string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication error: provider %s: %s", e.Provider, e.Reason)
}

// TransientNetworkError - 일시적 HTTP 실패 (타임아웃, 5xx, 연결 끊김)
// 폴러가 제한된 횟수만큼 재시도한 뒤 Exhausted로 승격
type TransientNetworkError struct {
	Op        string
	Attempts  int
	Exhausted bool
	Err       error
}

func (e *TransientNetworkError) Error() string {
	if e.Exhausted {
		return fmt.Sprintf("transient network error (exhausted after %d attempts): %s: %v", e.Attempts, e.Op, e.Err)
	}
	return fmt.Sprintf("transient network error: %s: %v", e.Op, e.Err)
}

func (e *TransientNetworkError) Unwrap() error {
	return e.Err
}

// ProviderTaskFailure - 프로바이더가 명시적으로 작업 실패를 보고한 경우
// 프로바이더가 준 진단 메시지를 그대로 포함
type ProviderTaskFailure struct {
	Provider string
	TaskID   string
	Detail   string
}

func (e *ProviderTaskFailure) Error() string {
	return fmt.Sprintf("provider task failure: %s task %s: %s", e.Provider, e.TaskID, e.Detail)
}

// TimeoutError - max_wait_time 초과로 인한 클라이언트 측 포기
// 원격 작업은 계속 실행 중일 수 있음 (취소 아님)
type TimeoutError struct {
	TaskID  string
	Waited  time.Duration
	MaxWait time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout: task %s did not reach a terminal state within %v (waited %v); remote task abandoned, not cancelled",
		e.TaskID, e.MaxWait, e.Waited.Round(time.Millisecond))
}

// DecodeError - 결과 아티팩트를 기대한 미디어 타입으로 파싱 실패
type DecodeError struct {
	MimeType string
	Ref      string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error: ref %s (%s): %v", truncateRef(e.Ref), e.MimeType, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// 에러 종류 식별자 (DB/이벤트에 기록)
const (
	KindValidation       = "validation"
	KindAuthentication   = "authentication"
	KindTransientNetwork = "transient_network"
	KindProviderFailure  = "provider_failure"
	KindTimeout          = "timeout"
	KindDecode           = "decode"
	KindInternal         = "internal"
)

// KindOf - 에러 분류 체계상의 종류를 문자열로 반환
func KindOf(err error) string {
	var (
		valErr     *ValidationError
		authErr    *AuthenticationError
		netErr     *TransientNetworkError
		taskErr    *ProviderTaskFailure
		timeoutErr *TimeoutError
		decodeErr  *DecodeError
	)
	switch {
	case errors.As(err, &valErr):
		return KindValidation
	case errors.As(err, &authErr):
		return KindAuthentication
	case errors.As(err, &netErr):
		return KindTransientNetwork
	case errors.As(err, &taskErr):
		return KindProviderFailure
	case errors.As(err, &timeoutErr):
		return KindTimeout
	case errors.As(err, &decodeErr):
		return KindDecode
	default:
		return KindInternal
	}
}

func truncateRef(ref string) string {
	if len(ref) <= 64 {
		return ref
	}
	return ref[:64] + "..."
}
