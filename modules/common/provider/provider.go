package provider

import (
	"context"

	"tryon-gateway/modules/common/asynctask"
	"tryon-gateway/modules/common/imageref"
)

// Options - 프로바이더별 옵션 (태그된 유니온)
// 각 어댑터가 자기 옵션 구조체로 구현하며, 네트워크 호출 전에 Validate가 호출됨
type Options interface {
	ProviderName() string
	Validate() error
}

// Requirements - 프로바이더가 요구하는 입력 형태
// 검증은 프로바이더 정체성 분기 대신 이 선언을 보고 수행
type Requirements struct {
	NeedsPrimary   bool // 주 입력 이미지 (인물/소스)
	NeedsSecondary bool // 보조 입력 이미지 (의상/참조)
	NeedsPrompt    bool
}

// Provider - 모든 어댑터의 공통 표면
type Provider interface {
	Name() string
	Requirements() Requirements
}

// SyncProvider - 제출 즉시 결과를 돌려주는 프로바이더
// 반환 Task는 이미 succeeded 상태 (result ref 포함)
type SyncProvider interface {
	Provider
	Generate(ctx context.Context, req *ResolvedRequest) (*asynctask.Task, error)
}

// AsyncProvider - 작업 제출 후 폴링이 필요한 프로바이더
type AsyncProvider interface {
	Provider
	Submit(ctx context.Context, req *ResolvedRequest) (*asynctask.Task, error)
	Status(ctx context.Context, taskID string) (*asynctask.Task, error)
}

// Request - generate-and-decode 호출자의 요청
type Request struct {
	PrimaryInput   imageref.Ref
	SecondaryInput *imageref.Ref
	Prompt         string
	Options        Options
}

// ResolvedRequest - 이미지 정규화가 끝난 뒤 어댑터에 전달되는 요청
type ResolvedRequest struct {
	Primary   *imageref.Resolved
	Secondary *imageref.Resolved
	Prompt    string
	Options   Options
}
