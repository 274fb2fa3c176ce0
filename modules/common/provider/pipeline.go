package provider

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"context"

	"tryon-gateway/modules/common/asynctask"
	"tryon-gateway/modules/common/resolver"
)

// Pipeline - submit → poll → resolve 전체 흐름의 진입점
// 호출 간 공유 상태 없음: 호출마다 자기 Task를 소유하므로 동시 호출은 완전히 독립적
type Pipeline struct {
	Poller     *asynctask.Poller
	HTTPClient *http.Client
	resolver   *resolver.Resolver
}

// NewPipeline - 기본 폴러/클라이언트로 Pipeline 생성
func NewPipeline() *Pipeline {
	client := &http.Client{Timeout: 120 * time.Second}
	return &Pipeline{
		Poller:     asynctask.NewPoller(),
		HTTPClient: client,
		resolver:   resolver.New(client),
	}
}

// GenerateAndDecode - 단일 호출자 진입점
// 동기/비동기 프로바이더 구분을 숨기고, 검증 → 정규화 → 생성(+폴링) → 결과 해석을 수행
// 비어 있지 않은 아티팩트 목록을 반환하거나 분류된 에러 하나를 반환 (부분 성공 없음)
func (pl *Pipeline) GenerateAndDecode(ctx context.Context, p Provider, req *Request) ([]resolver.Artifact, error) {
	if p == nil {
		return nil, fmt.Errorf("pipeline: nil provider")
	}
	if req == nil {
		return nil, asynctask.NewValidationError("request", "request is nil")
	}

	// 1. 네트워크 호출 전 검증
	if err := validateRequest(p, req); err != nil {
		return nil, err
	}

	// 2. 이미지 입력 정규화 (URL ref의 GET 한 번 제외하면 순수 단계)
	resolved, err := pl.resolveInputs(ctx, p, req)
	if err != nil {
		return nil, err
	}

	// 3. 생성 - 동기 프로바이더는 바로 종료 상태 Task, 비동기는 제출 후 폴링
	task, err := pl.runProvider(ctx, p, resolved)
	if err != nil {
		return nil, err
	}

	// 4. 결과 해석
	artifacts, err := pl.resolver.Resolve(ctx, task)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ [Pipeline] %s: %d artifact(s) decoded (task %s)", p.Name(), len(artifacts), task.TaskID)
	return artifacts, nil
}

// validateRequest - 프로바이더의 Requirements 선언에 따른 사전 검증
func validateRequest(p Provider, req *Request) error {
	reqs := p.Requirements()

	if reqs.NeedsPrimary && req.PrimaryInput.IsZero() {
		return asynctask.NewValidationError("primary_input",
			fmt.Sprintf("provider %s requires a primary input image", p.Name()))
	}
	if reqs.NeedsSecondary && (req.SecondaryInput == nil || req.SecondaryInput.IsZero()) {
		return asynctask.NewValidationError("secondary_input",
			fmt.Sprintf("provider %s requires a secondary input image", p.Name()))
	}
	if reqs.NeedsPrompt && req.Prompt == "" {
		return asynctask.NewValidationError("prompt",
			fmt.Sprintf("provider %s requires a prompt", p.Name()))
	}

	if req.Options != nil {
		if req.Options.ProviderName() != p.Name() {
			return asynctask.NewValidationError("options",
				fmt.Sprintf("options for provider %s passed to provider %s",
					req.Options.ProviderName(), p.Name()))
		}
		if err := req.Options.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// resolveInputs - 요청의 이미지 ref들을 바이트로 정규화
func (pl *Pipeline) resolveInputs(ctx context.Context, p Provider, req *Request) (*ResolvedRequest, error) {
	out := &ResolvedRequest{Prompt: req.Prompt, Options: req.Options}

	if !req.PrimaryInput.IsZero() {
		primary, err := req.PrimaryInput.Resolve(ctx, pl.HTTPClient)
		if err != nil {
			return nil, err
		}
		out.Primary = primary
	}
	if req.SecondaryInput != nil && !req.SecondaryInput.IsZero() {
		secondary, err := req.SecondaryInput.Resolve(ctx, pl.HTTPClient)
		if err != nil {
			return nil, err
		}
		out.Secondary = secondary
	}
	return out, nil
}

// runProvider - 동기/비동기 능력에 따라 다형적으로 디스패치
func (pl *Pipeline) runProvider(ctx context.Context, p Provider, resolved *ResolvedRequest) (*asynctask.Task, error) {
	switch impl := p.(type) {
	case SyncProvider:
		task, err := impl.Generate(ctx, resolved)
		if err != nil {
			return nil, err
		}
		if task == nil || task.Status != asynctask.StatusSucceeded {
			return nil, fmt.Errorf("pipeline: sync provider %s returned a non-terminal task", p.Name())
		}
		return task, nil

	case AsyncProvider:
		task, err := impl.Submit(ctx, resolved)
		if err != nil {
			return nil, err
		}
		log.Printf("🚀 [Pipeline] %s: task %s submitted, polling...", p.Name(), task.TaskID)

		done, err := pl.Poller.Wait(ctx, task, func(ctx context.Context) (*asynctask.Task, error) {
			return impl.Status(ctx, task.TaskID)
		})
		if err != nil {
			// 폴러가 만든 ProviderTaskFailure에 프로바이더 이름 보강
			if taskErr, ok := err.(*asynctask.ProviderTaskFailure); ok && taskErr.Provider == "" {
				taskErr.Provider = p.Name()
			}
			return nil, err
		}
		return done, nil

	default:
		return nil, fmt.Errorf("pipeline: provider %s implements neither sync nor async capability", p.Name())
	}
}
