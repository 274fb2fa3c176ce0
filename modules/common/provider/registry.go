package provider

import (
	"fmt"
	"log"
	"sort"
	"sync"
)

// Registry - 프로바이더 이름 → 어댑터 디스패치 테이블
// HTTP 핸들러, 워커, MCP 툴이 같은 테이블을 공유
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry - 빈 Registry 생성
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register - 프로바이더 등록 (자격증명이 없는 프로바이더는 등록 단계에서 제외됨)
func (r *Registry) Register(p Provider) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
	log.Printf("✅ [Registry] Provider registered: %s", p.Name())
}

// Get - 이름으로 프로바이더 조회
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s (available: %v)", name, r.names())
	}
	return p, nil
}

// Names - 등록된 프로바이더 이름 목록 (정렬됨)
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names()
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
