package cancel

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// 취소 플래그 키 프리픽스 / TTL
const (
	keyPrefix = "jobs:cancel:"
	flagTTL   = 24 * time.Hour
)

// Store - Redis 기반 Job 취소 플래그
// 핸들러가 플래그를 세우고 워커가 단계마다 확인
type Store struct {
	rdb *redis.Client
}

// NewStore - Store 생성
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Request - Job 취소 요청 플래그 설정
func (s *Store) Request(ctx context.Context, jobID string) error {
	if err := s.rdb.Set(ctx, keyPrefix+jobID, "1", flagTTL).Err(); err != nil {
		return err
	}
	log.Printf("🛑 Cancel requested for job: %s", jobID)
	return nil
}

// IsCancelled - 취소 플래그 확인 (조회 실패 시 취소 아님으로 처리)
func (s *Store) IsCancelled(ctx context.Context, jobID string) bool {
	val, err := s.rdb.Get(ctx, keyPrefix+jobID).Result()
	if err != nil {
		return false
	}
	return val == "1"
}

// Clear - 취소 플래그 제거 (Job 종료 후 정리)
func (s *Store) Clear(ctx context.Context, jobID string) {
	if err := s.rdb.Del(ctx, keyPrefix+jobID).Err(); err != nil {
		log.Printf("⚠️ Failed to clear cancel flag for %s: %v", jobID, err)
	}
}
