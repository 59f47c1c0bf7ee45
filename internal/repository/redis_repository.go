package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"anyvidow/client/internal/models"
)

// historyKey 历史列表在Redis中的固定key
const historyKey = "anyvidow:download_history"

// RedisHistoryRepository Redis历史仓储,
// 和文件后端一样把整个列表存成一个JSON串,不设TTL。
type RedisHistoryRepository struct {
	redis *redis.Client
}

// NewRedisHistoryRepository 创建Redis历史仓储
func NewRedisHistoryRepository(redisClient *redis.Client) *RedisHistoryRepository {
	return &RedisHistoryRepository{redis: redisClient}
}

// List 实现HistoryStore
func (r *RedisHistoryRepository) List(ctx context.Context) ([]models.HistoryEntry, error) {
	return r.load(ctx)
}

// Add 实现HistoryStore
func (r *RedisHistoryRepository) Add(ctx context.Context, entry models.HistoryEntry) error {
	entries, err := r.load(ctx)
	if err != nil {
		return err
	}
	return r.save(ctx, pushFront(entries, entry))
}

// RemoveAt 实现HistoryStore
func (r *RedisHistoryRepository) RemoveAt(ctx context.Context, index int) error {
	entries, err := r.load(ctx)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(entries) {
		return models.ErrIndexOutOfRange
	}
	return r.save(ctx, append(entries[:index], entries[index+1:]...))
}

// Clear 实现HistoryStore
func (r *RedisHistoryRepository) Clear(ctx context.Context) error {
	if err := r.redis.Del(ctx, historyKey).Err(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// load 读出整个列表,key不存在视为空列表
func (r *RedisHistoryRepository) load(ctx context.Context) ([]models.HistoryEntry, error) {
	data, err := r.redis.Get(ctx, historyKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var entries []models.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse history data: %w", err)
	}
	return entries, nil
}

// save 写回整个列表
func (r *RedisHistoryRepository) save(ctx context.Context, entries []models.HistoryEntry) error {
	if entries == nil {
		entries = []models.HistoryEntry{}
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	if err := r.redis.Set(ctx, historyKey, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}
