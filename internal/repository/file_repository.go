package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"anyvidow/client/internal/models"
)

// FileHistoryRepository 文件历史仓储,
// 整个列表序列化成一个JSON文件(固定路径)。
type FileHistoryRepository struct {
	path string
	mu   sync.Mutex
}

// NewFileHistoryRepository 创建文件历史仓储
func NewFileHistoryRepository(path string) *FileHistoryRepository {
	return &FileHistoryRepository{path: path}
}

// List 实现HistoryStore
func (r *FileHistoryRepository) List(ctx context.Context) ([]models.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

// Add 实现HistoryStore
func (r *FileHistoryRepository) Add(ctx context.Context, entry models.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load()
	if err != nil {
		return err
	}
	return r.save(pushFront(entries, entry))
}

// RemoveAt 实现HistoryStore
func (r *FileHistoryRepository) RemoveAt(ctx context.Context, index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(entries) {
		return models.ErrIndexOutOfRange
	}
	return r.save(append(entries[:index], entries[index+1:]...))
}

// Clear 实现HistoryStore
func (r *FileHistoryRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save(nil)
}

// load 读出整个列表,文件不存在视为空列表
func (r *FileHistoryRepository) load() ([]models.HistoryEntry, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var entries []models.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse history file: %w", err)
	}
	return entries, nil
}

// save 写回整个列表
func (r *FileHistoryRepository) save(entries []models.HistoryEntry) error {
	if entries == nil {
		entries = []models.HistoryEntry{}
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create history dir: %w", err)
		}
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	return nil
}
