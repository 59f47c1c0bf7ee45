package repository

import (
	"context"

	"anyvidow/client/internal/models"
)

// MaxHistoryEntries 历史记录上限,超出时淘汰最旧的一条
const MaxHistoryEntries = 50

// HistoryStore 本地下载历史仓储。
// 列表按最新在前排序,按original_url去重,上限50条。
type HistoryStore interface {
	// List 返回全部记录,最新在前
	List(ctx context.Context) ([]models.HistoryEntry, error)

	// Add 追加一条记录: 同URL的旧记录移到最前,不重复;
	// 超出上限时淘汰最旧的一条
	Add(ctx context.Context, entry models.HistoryEntry) error

	// RemoveAt 按下标删除一条记录
	RemoveAt(ctx context.Context, index int) error

	// Clear 清空全部记录
	Clear(ctx context.Context) error
}

// pushFront 去重后插到最前,并按上限淘汰。
// 各后端共用的纯列表操作。
func pushFront(entries []models.HistoryEntry, entry models.HistoryEntry) []models.HistoryEntry {
	filtered := make([]models.HistoryEntry, 0, len(entries)+1)
	filtered = append(filtered, entry)
	for _, e := range entries {
		if e.OriginalURL == entry.OriginalURL {
			continue
		}
		filtered = append(filtered, e)
	}
	if len(filtered) > MaxHistoryEntries {
		filtered = filtered[:MaxHistoryEntries]
	}
	return filtered
}
