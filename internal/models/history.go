package models

import "time"

// HistoryEntry 本地下载历史的一条记录。
// 记录的是发起下载的意图,不代表下载最终成功。
type HistoryEntry struct {
	Title       string    `json:"title"`
	OriginalURL string    `json:"original_url"`
	Thumbnail   string    `json:"thumbnail"`
	Platform    string    `json:"platform"`
	Date        time.Time `json:"date"`
}
