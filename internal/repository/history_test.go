package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"anyvidow/client/internal/models"
)

func newTestRepo(t *testing.T) *FileHistoryRepository {
	t.Helper()
	return NewFileHistoryRepository(filepath.Join(t.TempDir(), "history.json"))
}

func entry(url, title string) models.HistoryEntry {
	return models.HistoryEntry{
		Title:       title,
		OriginalURL: url,
		Platform:    "YouTube",
		Date:        time.Now(),
	}
}

func TestFileHistoryRepository_EmptyOnMissingFile(t *testing.T) {
	repo := newTestRepo(t)

	entries, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("List() returned %d entries, expected 0", len(entries))
	}
}

func TestFileHistoryRepository_AddNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	repo.Add(ctx, entry("https://example.com/a", "A"))
	repo.Add(ctx, entry("https://example.com/b", "B"))
	repo.Add(ctx, entry("https://example.com/c", "C"))

	entries, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("List() returned %d entries, expected 3", len(entries))
	}
	if entries[0].Title != "C" || entries[2].Title != "A" {
		t.Errorf("expected newest first, got [%s %s %s]",
			entries[0].Title, entries[1].Title, entries[2].Title)
	}
}

func TestFileHistoryRepository_DedupeMovesToFront(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	repo.Add(ctx, entry("https://example.com/a", "A"))
	repo.Add(ctx, entry("https://example.com/b", "B"))
	// 同URL重新下载: 旧记录上移,不产生重复
	repo.Add(ctx, entry("https://example.com/a", "A again"))

	entries, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("List() returned %d entries, expected 2", len(entries))
	}
	if entries[0].OriginalURL != "https://example.com/a" {
		t.Errorf("duplicated URL should move to front, got %s", entries[0].OriginalURL)
	}
	if entries[0].Title != "A again" {
		t.Errorf("front entry should carry the new metadata, got %q", entries[0].Title)
	}
}

func TestFileHistoryRepository_CapEvictsOldest(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < MaxHistoryEntries+1; i++ {
		repo.Add(ctx, entry(fmt.Sprintf("https://example.com/%d", i), fmt.Sprintf("V%d", i)))
	}

	entries, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(entries) != MaxHistoryEntries {
		t.Fatalf("List() returned %d entries, expected %d", len(entries), MaxHistoryEntries)
	}
	if entries[0].Title != fmt.Sprintf("V%d", MaxHistoryEntries) {
		t.Errorf("front entry = %q, expected the newest", entries[0].Title)
	}
	// 最旧的V0被淘汰
	for _, e := range entries {
		if e.Title == "V0" {
			t.Error("oldest entry should have been evicted")
		}
	}
}

func TestFileHistoryRepository_RemoveAt(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	repo.Add(ctx, entry("https://example.com/a", "A"))
	repo.Add(ctx, entry("https://example.com/b", "B"))

	if err := repo.RemoveAt(ctx, 0); err != nil {
		t.Fatalf("RemoveAt() error: %v", err)
	}

	entries, _ := repo.List(ctx)
	if len(entries) != 1 || entries[0].Title != "A" {
		t.Errorf("expected only A to remain, got %d entries", len(entries))
	}

	if err := repo.RemoveAt(ctx, 5); err != models.ErrIndexOutOfRange {
		t.Errorf("RemoveAt(5) error = %v, expected ErrIndexOutOfRange", err)
	}
}

func TestFileHistoryRepository_Clear(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	repo.Add(ctx, entry("https://example.com/a", "A"))
	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}

	entries, _ := repo.List(ctx)
	if len(entries) != 0 {
		t.Errorf("List() after Clear returned %d entries, expected 0", len(entries))
	}
}

func TestPushFront(t *testing.T) {
	var entries []models.HistoryEntry
	entries = pushFront(entries, entry("u1", "A"))
	entries = pushFront(entries, entry("u2", "B"))
	entries = pushFront(entries, entry("u1", "A2"))

	if len(entries) != 2 {
		t.Fatalf("len = %d, expected 2", len(entries))
	}
	if entries[0].OriginalURL != "u1" || entries[1].OriginalURL != "u2" {
		t.Errorf("unexpected order: [%s %s]", entries[0].OriginalURL, entries[1].OriginalURL)
	}
}
