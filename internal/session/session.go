package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/local/pdfviewer/internal/extract"
	"github.com/local/pdfviewer/internal/store"
)

// DocumentRef is the session's pointer to its currently open document.
type DocumentRef struct {
	ID         store.DocumentID `json:"id"`
	Title      string           `json:"title"`
	TotalPages int              `json:"total_page_count"`
	Filename   string           `json:"filename"`
}

// Manager keeps per-session state in Redis: the open document, the current
// page, bookmarks, notes and the latest extraction progress snapshot. Every
// value is written as one JSON record so pollers never see partial state.
type Manager struct {
	client *redis.Client
	ttl    time.Duration
}

func NewManager(redisURL string, ttl time.Duration) (*Manager, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	c := redis.NewClient(opt)
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Manager{client: c, ttl: ttl}, nil
}

func (m *Manager) Close() error { return m.client.Close() }

// Ping reports Redis reachability, for health checks.
func (m *Manager) Ping(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

func (m *Manager) key(sid, field string) string {
	return fmt.Sprintf("session:%s:%s", sid, field)
}

func (m *Manager) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal session value: %w", err)
	}
	return m.client.Set(ctx, key, data, m.ttl).Err()
}

// getJSON returns false when the key does not exist.
func (m *Manager) getJSON(ctx context.Context, key string, v any) (bool, error) {
	data, err := m.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("unmarshal session value: %w", err)
	}
	return true, nil
}

func (m *Manager) SetDocument(ctx context.Context, sid string, ref DocumentRef) error {
	return m.setJSON(ctx, m.key(sid, "document"), ref)
}

func (m *Manager) Document(ctx context.Context, sid string) (DocumentRef, bool, error) {
	var ref DocumentRef
	ok, err := m.getJSON(ctx, m.key(sid, "document"), &ref)
	return ref, ok, err
}

func (m *Manager) SetCurrentPage(ctx context.Context, sid string, page int) error {
	return m.setJSON(ctx, m.key(sid, "page"), page)
}

func (m *Manager) CurrentPage(ctx context.Context, sid string) (int, error) {
	var page int
	ok, err := m.getJSON(ctx, m.key(sid, "page"), &page)
	if err != nil || !ok {
		return 1, err
	}
	return page, nil
}

// AddBookmark is idempotent: bookmarking an already bookmarked page keeps
// the list unchanged.
func (m *Manager) AddBookmark(ctx context.Context, sid string, page int) ([]int, error) {
	marks, err := m.Bookmarks(ctx, sid)
	if err != nil {
		return nil, err
	}
	for _, b := range marks {
		if b == page {
			return marks, nil
		}
	}
	marks = append(marks, page)
	sort.Ints(marks)
	return marks, m.setJSON(ctx, m.key(sid, "bookmarks"), marks)
}

func (m *Manager) RemoveBookmark(ctx context.Context, sid string, page int) ([]int, error) {
	marks, err := m.Bookmarks(ctx, sid)
	if err != nil {
		return nil, err
	}
	kept := marks[:0]
	for _, b := range marks {
		if b != page {
			kept = append(kept, b)
		}
	}
	return kept, m.setJSON(ctx, m.key(sid, "bookmarks"), kept)
}

func (m *Manager) Bookmarks(ctx context.Context, sid string) ([]int, error) {
	var marks []int
	if _, err := m.getJSON(ctx, m.key(sid, "bookmarks"), &marks); err != nil {
		return nil, err
	}
	return marks, nil
}

// SetNote stores a note for a page. An empty note deletes the entry.
func (m *Manager) SetNote(ctx context.Context, sid string, page int, note string) (map[int]string, error) {
	notes, err := m.Notes(ctx, sid)
	if err != nil {
		return nil, err
	}
	if notes == nil {
		notes = map[int]string{}
	}
	if note == "" {
		delete(notes, page)
	} else {
		notes[page] = note
	}
	return notes, m.setJSON(ctx, m.key(sid, "notes"), notes)
}

func (m *Manager) Notes(ctx context.Context, sid string) (map[int]string, error) {
	var notes map[int]string
	if _, err := m.getJSON(ctx, m.key(sid, "notes"), &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

func (m *Manager) SetProgress(ctx context.Context, sid string, snap extract.Snapshot) error {
	return m.setJSON(ctx, m.key(sid, "progress"), snap)
}

func (m *Manager) Progress(ctx context.Context, sid string) (extract.Snapshot, error) {
	snap := extract.Snapshot{Status: extract.StatusIdle}
	if _, err := m.getJSON(ctx, m.key(sid, "progress"), &snap); err != nil {
		return snap, err
	}
	return snap, nil
}

// Clear drops every record the session owns.
func (m *Manager) Clear(ctx context.Context, sid string) error {
	keys := []string{
		m.key(sid, "document"),
		m.key(sid, "page"),
		m.key(sid, "bookmarks"),
		m.key(sid, "notes"),
		m.key(sid, "progress"),
	}
	return m.client.Del(ctx, keys...).Err()
}
