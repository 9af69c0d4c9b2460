package ledger

import (
	"context"
	"sort"
	"sync"
)

// MemoryService keeps game records in process memory.
type MemoryService struct {
	mu          sync.Mutex
	recentLimit int
	savedLimit  int
	games       map[string]GameRecord
}

func NewMemoryService(recentLimit, savedLimit int) *MemoryService {
	return &MemoryService{
		recentLimit: recentLimit,
		savedLimit:  savedLimit,
		games:       make(map[string]GameRecord),
	}
}

func (s *MemoryService) Close() error { return nil }

func (s *MemoryService) RecordGame(_ context.Context, rec GameRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.games[rec.GameID]; ok {
		rec.IsSaved = prev.IsSaved
	}
	rec.Events = append([]EventItem(nil), rec.Events...)
	rec.Scores = copyScores(rec.Scores)
	s.games[rec.GameID] = rec
	s.pruneLocked(rec.UserID)
	return nil
}

func (s *MemoryService) pruneLocked(userID uint64) {
	if s.recentLimit <= 0 {
		return
	}
	var unsaved []GameRecord
	for _, g := range s.games {
		if g.UserID == userID && !g.IsSaved {
			unsaved = append(unsaved, g)
		}
	}
	sortRecent(unsaved)
	for _, g := range unsaved[min(len(unsaved), s.recentLimit):] {
		delete(s.games, g.GameID)
	}
}

func (s *MemoryService) ListRecent(_ context.Context, userID uint64, limit int) ([]GameRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]GameRecord, 0)
	for _, g := range s.games {
		if g.UserID == userID {
			items = append(items, summaryOf(g))
		}
	}
	sortRecent(items)
	return items[:min(len(items), clampLimit(limit))], nil
}

func (s *MemoryService) GetGame(_ context.Context, userID uint64, gameID string) (GameRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[gameID]
	if !ok || g.UserID != userID {
		return GameRecord{}, ErrNotFound
	}
	g.Events = append([]EventItem(nil), g.Events...)
	g.Scores = copyScores(g.Scores)
	return g, nil
}

func (s *MemoryService) TopScores(_ context.Context, limit int) ([]GameRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]GameRecord, 0, len(s.games))
	for _, g := range s.games {
		items = append(items, summaryOf(g))
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Total != items[j].Total {
			return items[i].Total > items[j].Total
		}
		return items[i].EndedAt.Before(items[j].EndedAt)
	})
	return items[:min(len(items), clampLimit(limit))], nil
}

func (s *MemoryService) SetSaved(_ context.Context, userID uint64, gameID string, saved bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[gameID]
	if !ok || g.UserID != userID {
		return ErrNotFound
	}
	if saved && !g.IsSaved && s.savedLimit > 0 {
		count := 0
		for _, other := range s.games {
			if other.UserID == userID && other.IsSaved {
				count++
			}
		}
		if count >= s.savedLimit {
			return ErrSavedLimitReach
		}
	}
	g.IsSaved = saved
	s.games[gameID] = g
	if !saved {
		s.pruneLocked(userID)
	}
	return nil
}

func summaryOf(g GameRecord) GameRecord {
	g.Events = nil
	g.Scores = copyScores(g.Scores)
	return g
}

func sortRecent(items []GameRecord) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return items[i].GameID > items[j].GameID
	})
}

func copyScores(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
