package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/wfunc/minesweeper/models"
)

// Memory keeps records in process memory. Used when no database is
// configured and in tests.
type Memory struct {
	records []models.GameRecord
	stats   map[string]*models.PlayerStats
	mutex   sync.RWMutex
}

func NewMemory() *Memory {
	return &Memory{stats: make(map[string]*models.PlayerStats)}
}

func (m *Memory) SaveGameRecord(ctx context.Context, record *models.GameRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.records = append(m.records, *record)
	stats, ok := m.stats[record.Player]
	if !ok {
		stats = &models.PlayerStats{Player: record.Player}
		m.stats[record.Player] = stats
	}
	stats.Apply(record)
	return nil
}

func (m *Memory) LoadPlayerStats(ctx context.Context, player string) (*models.PlayerStats, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	stats, ok := m.stats[player]
	if !ok {
		return nil, ErrRecordNotFound
	}
	copied := *stats
	return &copied, nil
}

// RecentGames returns the player's games, newest first.
func (m *Memory) RecentGames(ctx context.Context, player string, limit int) ([]models.GameRecord, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var games []models.GameRecord
	for _, r := range m.records {
		if r.Player == player {
			games = append(games, r)
		}
	}
	sort.SliceStable(games, func(i, j int) bool {
		return games[i].FinishedAt.After(games[j].FinishedAt)
	})
	if limit > 0 && len(games) > limit {
		games = games[:limit]
	}
	return games, nil
}

func (m *Memory) Close() error {
	return nil
}
