package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/wfunc/minesweeper/models"
	"github.com/wfunc/minesweeper/persistence"
)

// ErrInvalidRecord is returned for records the store should not keep.
var ErrInvalidRecord = errors.New("invalid game record")

const defaultRecentLimit = 10

type StatsService struct {
	db persistence.Database
}

func NewStatsService(db persistence.Database) *StatsService {
	return &StatsService{db: db}
}

// RecordGame 保存一局已结束的对局
func (s *StatsService) RecordGame(ctx context.Context, record *models.GameRecord) error {
	if record.Player == "" {
		return fmt.Errorf("%w: missing player", ErrInvalidRecord)
	}
	if record.Outcome != models.OutcomeWon && record.Outcome != models.OutcomeLost {
		return fmt.Errorf("%w: outcome %q is not final", ErrInvalidRecord, record.Outcome)
	}
	return s.db.SaveGameRecord(ctx, record)
}

// GetPlayerStats 获取玩家战绩; 没有记录的玩家返回零值统计
func (s *StatsService) GetPlayerStats(ctx context.Context, player string) (*models.PlayerStats, error) {
	stats, err := s.db.LoadPlayerStats(ctx, player)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return &models.PlayerStats{Player: player}, nil
	}
	return stats, err
}

// GetPlayerSummary 战绩加最近的对局
func (s *StatsService) GetPlayerSummary(ctx context.Context, player string, limit int) (map[string]interface{}, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	stats, err := s.GetPlayerStats(ctx, player)
	if err != nil {
		return nil, err
	}
	recent, err := s.db.RecentGames(ctx, player, limit)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"stats":    stats,
		"win_rate": stats.WinRate(),
		"recent":   recent,
	}, nil
}
