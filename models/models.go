// models/models.go
package models

import (
	"time"
)

// GameRecord 一局结束后的结果, 不包含棋盘本身
type GameRecord struct {
	RoomID     string    `json:"room_id"`
	Player     string    `json:"player"`
	Rows       int       `json:"rows"`
	Cols       int       `json:"cols"`
	Mines      int       `json:"mines"`
	Outcome    string    `json:"outcome"` // won/lost
	Revealed   int       `json:"revealed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

const (
	OutcomeWon  = "won"
	OutcomeLost = "lost"
)

// PlayerStats 玩家统计信息
type PlayerStats struct {
	Player     string    `json:"player"`
	TotalGames int       `json:"total_games"`
	Wins       int       `json:"wins"`
	Losses     int       `json:"losses"`
	LastPlayed time.Time `json:"last_played"`
}

// WinRate returns wins over total games, zero when nothing was played.
func (s PlayerStats) WinRate() float64 {
	if s.TotalGames == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.TotalGames)
}

// Apply folds one finished game into the stats.
func (s *PlayerStats) Apply(record *GameRecord) {
	s.TotalGames++
	switch record.Outcome {
	case OutcomeWon:
		s.Wins++
	case OutcomeLost:
		s.Losses++
	}
	if record.FinishedAt.After(s.LastPlayed) {
		s.LastPlayed = record.FinishedAt
	}
}
