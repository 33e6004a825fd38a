// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormGameRecord 游戏记录模型
type GormGameRecord struct {
	gorm.Model
	RoomID     string `gorm:"index;not null"`
	Player     string `gorm:"index;not null"`
	Rows       int    `gorm:"not null"`
	Cols       int    `gorm:"not null"`
	Mines      int    `gorm:"not null"`
	Outcome    string `gorm:"size:16;not null"`
	Revealed   int    `gorm:"default:0"`
	StartedAt  time.Time
	FinishedAt time.Time `gorm:"index"`
}

func (GormGameRecord) TableName() string { return "game_records" }

// GormPlayerStats 玩家战绩汇总, 每局结束时在同一事务内更新
type GormPlayerStats struct {
	gorm.Model
	Player     string `gorm:"uniqueIndex;not null"`
	TotalGames int    `gorm:"default:0"`
	Wins       int    `gorm:"default:0"`
	Losses     int    `gorm:"default:0"`
	LastPlayed time.Time
}

func (GormPlayerStats) TableName() string { return "player_stats" }

func NewGormGameRecord(r *GameRecord) *GormGameRecord {
	return &GormGameRecord{
		RoomID:     r.RoomID,
		Player:     r.Player,
		Rows:       r.Rows,
		Cols:       r.Cols,
		Mines:      r.Mines,
		Outcome:    r.Outcome,
		Revealed:   r.Revealed,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}

func (s *GormPlayerStats) ToStats() *PlayerStats {
	return &PlayerStats{
		Player:     s.Player,
		TotalGames: s.TotalGames,
		Wins:       s.Wins,
		Losses:     s.Losses,
		LastPlayed: s.LastPlayed,
	}
}
