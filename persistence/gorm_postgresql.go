// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/wfunc/minesweeper/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold: time.Second,   // 慢SQL阈值
			LogLevel:      logger.Silent, // 日志级别
			Colorful:      false,         // 禁用彩色打印
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		// gorm keeps the pool open when the initial ping fails
		if db != nil {
			if sqlDB, dbErr := db.DB(); dbErr == nil {
				sqlDB.Close()
			}
		}
		return nil, err
	}

	// 获取通用数据库对象 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := autoMigrate(db); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// autoMigrate 自动迁移表结构
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.GormGameRecord{},
		&models.GormPlayerStats{},
	)
}

// SaveGameRecord 保存对局结果并在同一事务内更新玩家战绩
func (p *GormPostgreSQL) SaveGameRecord(ctx context.Context, record *models.GameRecord) error {
	won, lost := 0, 0
	switch record.Outcome {
	case models.OutcomeWon:
		won = 1
	case models.OutcomeLost:
		lost = 1
	}

	return p.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(models.NewGormGameRecord(record)).Error; err != nil {
			return err
		}

		// UPSERT: 首局插入, 之后累加
		stats := models.GormPlayerStats{
			Player:     record.Player,
			TotalGames: 1,
			Wins:       won,
			Losses:     lost,
			LastPlayed: record.FinishedAt,
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "player"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"total_games": gorm.Expr("player_stats.total_games + 1"),
				"wins":        gorm.Expr("player_stats.wins + ?", won),
				"losses":      gorm.Expr("player_stats.losses + ?", lost),
				"last_played": gorm.Expr("GREATEST(player_stats.last_played, ?)", record.FinishedAt),
				"updated_at":  time.Now(),
			}),
		}).Create(&stats).Error
	})
}

// LoadPlayerStats 加载玩家战绩
func (p *GormPostgreSQL) LoadPlayerStats(ctx context.Context, player string) (*models.PlayerStats, error) {
	var stats models.GormPlayerStats
	if err := p.db.WithContext(ctx).Where("player = ?", player).First(&stats).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return stats.ToStats(), nil
}

// RecentGames 最近的对局, 新的在前
func (p *GormPostgreSQL) RecentGames(ctx context.Context, player string, limit int) ([]models.GameRecord, error) {
	var rows []models.GormGameRecord
	q := p.db.WithContext(ctx).Where("player = ?", player).Order("finished_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	games := make([]models.GameRecord, 0, len(rows))
	for _, r := range rows {
		games = append(games, models.GameRecord{
			RoomID:     r.RoomID,
			Player:     r.Player,
			Rows:       r.Rows,
			Cols:       r.Cols,
			Mines:      r.Mines,
			Outcome:    r.Outcome,
			Revealed:   r.Revealed,
			StartedAt:  r.StartedAt,
			FinishedAt: r.FinishedAt,
		})
	}
	return games, nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction 事务支持
func (p *GormPostgreSQL) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return p.db.WithContext(ctx).Transaction(fn)
}
