// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"

	"github.com/wfunc/minesweeper/models"
)

// PostgreSQL 数据库实现 (database/sql + lib/pq)
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return setupSQL(ctx, db)
}

// setupSQL 测试连接并建表, 失败时关闭连接池
func setupSQL(ctx context.Context, db *sql.DB) (*PostgreSQL, error) {
	// 测试连接
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构, 与 GORM 模型使用相同的表
func initTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS game_records (
            id SERIAL PRIMARY KEY,
            room_id VARCHAR(64) NOT NULL,
            player VARCHAR(128) NOT NULL,
            rows INT NOT NULL,
            cols INT NOT NULL,
            mines INT NOT NULL,
            outcome VARCHAR(16) NOT NULL,
            revealed INT NOT NULL DEFAULT 0,
            started_at TIMESTAMPTZ,
            finished_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            deleted_at TIMESTAMPTZ
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS player_stats (
            id SERIAL PRIMARY KEY,
            player VARCHAR(128) UNIQUE NOT NULL,
            total_games INT NOT NULL DEFAULT 0,
            wins INT NOT NULL DEFAULT 0,
            losses INT NOT NULL DEFAULT 0,
            last_played TIMESTAMPTZ,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            deleted_at TIMESTAMPTZ
        )
    `)
	if err != nil {
		return err
	}

	// 创建索引以提高查询性能
	_, err = db.ExecContext(ctx, `
        CREATE INDEX IF NOT EXISTS idx_game_records_player ON game_records(player);
        CREATE INDEX IF NOT EXISTS idx_game_records_finished_at ON game_records(finished_at);
    `)
	return err
}

// SaveGameRecord 保存对局结果
func (p *PostgreSQL) SaveGameRecord(ctx context.Context, record *models.GameRecord) error {
	won, lost := 0, 0
	switch record.Outcome {
	case models.OutcomeWon:
		won = 1
	case models.OutcomeLost:
		lost = 1
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO game_records (room_id, player, rows, cols, mines, outcome, revealed, started_at, finished_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, record.RoomID, record.Player, record.Rows, record.Cols, record.Mines,
		record.Outcome, record.Revealed, record.StartedAt, record.FinishedAt)
	if err != nil {
		return err
	}

	// 使用 UPSERT 操作 (PostgreSQL 9.5+)
	_, err = tx.ExecContext(ctx, `
        INSERT INTO player_stats (player, total_games, wins, losses, last_played)
        VALUES ($1, 1, $2, $3, $4)
        ON CONFLICT (player)
        DO UPDATE SET total_games = player_stats.total_games + 1,
                      wins = player_stats.wins + $2,
                      losses = player_stats.losses + $3,
                      last_played = GREATEST(player_stats.last_played, $4),
                      updated_at = CURRENT_TIMESTAMP
    `, record.Player, won, lost, record.FinishedAt)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// LoadPlayerStats 加载玩家战绩
func (p *PostgreSQL) LoadPlayerStats(ctx context.Context, player string) (*models.PlayerStats, error) {
	stats := &models.PlayerStats{Player: player}
	var lastPlayed sql.NullTime

	query := `SELECT total_games, wins, losses, last_played FROM player_stats WHERE player = $1`
	err := p.db.QueryRowContext(ctx, query, player).Scan(&stats.TotalGames, &stats.Wins, &stats.Losses, &lastPlayed)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	if lastPlayed.Valid {
		stats.LastPlayed = lastPlayed.Time
	}
	return stats, nil
}

// RecentGames 最近的对局, 新的在前
func (p *PostgreSQL) RecentGames(ctx context.Context, player string, limit int) ([]models.GameRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, `
        SELECT room_id, player, rows, cols, mines, outcome, revealed, started_at, finished_at
        FROM game_records WHERE player = $1
        ORDER BY finished_at DESC LIMIT $2
    `, player, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []models.GameRecord
	for rows.Next() {
		var g models.GameRecord
		var started, finished sql.NullTime
		if err := rows.Scan(&g.RoomID, &g.Player, &g.Rows, &g.Cols, &g.Mines, &g.Outcome, &g.Revealed, &started, &finished); err != nil {
			return nil, err
		}
		g.StartedAt = started.Time
		g.FinishedAt = finished.Time
		games = append(games, g)
	}
	return games, rows.Err()
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
