// persistence/interface.go
package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/wfunc/minesweeper/config"
	"github.com/wfunc/minesweeper/models"
)

// Database 只保存已结束对局的结果, 从不保存棋盘
type Database interface {
	SaveGameRecord(ctx context.Context, record *models.GameRecord) error
	LoadPlayerStats(ctx context.Context, player string) (*models.PlayerStats, error)
	RecentGames(ctx context.Context, player string, limit int) ([]models.GameRecord, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = errors.New("record not found")
)

// Open 根据配置选择存储实现
func Open(cfg config.DatabaseConfig) (Database, error) {
	pg := cfg.Postgres
	switch cfg.Driver {
	case "gorm":
		return NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "sql", "postgres":
		return NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "memory", "":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
