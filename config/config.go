package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Game     GameConfig     `mapstructure:"game"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	HTTPAddress    string        `mapstructure:"http_address"`
	RPCAddress     string        `mapstructure:"rpc_address"`
	MetricsAddress string        `mapstructure:"metrics_address"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	ReapInterval   time.Duration `mapstructure:"reap_interval"`
}

type DatabaseConfig struct {
	// Driver selects the outcome store: "gorm", "sql" or "memory".
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// GameConfig holds the grid presets offered to players and the limits
// applied to custom grids.
type GameConfig struct {
	DefaultPreset string   `mapstructure:"default_preset"`
	MaxRows       int      `mapstructure:"max_rows"`
	MaxCols       int      `mapstructure:"max_cols"`
	Presets       []Preset `mapstructure:"presets"`
}

type Preset struct {
	Name  string `mapstructure:"name" json:"name"`
	Rows  int    `mapstructure:"rows" json:"rows"`
	Cols  int    `mapstructure:"cols" json:"cols"`
	Mines int    `mapstructure:"mines" json:"mines"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Preset looks up a preset by name; an empty name selects the default.
func (g GameConfig) Preset(name string) (Preset, bool) {
	if name == "" {
		name = g.DefaultPreset
	}
	for _, p := range g.Presets {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Preset{}, false
}

// CheckSize rejects grids larger than the configured limits. Mine
// counts are validated by the board itself.
func (g GameConfig) CheckSize(rows, cols int) error {
	if rows > g.MaxRows || cols > g.MaxCols {
		return fmt.Errorf("grid %dx%d exceeds limit %dx%d", rows, cols, g.MaxRows, g.MaxCols)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":8081")
	v.SetDefault("server.metrics_address", ":9090")
	v.SetDefault("server.idle_timeout", 30*time.Minute)
	v.SetDefault("server.reap_interval", time.Minute)

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.dbname", "minesweeper")

	// 8x8 and 9x9 with ten mines, the classic menu choices
	v.SetDefault("game.default_preset", "beginner")
	v.SetDefault("game.max_rows", 64)
	v.SetDefault("game.max_cols", 64)
	v.SetDefault("game.presets", []map[string]interface{}{
		{"name": "beginner", "rows": 8, "cols": 8, "mines": 10},
		{"name": "classic", "rows": 9, "cols": 9, "mines": 10},
	})

	v.SetDefault("log.level", "info")
}

// LoadConfig reads config.yaml from path. A missing file is not an
// error: defaults and MINES_* environment variables still apply.
func LoadConfig(path string) (config *Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("mines")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if _, ok := config.Game.Preset(""); !ok {
		return nil, fmt.Errorf("default preset %q is not defined", config.Game.DefaultPreset)
	}
	return config, nil
}
