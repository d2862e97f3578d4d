package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Engine   EngineConfig   `mapstructure:"engine"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type EngineConfig struct {
	AIMoveBudgetMS int          `mapstructure:"ai_move_budget_ms"`
	Rooms          []RoomConfig `mapstructure:"rooms"`
}

// RoomConfig is the standing configuration of one perpetual room. Timing
// fields are plain seconds in the YAML.
type RoomConfig struct {
	ID                       string `mapstructure:"id"`
	Name                     string `mapstructure:"name"`
	Capacity                 int    `mapstructure:"capacity"`
	GradeBand                string `mapstructure:"grade_band"`
	CardSelectionTimeSeconds int    `mapstructure:"card_selection_time_seconds"`
	MVPSelectionTimeSeconds  int    `mapstructure:"mvp_selection_time_seconds"`
	RevealTimeSeconds        int    `mapstructure:"reveal_time_seconds"`
	IntermissionSeconds      int    `mapstructure:"intermission_duration_seconds"`
	SeatGraceSeconds         int    `mapstructure:"seat_grace_seconds"`
	AIFillEnabled            bool   `mapstructure:"ai_fill_enabled"`
	AIDifficulty             string `mapstructure:"ai_difficulty"`
}

func (r RoomConfig) CardSelectionWindow() time.Duration {
	return secondsOr(r.CardSelectionTimeSeconds, 60)
}

func (r RoomConfig) MVPSelectionWindow() time.Duration {
	return secondsOr(r.MVPSelectionTimeSeconds, 30)
}

func (r RoomConfig) RevealWindow() time.Duration {
	return secondsOr(r.RevealTimeSeconds, 8)
}

func (r RoomConfig) IntermissionDuration() time.Duration {
	return secondsOr(r.IntermissionSeconds, 15)
}

func (r RoomConfig) SeatGrace() time.Duration {
	return secondsOr(r.SeatGraceSeconds, 10)
}

func (e EngineConfig) AIMoveBudget() time.Duration {
	if e.AIMoveBudgetMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(e.AIMoveBudgetMS) * time.Millisecond
}

func secondsOr(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
