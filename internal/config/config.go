package config

import (
	"os"
	"strconv"
	"time"
)

// Config 应用配置
type Config struct {
	Port      string
	DBPath    string
	JWTSecret string

	// 空间网格配置
	SpatialResolution   int // resolution for new submissions (1-15)
	SmoothingResolution int // resolution for neighbor-blended displays
	TileCellLimit       int // max cells per tiles request

	// 聚合引擎配置
	HalfLifeDays float64
	TrustMin     float64
	TrustMax     float64

	// 提交与保留策略
	VolatileTTLHoursDefault  int
	SubmissionsPerHour       int
	SubmissionsPerCellPerDay int
	DebounceWindow           time.Duration
	SweepInterval            time.Duration
}

// Load 加载配置
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", ":8080"),
		DBPath:    getEnv("DB_PATH", "./data/moodmap/moodmap.db"),
		JWTSecret: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),

		SpatialResolution:   getEnvInt("SPATIAL_RESOLUTION", 10),
		SmoothingResolution: getEnvInt("SPATIAL_SMOOTHING_RESOLUTION", 9),
		TileCellLimit:       getEnvInt("TILE_CELL_LIMIT", 1000),

		HalfLifeDays: getEnvFloat("HALF_LIFE_DAYS", 30),
		TrustMin:     getEnvFloat("TRUST_MIN", 0.5),
		TrustMax:     getEnvFloat("TRUST_MAX", 1.5),

		VolatileTTLHoursDefault:  getEnvInt("VOLATILE_TTL_HOURS_DEFAULT", 24),
		SubmissionsPerHour:       getEnvInt("EMOTION_SUBMISSIONS_PER_HOUR", 10),
		SubmissionsPerCellPerDay: getEnvInt("EMOTION_SUBMISSIONS_PER_CELL_PER_DAY", 3),
		DebounceWindow:           time.Duration(getEnvInt("AGGREGATION_DEBOUNCE_MS", 1000)) * time.Millisecond,
		SweepInterval:            time.Duration(getEnvInt("SWEEP_INTERVAL_MINUTES", 10)) * time.Minute,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
