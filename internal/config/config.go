package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	OutputDir string

	MaxUploadBytes int64
	MaxCandidates  int
	TopK           int

	SuitabilityThreshold float64
	VolumeSubscoreFloor  float64

	WeightVolume   float64
	WeightSpeed    float64
	WeightCost     float64
	WeightFeatures float64
	WeightPaper    float64

	DefaultLeaseTermMonths int

	LLMBaseURL     string
	LLMAPIKey      string
	LLMModel       string
	LLMTimeout     time.Duration
	LLMMaxInputLen int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "catalog.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 10*1024*1024)),
		MaxCandidates:  getEnvInt("MATCH_MAX_CANDIDATES", 500),
		TopK:           getEnvInt("MATCH_TOP_K", 3),

		SuitabilityThreshold: getEnvFloat("MATCH_SUITABILITY_THRESHOLD", 0.4),
		VolumeSubscoreFloor:  getEnvFloat("MATCH_VOLUME_FLOOR", 0.3),

		WeightVolume:   getEnvFloat("MATCH_WEIGHT_VOLUME", 0.35),
		WeightSpeed:    getEnvFloat("MATCH_WEIGHT_SPEED", 0.20),
		WeightCost:     getEnvFloat("MATCH_WEIGHT_COST", 0.25),
		WeightFeatures: getEnvFloat("MATCH_WEIGHT_FEATURES", 0.15),
		WeightPaper:    getEnvFloat("MATCH_WEIGHT_PAPER", 0.05),

		DefaultLeaseTermMonths: getEnvInt("DEFAULT_LEASE_TERM_MONTHS", 60),

		LLMBaseURL:     getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMAPIKey:      getEnv("LLM_API_KEY", ""),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout:     time.Duration(getEnvInt("LLM_TIMEOUT_MS", 30000)) * time.Millisecond,
		LLMMaxInputLen: getEnvInt("LLM_MAX_INPUT_LEN", 4000),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
