package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port        int              `json:"port"`
	JWTSecret   string           `json:"jwt_secret"`
	CORSOrigins []string         `json:"cors_origins"`
	LogConfig   logger.LogConfig `json:"log_config"`
	Database    DatabaseConfig   `json:"database"`
	FileStore   FileStoreConfig  `json:"file_store"`
	AI          AIConfig         `json:"ai"`
	OCR         OCRConfig        `json:"ocr"`
	Pipeline    PipelineConfig   `json:"pipeline"`
	Moderation  ModerationConfig `json:"moderation"`
	Cron        CronConfig       `json:"cron"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type AIConfig struct {
	Provider      string      `json:"provider"`
	Model         string      `json:"model"`
	EmbedModel    string      `json:"embed_model"`
	EmbedDim      int         `json:"embed_dim"`
	MaxInputChars int         `json:"max_input_chars"`
	Timeout       int         `json:"timeout"`
	Data          interface{} `json:"data"`
}

type OCRConfig struct {
	Languages   []string `json:"languages"`
	TessdataDir string   `json:"tessdata_dir"`
	RenderScale float64  `json:"render_scale"`
}

type PipelineConfig struct {
	MinContentChars   int `json:"min_content_chars"`
	MaxContentChars   int `json:"max_content_chars"`
	SamplePages       int `json:"sample_pages"`
	SessionTTLMinutes int `json:"session_ttl_minutes"`
}

type ModerationConfig struct {
	GateTimeoutSeconds   int      `json:"gate_timeout_seconds"`
	PlagiarismPassScore  float64  `json:"plagiarism_pass_score"`
	PlagiarismMaxMatches int      `json:"plagiarism_max_matches"`
	BannedTerms          []string `json:"banned_terms"`
}

type CronConfig struct {
	EmbeddingBackfill string `json:"embedding_backfill"`
	SessionSweep      string `json:"session_sweep"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.Model == "" {
		return nil, fmt.Errorf("ai.model is required")
	}
	if cfg.AI.EmbedModel == "" {
		return nil, fmt.Errorf("ai.embed_model is required")
	}
	if cfg.AI.EmbedDim == 0 {
		cfg.AI.EmbedDim = 768
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 30
	}
	if len(cfg.OCR.Languages) == 0 {
		cfg.OCR.Languages = []string{"vie", "eng"}
	}
	if cfg.OCR.RenderScale == 0 {
		cfg.OCR.RenderScale = 2.0
	}
	if cfg.Pipeline.MinContentChars == 0 {
		cfg.Pipeline.MinContentChars = 50
	}
	if cfg.Pipeline.MaxContentChars == 0 {
		cfg.Pipeline.MaxContentChars = 50000
	}
	if cfg.Pipeline.SamplePages == 0 {
		cfg.Pipeline.SamplePages = 3
	}
	if cfg.Pipeline.SessionTTLMinutes == 0 {
		cfg.Pipeline.SessionTTLMinutes = 120
	}
	if cfg.Moderation.GateTimeoutSeconds == 0 {
		cfg.Moderation.GateTimeoutSeconds = 30
	}
	if cfg.Moderation.PlagiarismPassScore == 0 {
		cfg.Moderation.PlagiarismPassScore = 20
	}
	if cfg.Moderation.PlagiarismMaxMatches == 0 {
		cfg.Moderation.PlagiarismMaxMatches = 5
	}
	if cfg.Cron.EmbeddingBackfill == "" {
		cfg.Cron.EmbeddingBackfill = "*/10 * * * *"
	}
	if cfg.Cron.SessionSweep == "" {
		cfg.Cron.SessionSweep = "*/30 * * * *"
	}
	return &cfg, nil
}
