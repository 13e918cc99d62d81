package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Identity  IdentityConfig
	Storage   StorageConfig
	Inference InferenceConfig
	Workflow  WorkflowConfig
}

type AppConfig struct {
	Port string
	Env  string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// IdentityConfig points at the external identity provider used to verify
// bearer credentials. Tokens are RS256 ID tokens; CertsURL serves the
// provider's current signing certificates.
type IdentityConfig struct {
	ProjectID string
	CertsURL  string
}

type StorageConfig struct {
	Bucket          string
	CredentialsFile string
	PublicBaseURL   string
}

// InferenceConfig configures the external prediction service. Detection on
// CPU-only hosts can take minutes, hence the generous default timeouts.
type InferenceConfig struct {
	BaseURL         string
	DetectTimeout   time.Duration
	ClassifyTimeout time.Duration
	HealthTimeout   time.Duration
}

// WorkflowConfig tunes the save-analysis saga: how patient national-id
// uniqueness is scoped, how long duplicate submissions are rejected, and
// when the sweep reclaims analyses stuck in pending or failed state.
type WorkflowConfig struct {
	PatientIDScope string // "global" or "professional"
	SaveDedupTTL   time.Duration
	PendingMaxAge  time.Duration
	SweepSchedule  string
}

const (
	PatientIDScopeGlobal       = "global"
	PatientIDScopeProfessional = "professional"
)

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	config := &Config{
		App: AppConfig{
			Port: viper.GetString("APP_PORT"),
			Env:  viper.GetString("APP_ENV"),
		},
		DB: DBConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Name:     viper.GetString("DB_NAME"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Identity: IdentityConfig{
			ProjectID: viper.GetString("IDENTITY_PROJECT_ID"),
			CertsURL:  viper.GetString("IDENTITY_CERTS_URL"),
		},
		Storage: StorageConfig{
			Bucket:          viper.GetString("STORAGE_BUCKET"),
			CredentialsFile: viper.GetString("STORAGE_CREDENTIALS_FILE"),
			PublicBaseURL:   viper.GetString("STORAGE_PUBLIC_BASE_URL"),
		},
		Inference: InferenceConfig{
			BaseURL:         viper.GetString("INFERENCE_BASE_URL"),
			DetectTimeout:   durationOrDefault("INFERENCE_DETECT_TIMEOUT", 4*time.Minute),
			ClassifyTimeout: durationOrDefault("INFERENCE_CLASSIFY_TIMEOUT", time.Minute),
			HealthTimeout:   durationOrDefault("INFERENCE_HEALTH_TIMEOUT", 5*time.Second),
		},
		Workflow: WorkflowConfig{
			PatientIDScope: viper.GetString("PATIENT_ID_SCOPE"),
			SaveDedupTTL:   durationOrDefault("SAVE_DEDUP_TTL", 2*time.Minute),
			PendingMaxAge:  durationOrDefault("PENDING_MAX_AGE", 24*time.Hour),
			SweepSchedule:  viper.GetString("SWEEP_SCHEDULE"),
		},
	}

	if config.Storage.PublicBaseURL == "" {
		config.Storage.PublicBaseURL = "https://storage.googleapis.com"
	}
	if config.Workflow.PatientIDScope == "" {
		config.Workflow.PatientIDScope = PatientIDScopeGlobal
	}
	if config.Workflow.SweepSchedule == "" {
		config.Workflow.SweepSchedule = "@hourly"
	}

	return config, nil
}

func durationOrDefault(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil {
		return fallback
	}
	return d
}
