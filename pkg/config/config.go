package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	GCS          GCSConfig
	Media        MediaConfig
	Analysis     AnalysisConfig
	Narrative    NarrativeConfig
	Speech       SpeechConfig
	Codec        CodecConfig
	PubSub       PubSubConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STORYFRAME_APP_ENV" required:"true"`
	Port         string `envconfig:"STORYFRAME_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STORYFRAME_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STORYFRAME_LOG_WARN_STACK" default:"false"`

	CORSAllowedOrigins []string `envconfig:"STORYFRAME_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

type DBConfig struct {
	DSN    string `envconfig:"STORYFRAME_DB_DSN"`
	Driver string `envconfig:"STORYFRAME_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STORYFRAME_DB_HOST"`
	LegacyPort     int    `envconfig:"STORYFRAME_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STORYFRAME_DB_USER"`
	LegacyPassword string `envconfig:"STORYFRAME_DB_PASSWORD"`
	LegacyName     string `envconfig:"STORYFRAME_DB_NAME"`
	LegacySSLMode  string `envconfig:"STORYFRAME_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STORYFRAME_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STORYFRAME_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STORYFRAME_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STORYFRAME_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// SlowQuery is the duration above which a statement is logged at warn level.
	SlowQuery time.Duration `envconfig:"STORYFRAME_DB_SLOW_QUERY" default:"500ms"`
}

// IsSQLite reports whether the configured driver targets SQLite.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"STORYFRAME_REDIS_URL"`
	Address      string        `envconfig:"STORYFRAME_REDIS_ADDR"`
	Password     string        `envconfig:"STORYFRAME_REDIS_PASSWORD"`
	DB           int           `envconfig:"STORYFRAME_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STORYFRAME_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STORYFRAME_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STORYFRAME_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STORYFRAME_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STORYFRAME_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any Redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"STORYFRAME_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STORYFRAME_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STORYFRAME_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STORYFRAME_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"STORYFRAME_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"STORYFRAME_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"STORYFRAME_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string `envconfig:"STORYFRAME_GCS_BUCKET_NAME" required:"true"`
	PublicBaseURL string `envconfig:"STORYFRAME_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
}

type MediaConfig struct {
	MaxUploadMB  int `envconfig:"STORYFRAME_MAX_UPLOAD_MB" default:"10"`
	MaxAudioMB   int `envconfig:"STORYFRAME_MAX_AUDIO_MB" default:"25"`
	MaxFormMemMB int `envconfig:"STORYFRAME_MAX_FORM_MEMORY_MB" default:"8"`
}

// MaxUploadBytes returns the image upload ceiling in bytes.
func (m MediaConfig) MaxUploadBytes() int64 {
	return int64(m.MaxUploadMB) * 1024 * 1024
}

// MaxAudioBytes returns the audio answer ceiling in bytes.
func (m MediaConfig) MaxAudioBytes() int64 {
	return int64(m.MaxAudioMB) * 1024 * 1024
}

type AnalysisConfig struct {
	BaseURL string        `envconfig:"STORYFRAME_ANALYSIS_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"STORYFRAME_ANALYSIS_TIMEOUT" default:"60s"`
}

type NarrativeConfig struct {
	BaseURL       string        `envconfig:"STORYFRAME_NARRATIVE_BASE_URL" required:"true"`
	Timeout       time.Duration `envconfig:"STORYFRAME_NARRATIVE_TIMEOUT" default:"120s"`
	DefaultStyle  string        `envconfig:"STORYFRAME_NARRATIVE_DEFAULT_STYLE" default:"narrative"`
	DefaultLength string        `envconfig:"STORYFRAME_NARRATIVE_DEFAULT_LENGTH" default:"medium"`
	LockTTL       time.Duration `envconfig:"STORYFRAME_NARRATIVE_LOCK_TTL" default:"5m"`
}

type SpeechConfig struct {
	APIKey       string        `envconfig:"STORYFRAME_SPEECH_API_KEY"`
	Endpoint     string        `envconfig:"STORYFRAME_SPEECH_ENDPOINT"`
	LanguageCode string        `envconfig:"STORYFRAME_SPEECH_LANGUAGE" default:"en-US"`
	Timeout      time.Duration `envconfig:"STORYFRAME_SPEECH_TIMEOUT" default:"60s"`
}

type CodecConfig struct {
	FFmpegPath string        `envconfig:"STORYFRAME_FFMPEG_PATH" default:"ffmpeg"`
	ScratchDir string        `envconfig:"STORYFRAME_AUDIO_SCRATCH_DIR"`
	Timeout    time.Duration `envconfig:"STORYFRAME_CODEC_TIMEOUT" default:"45s"`
}

type PubSubConfig struct {
	EventsTopic string `envconfig:"STORYFRAME_PUBSUB_EVENTS_TOPIC"`
}

// Enabled reports whether domain events should be published.
func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.EventsTopic) != ""
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
