package config

const EnvPrefix = "STORYFRAME"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv            = "STORYFRAME_APP_ENV"
	EnvPort              = "STORYFRAME_APP_PORT"
	EnvDBDSN             = "STORYFRAME_DB_DSN"
	EnvDBDriver          = "STORYFRAME_DB_DRIVER"
	EnvDBHost            = "STORYFRAME_DB_HOST"
	EnvDBUser            = "STORYFRAME_DB_USER"
	EnvDBName            = "STORYFRAME_DB_NAME"
	EnvRedisURL          = "STORYFRAME_REDIS_URL"
	EnvJWTSecret         = "STORYFRAME_JWT_SECRET"
	EnvJWTIssuer         = "STORYFRAME_JWT_ISSUER"
	EnvGCSBucket         = "STORYFRAME_GCS_BUCKET_NAME"
	EnvAnalysisBaseURL   = "STORYFRAME_ANALYSIS_BASE_URL"
	EnvNarrativeBaseURL  = "STORYFRAME_NARRATIVE_BASE_URL"
	EnvFFmpegPath        = "STORYFRAME_FFMPEG_PATH"
	EnvCodecTimeout      = "STORYFRAME_CODEC_TIMEOUT"
	EnvPubSubEventsTopic = "STORYFRAME_PUBSUB_EVENTS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
