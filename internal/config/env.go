package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Server
	EnvPort            = "COURSETABLE_PORT"
	EnvLogLevel        = "COURSETABLE_LOG_LEVEL"
	EnvShutdownTimeout = "COURSETABLE_SHUTDOWN_TIMEOUT"
	EnvMaxBodySize     = "COURSETABLE_MAX_BODY_SIZE"
	EnvRateLimit       = "COURSETABLE_RATE_LIMIT"

	// Data
	EnvDataDir = "COURSETABLE_DATA_DIR"

	// Import
	EnvStrategy = "COURSETABLE_STRATEGY"
	EnvCharset  = "COURSETABLE_CHARSET"

	// Browser
	EnvChromePath     = "COURSETABLE_CHROME_PATH"
	EnvHeadless       = "COURSETABLE_HEADLESS"
	EnvLoginURL       = "COURSETABLE_LOGIN_URL"
	EnvExtractTimeout = "COURSETABLE_EXTRACT_TIMEOUT"
	EnvWaitTimeout    = "COURSETABLE_WAIT_TIMEOUT"

	// HTTP fetch
	EnvFetchURL        = "COURSETABLE_FETCH_URL"
	EnvFetchCookie     = "COURSETABLE_FETCH_COOKIE"
	EnvFetchTimeout    = "COURSETABLE_FETCH_TIMEOUT"
	EnvFetchMaxRetries = "COURSETABLE_FETCH_MAX_RETRIES"

	// Calendar export
	EnvSemesterStart = "COURSETABLE_SEMESTER_START"
	EnvTimezone      = "COURSETABLE_TIMEZONE"
	EnvTotalWeeks    = "COURSETABLE_TOTAL_WEEKS"
	EnvPeriods       = "COURSETABLE_PERIODS"

	// R2 Backup Feature
	EnvR2Enabled         = "COURSETABLE_R2_ENABLED"
	EnvR2AccountID       = "COURSETABLE_R2_ACCOUNT_ID"
	EnvR2AccessKeyID     = "COURSETABLE_R2_ACCESS_KEY_ID"
	EnvR2SecretAccessKey = "COURSETABLE_R2_SECRET_ACCESS_KEY"
	EnvR2BucketName      = "COURSETABLE_R2_BUCKET_NAME"
	EnvR2SnapshotKey     = "COURSETABLE_R2_SNAPSHOT_KEY"

	// Sentry Feature
	EnvSentryEnabled     = "COURSETABLE_SENTRY_ENABLED"
	EnvSentryToken       = "COURSETABLE_SENTRY_TOKEN"
	EnvSentryHost        = "COURSETABLE_SENTRY_HOST"
	EnvSentryEnvironment = "COURSETABLE_SENTRY_ENVIRONMENT"
	EnvSentrySampleRate  = "COURSETABLE_SENTRY_SAMPLE_RATE"

	// Better Stack Feature
	EnvBetterStackEnabled  = "COURSETABLE_BETTERSTACK_ENABLED"
	EnvBetterStackToken    = "COURSETABLE_BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "COURSETABLE_BETTERSTACK_ENDPOINT"

	// Metrics Auth Feature
	EnvMetricsAuthEnabled = "COURSETABLE_METRICS_AUTH_ENABLED"
	EnvMetricsUsername    = "COURSETABLE_METRICS_USERNAME"
	EnvMetricsPassword    = "COURSETABLE_METRICS_PASSWORD"

	// CLI metrics
	EnvPushgatewayURL = "COURSETABLE_PUSHGATEWAY_URL"
)
