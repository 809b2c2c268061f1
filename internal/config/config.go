package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Gateway   GatewayConfig
	RateLimit RateLimitConfig
	R2        R2Config
	FFmpeg    FFmpegConfig
	Render    RenderConfig
	Quota     QuotaConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type GatewayConfig struct {
	Enabled bool
}

type RateLimitConfig struct {
	SubmitPerHour int
	BatchPerHour  int
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
}

type FFmpegConfig struct {
	BinaryPath string
	WorkDir    string
	FontsDir   string
	Watermark  string
	// EncodeTimeout (seconds) must stay below Render.TaskTimeout to leave
	// headroom for thumbnail and upload after encoding finishes.
	EncodeTimeout int
}

type RenderConfig struct {
	QueueName     string
	Concurrency   int
	TaskTimeout   int // seconds
	MaxRetry      int
	BulkDeleteCap int
	BatchCap      int
	SignedURLTTL  int // seconds
	ErrorMaxBytes int
	// ProjectedBytesPerSecond estimates output size for the quota check.
	ProjectedBytesPerSecond int64
}

type QuotaConfig struct {
	ServiceURL string
	Timeout    int // seconds
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("JWT_SECRET")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("gateway.enabled", "GATEWAY_ENABLED")
	_ = viper.BindEnv("ratelimit.submit_per_hour", "RATELIMIT_SUBMIT_PER_HOUR")
	_ = viper.BindEnv("ratelimit.batch_per_hour", "RATELIMIT_BATCH_PER_HOUR")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("ffmpeg.binary_path", "FFMPEG_PATH")
	_ = viper.BindEnv("ffmpeg.work_dir", "FFMPEG_WORK_DIR")
	_ = viper.BindEnv("ffmpeg.fonts_dir", "FONTS_DIR")
	_ = viper.BindEnv("ffmpeg.watermark", "WATERMARK_PATH")
	_ = viper.BindEnv("ffmpeg.encode_timeout", "FFMPEG_ENCODE_TIMEOUT")
	_ = viper.BindEnv("render.queue_name", "RENDER_QUEUE_NAME")
	_ = viper.BindEnv("render.concurrency", "RENDER_CONCURRENCY")
	_ = viper.BindEnv("render.task_timeout", "RENDER_TASK_TIMEOUT")
	_ = viper.BindEnv("render.max_retry", "RENDER_MAX_RETRY")
	_ = viper.BindEnv("render.bulk_delete_cap", "RENDER_BULK_DELETE_CAP")
	_ = viper.BindEnv("render.batch_cap", "RENDER_BATCH_CAP")
	_ = viper.BindEnv("render.signed_url_ttl", "RENDER_SIGNED_URL_TTL")
	_ = viper.BindEnv("render.error_max_bytes", "RENDER_ERROR_MAX_BYTES")
	_ = viper.BindEnv("render.projected_bytes_per_second", "RENDER_PROJECTED_BPS")
	_ = viper.BindEnv("quota.service_url", "QUOTA_SERVICE_URL")
	_ = viper.BindEnv("quota.timeout", "QUOTA_TIMEOUT")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("gateway.enabled", false)
	viper.SetDefault("ratelimit.submit_per_hour", 30)
	viper.SetDefault("ratelimit.batch_per_hour", 6)
	viper.SetDefault("ffmpeg.binary_path", "ffmpeg")
	viper.SetDefault("ffmpeg.work_dir", os.TempDir())
	viper.SetDefault("ffmpeg.fonts_dir", "/usr/share/fonts/reelcraft")
	viper.SetDefault("ffmpeg.watermark", "/opt/reelcraft/watermark.png")
	viper.SetDefault("ffmpeg.encode_timeout", 480)
	viper.SetDefault("render.queue_name", "render")
	viper.SetDefault("render.concurrency", 4)
	viper.SetDefault("render.task_timeout", 600)
	viper.SetDefault("render.max_retry", 3)
	viper.SetDefault("render.bulk_delete_cap", 50)
	viper.SetDefault("render.batch_cap", 10)
	viper.SetDefault("render.signed_url_ttl", 900)
	viper.SetDefault("render.error_max_bytes", 4096)
	viper.SetDefault("render.projected_bytes_per_second", 1_500_000)
	viper.SetDefault("quota.timeout", 10)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("jwt.secret"),
		},
		Gateway: GatewayConfig{
			Enabled: viper.GetBool("gateway.enabled"),
		},
		RateLimit: RateLimitConfig{
			SubmitPerHour: viper.GetInt("ratelimit.submit_per_hour"),
			BatchPerHour:  viper.GetInt("ratelimit.batch_per_hour"),
		},
		R2: R2Config{
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			BucketName:      viper.GetString("r2.bucket_name"),
		},
		FFmpeg: FFmpegConfig{
			BinaryPath:    viper.GetString("ffmpeg.binary_path"),
			WorkDir:       viper.GetString("ffmpeg.work_dir"),
			FontsDir:      viper.GetString("ffmpeg.fonts_dir"),
			Watermark:     viper.GetString("ffmpeg.watermark"),
			EncodeTimeout: viper.GetInt("ffmpeg.encode_timeout"),
		},
		Render: RenderConfig{
			QueueName:               viper.GetString("render.queue_name"),
			Concurrency:             viper.GetInt("render.concurrency"),
			TaskTimeout:             viper.GetInt("render.task_timeout"),
			MaxRetry:                viper.GetInt("render.max_retry"),
			BulkDeleteCap:           viper.GetInt("render.bulk_delete_cap"),
			BatchCap:                viper.GetInt("render.batch_cap"),
			SignedURLTTL:            viper.GetInt("render.signed_url_ttl"),
			ErrorMaxBytes:           viper.GetInt("render.error_max_bytes"),
			ProjectedBytesPerSecond: viper.GetInt64("render.projected_bytes_per_second"),
		},
		Quota: QuotaConfig{
			ServiceURL: viper.GetString("quota.service_url"),
			Timeout:    viper.GetInt("quota.timeout"),
		},
	}

	return cfg, nil
}
