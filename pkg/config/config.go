package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// MinPartSize is the smallest non-final part size accepted by S3-compatible stores.
const MinPartSize int64 = 5 * 1024 * 1024

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Blob         BlobConfig
	S3           S3Config
	Minio        MinioConfig
	Upload       UploadConfig
	Rooms        RoomsConfig
	Enrichment   EnrichmentConfig
	Export       ExportConfig
	Mail         MailConfig
	Thumbnail    ThumbnailConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if !cfg.FeatureFlags.UseSQLite {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if err := cfg.Blob.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Upload.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Mail.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"INVENTORY_APP_ENV" required:"true"`
	Port         string `envconfig:"INVENTORY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"INVENTORY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"INVENTORY_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"INVENTORY_LOG_FORMAT" default:"json"`
	Version      string `envconfig:"INVENTORY_APP_VERSION" default:"dev"`

	CORSOrigins []string `envconfig:"INVENTORY_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN        string `envconfig:"INVENTORY_DB_DSN"`
	SQLitePath string `envconfig:"INVENTORY_DB_SQLITE_PATH" default:"inventory.db"`

	LegacyHost     string `envconfig:"INVENTORY_DB_HOST"`
	LegacyPort     int    `envconfig:"INVENTORY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"INVENTORY_DB_USER"`
	LegacyPassword string `envconfig:"INVENTORY_DB_PASSWORD"`
	LegacyName     string `envconfig:"INVENTORY_DB_NAME"`
	LegacySSLMode  string `envconfig:"INVENTORY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"INVENTORY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"INVENTORY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"INVENTORY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"INVENTORY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"INVENTORY_REDIS_URL"`
	Address      string        `envconfig:"INVENTORY_REDIS_ADDR"`
	Password     string        `envconfig:"INVENTORY_REDIS_PASSWORD"`
	DB           int           `envconfig:"INVENTORY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"INVENTORY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"INVENTORY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"INVENTORY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"INVENTORY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"INVENTORY_REDIS_WRITE_TIMEOUT" default:"5s"`
	KeyPrefix    string        `envconfig:"INVENTORY_REDIS_KEY_PREFIX" default:"inventory"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type BlobConfig struct {
	Driver        string `envconfig:"INVENTORY_BLOB_DRIVER" default:"s3"`
	Bucket        string `envconfig:"INVENTORY_BLOB_BUCKET" required:"true"`
	PublicBaseURL string `envconfig:"INVENTORY_BLOB_PUBLIC_BASE_URL"`
	PublicRead    bool   `envconfig:"INVENTORY_BLOB_PUBLIC_READ" default:"true"`
}

func (b BlobConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(b.Driver)) {
	case BlobDriverS3, BlobDriverMinio:
		return nil
	default:
		return fmt.Errorf("%s must be one of %s, %s", EnvBlobDriver, BlobDriverS3, BlobDriverMinio)
	}
}

// DriverName returns the normalized blob driver.
func (b BlobConfig) DriverName() string {
	return strings.ToLower(strings.TrimSpace(b.Driver))
}

type S3Config struct {
	Region          string `envconfig:"INVENTORY_S3_REGION" default:"us-east-1"`
	Endpoint        string `envconfig:"INVENTORY_S3_ENDPOINT"`
	AccessKeyID     string `envconfig:"INVENTORY_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"INVENTORY_S3_SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `envconfig:"INVENTORY_S3_USE_PATH_STYLE" default:"false"`
}

type MinioConfig struct {
	Endpoint  string `envconfig:"INVENTORY_MINIO_ENDPOINT"`
	AccessKey string `envconfig:"INVENTORY_MINIO_ACCESS_KEY"`
	SecretKey string `envconfig:"INVENTORY_MINIO_SECRET_KEY"`
	UseSSL    bool   `envconfig:"INVENTORY_MINIO_USE_SSL" default:"false"`
}

type UploadConfig struct {
	PartSize    int64         `envconfig:"INVENTORY_UPLOAD_PART_SIZE" default:"5242880"`
	Concurrency int           `envconfig:"INVENTORY_UPLOAD_CONCURRENCY" default:"0"`
	MaxUploadMB int           `envconfig:"INVENTORY_MAX_UPLOAD_MB" default:"500"`
	Timeout     time.Duration `envconfig:"INVENTORY_UPLOAD_TIMEOUT" default:"10m"`
}

func (u UploadConfig) validate() error {
	if u.PartSize < MinPartSize {
		return fmt.Errorf("%s must be at least %d bytes", EnvUploadPartSize, MinPartSize)
	}
	if u.Concurrency < 0 {
		return fmt.Errorf("%s must not be negative", EnvUploadConcurrency)
	}
	return nil
}

// MaxUploadBytes returns the request body cap for uploads.
func (u UploadConfig) MaxUploadBytes() int64 {
	if u.MaxUploadMB <= 0 {
		return 0
	}
	return int64(u.MaxUploadMB) * 1024 * 1024
}

type RoomsConfig struct {
	DefaultOwnerID  string `envconfig:"INVENTORY_DEFAULT_OWNER_ID" default:"123"`
	DefaultImageURL string `envconfig:"INVENTORY_DEFAULT_ROOM_IMAGE_URL" default:"https://via.placeholder.com/150"`
	ScanPageSize    int    `envconfig:"INVENTORY_SCAN_PAGE_SIZE" default:"100"`
}

type EnrichmentConfig struct {
	Bucket       string `envconfig:"INVENTORY_ENRICHMENT_BUCKET"`
	OutputPrefix string `envconfig:"INVENTORY_ENRICHMENT_OUTPUT_PREFIX" default:"output"`
	Concurrency  int    `envconfig:"INVENTORY_ENRICHMENT_CONCURRENCY" default:"0"`
}

type ExportConfig struct {
	Sender  string        `envconfig:"INVENTORY_EXPORT_SENDER" default:"no-reply@inventory.local"`
	Subject string        `envconfig:"INVENTORY_EXPORT_SUBJECT" default:"Room Data Export"`
	Timeout time.Duration `envconfig:"INVENTORY_EXPORT_TIMEOUT" default:"2m"`
}

// MailConfig selects the relay for export mail. With no driver set, SMTP is
// used when a host is configured and exports are disabled otherwise.
type MailConfig struct {
	Driver string `envconfig:"INVENTORY_MAIL_DRIVER"`

	Host     string `envconfig:"INVENTORY_SMTP_HOST"`
	Port     int    `envconfig:"INVENTORY_SMTP_PORT" default:"587"`
	Username string `envconfig:"INVENTORY_SMTP_USERNAME"`
	Password string `envconfig:"INVENTORY_SMTP_PASSWORD"`

	SESRegion           string `envconfig:"INVENTORY_SES_REGION" default:"us-east-1"`
	SESEndpoint         string `envconfig:"INVENTORY_SES_ENDPOINT"`
	SESAccessKeyID      string `envconfig:"INVENTORY_SES_ACCESS_KEY_ID"`
	SESSecretAccessKey  string `envconfig:"INVENTORY_SES_SECRET_ACCESS_KEY"`
	SESConfigurationSet string `envconfig:"INVENTORY_SES_CONFIGURATION_SET"`
}

// DriverName returns the normalized mail driver, or "" when mail is off.
func (m MailConfig) DriverName() string {
	if driver := strings.ToLower(strings.TrimSpace(m.Driver)); driver != "" {
		return driver
	}
	if strings.TrimSpace(m.Host) != "" {
		return MailDriverSMTP
	}
	return ""
}

func (m MailConfig) validate() error {
	switch m.DriverName() {
	case "", MailDriverSES:
		return nil
	case MailDriverSMTP:
		if strings.TrimSpace(m.Host) == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvSMTPHost, EnvMailDriver, MailDriverSMTP)
		}
		return nil
	default:
		return fmt.Errorf("%s must be one of %s, %s", EnvMailDriver, MailDriverSMTP, MailDriverSES)
	}
}

// Address returns host:port for the SMTP relay.
func (m MailConfig) Address() string {
	return fmt.Sprintf("%s:%d", m.Host, m.Port)
}

type ThumbnailConfig struct {
	Enabled    bool   `envconfig:"INVENTORY_THUMBNAIL_ENABLED" default:"false"`
	FFmpegPath string `envconfig:"INVENTORY_FFMPEG_PATH" default:"ffmpeg"`
	Width      int    `envconfig:"INVENTORY_THUMBNAIL_WIDTH" default:"320"`
	Height     int    `envconfig:"INVENTORY_THUMBNAIL_HEIGHT" default:"240"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"INVENTORY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"INVENTORY_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
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
