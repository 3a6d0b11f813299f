package config

// EnvPrefix is passed to envconfig; every field carries its full variable name.
const EnvPrefix = "INVENTORY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	BlobDriverS3    = "s3"
	BlobDriverMinio = "minio"

	MailDriverSMTP = "smtp"
	MailDriverSES  = "ses"
)

const (
	EnvAppEnv = "INVENTORY_APP_ENV"
	EnvPort   = "INVENTORY_APP_PORT"

	EnvDBDSN  = "INVENTORY_DB_DSN"
	EnvDBHost = "INVENTORY_DB_HOST"
	EnvDBUser = "INVENTORY_DB_USER"
	EnvDBName = "INVENTORY_DB_NAME"

	EnvBlobDriver = "INVENTORY_BLOB_DRIVER"
	EnvBlobBucket = "INVENTORY_BLOB_BUCKET"

	EnvUploadPartSize    = "INVENTORY_UPLOAD_PART_SIZE"
	EnvUploadConcurrency = "INVENTORY_UPLOAD_CONCURRENCY"

	EnvMailDriver = "INVENTORY_MAIL_DRIVER"
	EnvSMTPHost   = "INVENTORY_SMTP_HOST"

	EnvUseSQLite = "INVENTORY_USE_SQLITE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
