package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	StorageProviderDrive = "drive"
	StorageProviderGCS   = "gcs"
	StorageProviderLocal = "local"
)

// Config holds every environment-driven setting of the service. Secrets that
// only some endpoints need (token secret, mail key) are allowed to be empty
// here; the endpoints report them as configuration errors when used.
type Config struct {
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	TokenSecret     string
	FrontendBaseURL string
	PublicBaseURL   string

	SendGridAPIKey string
	MailFrom       string
	SMTPHost       string
	SMTPPort       string

	StorageProvider          string
	GoogleServiceAccountJSON string
	SheetID                  string
	DriveParentFolderID      string
	GCSBucket                string
	GCSCredentialsJSON       string
	UploadDir                string
	MaxUploadSize            int64

	AdminAPIKeyHash    string
	VendorSyncCron     string
	RedisAddress       string
	DefaultPhoneRegion string
	CORSOrigins        []string
	LogLevel           string
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	maxMB, err := strconv.ParseInt(getEnv("MAX_UPLOAD_SIZE_MB", "25"), 10, 64)
	if err != nil || maxMB <= 0 {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_SIZE_MB %q", os.Getenv("MAX_UPLOAD_SIZE_MB"))
	}

	port := getEnv("PORT", "9000")
	portInt, err := strconv.Atoi(port)
	if err != nil || portInt < 0 || portInt > 65535 {
		return nil, fmt.Errorf("invalid PORT %q", port)
	}

	cfg := &Config{
		Port:                     port,
		DBHost:                   getEnv("DB_HOST", "localhost"),
		DBPort:                   getEnv("DB_PORT", "5432"),
		DBUser:                   os.Getenv("DB_USER"),
		DBPassword:               os.Getenv("DB_PASSWORD"),
		DBName:                   os.Getenv("DB_NAME"),
		DBSSLMode:                getEnv("DB_SSLMODE", "disable"),
		TokenSecret:              firstNonEmpty(os.Getenv("JWT_SECRET"), os.Getenv("SECRET")),
		FrontendBaseURL:          strings.TrimRight(getEnv("FRONTEND_BASE_URL", "https://maceinfo.com"), "/"),
		PublicBaseURL:            strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
		SendGridAPIKey:           os.Getenv("SENDGRID_API_KEY"),
		MailFrom:                 getEnv("MAIL_FROM", "rfq@maceinfo.com"),
		SMTPHost:                 getEnv("SMTP_HOST", "smtp.sendgrid.net"),
		SMTPPort:                 getEnv("SMTP_PORT", "587"),
		StorageProvider:          strings.ToLower(getEnv("STORAGE_PROVIDER", StorageProviderDrive)),
		GoogleServiceAccountJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		SheetID:                  os.Getenv("GOOGLE_SHEET_ID"),
		DriveParentFolderID:      os.Getenv("DRIVE_PARENT_FOLDER_ID"),
		GCSBucket:                os.Getenv("GCS_BUCKET"),
		GCSCredentialsJSON:       os.Getenv("GCS_CREDENTIALS_JSON"),
		UploadDir:                getEnv("UPLOAD_DIR", "uploads"),
		MaxUploadSize:            maxMB << 20,
		AdminAPIKeyHash:          os.Getenv("ADMIN_API_KEY_HASH"),
		VendorSyncCron:           os.Getenv("VENDOR_SYNC_CRON"),
		RedisAddress:             os.Getenv("REDIS_ADDRESS"),
		DefaultPhoneRegion:       strings.ToUpper(getEnv("DEFAULT_PHONE_REGION", "US")),
		CORSOrigins:              splitList(getEnv("CORS_ORIGINS", "https://maceinfo.com,http://localhost:5173,http://localhost:3000")),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
	}

	switch cfg.StorageProvider {
	case StorageProviderDrive, StorageProviderGCS, StorageProviderLocal:
	default:
		return nil, fmt.Errorf("unknown STORAGE_PROVIDER %q", cfg.StorageProvider)
	}
	return cfg, nil
}

// DSN builds the postgres connection string for gorm.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
