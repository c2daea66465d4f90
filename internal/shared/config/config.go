package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultRecommenderURL = "http://localhost:12000"
	defaultMaxUploadBytes = 10 << 20
)

// Config holds application configuration.
type Config struct {
	Port               string
	Env                string
	CORSAllowOrigin    []string
	RecommenderURL     string
	RecommenderTimeout time.Duration
	ObjectStoreType    string
	LocalStoreDir      string
	AWSRegion          string
	S3Bucket           string
	S3Prefix           string
	SSEKMSKeyID        string
	DatabaseURL        string
	SubmissionsQueue   string
	TransferTTL        time.Duration
	MaxUploadBytes     int64
}

// fileConfig is the optional YAML file named by ADVISOR_CONFIG.
type fileConfig struct {
	Server struct {
		Port             string   `yaml:"port"`
		Env              string   `yaml:"env"`
		CORSAllowOrigins []string `yaml:"cors_allow_origins"`
		MaxUploadBytes   int64    `yaml:"max_upload_bytes"`
	} `yaml:"server"`
	Recommender struct {
		APIURL         string `yaml:"api_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"recommender"`
	Storage struct {
		ObjectStore   string `yaml:"object_store"`
		LocalStoreDir string `yaml:"local_store_dir"`
		AWSRegion     string `yaml:"aws_region"`
		S3Bucket      string `yaml:"s3_bucket"`
		S3Prefix      string `yaml:"s3_prefix"`
		SSEKMSKeyID   string `yaml:"sse_kms_key_id"`
	} `yaml:"storage"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Queue struct {
		SQSQueueURL string `yaml:"sqs_queue_url"`
	} `yaml:"queue"`
	Transfer struct {
		TTL string `yaml:"ttl"`
	} `yaml:"transfer"`
}

// Load reads configuration. Precedence: environment, then the ADVISOR_CONFIG
// YAML file, then defaults. Local .env files are loaded best-effort first.
func Load() (Config, error) {
	loadEnvFiles(".env", "cmd/.env")

	var file fileConfig
	if path := strings.TrimSpace(os.Getenv("ADVISOR_CONFIG")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	timeoutSeconds, err := getEnvInt("RECOMMENDER_TIMEOUT_SECONDS", orInt(file.Recommender.TimeoutSeconds, 120))
	if err != nil {
		return Config{}, err
	}
	maxUpload, err := getEnvInt("MAX_UPLOAD_BYTES", int(orInt64(file.Server.MaxUploadBytes, defaultMaxUploadBytes)))
	if err != nil {
		return Config{}, err
	}
	ttl, err := time.ParseDuration(getEnv("TRANSFER_TTL", orString(file.Transfer.TTL, "30m")))
	if err != nil {
		return Config{}, fmt.Errorf("TRANSFER_TTL: %w", err)
	}

	origins := strings.Join(file.Server.CORSAllowOrigins, ",")
	return Config{
		Port:               getEnv("PORT", orString(file.Server.Port, "8080")),
		Env:                normalizeEnv(getEnv("ENV", orString(file.Server.Env, "dev"))),
		CORSAllowOrigin:    splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", orString(origins, "http://localhost:3000"))),
		RecommenderURL:     strings.TrimRight(getEnv("RECOMMENDER_API_URL", orString(file.Recommender.APIURL, defaultRecommenderURL)), "/"),
		RecommenderTimeout: time.Duration(timeoutSeconds) * time.Second,
		ObjectStoreType:    normalizeStoreType(getEnv("OBJECT_STORE", orString(file.Storage.ObjectStore, "local"))),
		LocalStoreDir:      getEnv("LOCAL_STORE_DIR", orString(file.Storage.LocalStoreDir, "./data")),
		AWSRegion:          getEnv("AWS_REGION", file.Storage.AWSRegion),
		S3Bucket:           getEnv("S3_BUCKET", file.Storage.S3Bucket),
		S3Prefix:           getEnv("S3_PREFIX", file.Storage.S3Prefix),
		SSEKMSKeyID:        getEnv("SSE_KMS_KEY_ID", file.Storage.SSEKMSKeyID),
		DatabaseURL:        getEnv("DATABASE_URL", file.Database.URL),
		SubmissionsQueue:   getEnv("SUBMISSIONS_SQS_QUEUE_URL", file.Queue.SQSQueueURL),
		TransferTTL:        ttl,
		MaxUploadBytes:     int64(maxUpload),
	}, nil
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	if c.ObjectStoreType == "s3" && c.S3Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required when OBJECT_STORE=s3")
	}
	if c.Env == "production" && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required in production")
	}
	if c.RecommenderTimeout <= 0 {
		return fmt.Errorf("RECOMMENDER_TIMEOUT_SECONDS must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

// loadEnvFiles loads the given dotenv files if they exist. Variables already
// set in the environment win.
func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
	}
}

func getEnv(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return val, nil
}

func orString(v, def string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func orInt(v, def int) int {
	if v != 0 {
		return v
	}
	return def
}

func orInt64(v, def int64) int64 {
	if v != 0 {
		return v
	}
	return def
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
