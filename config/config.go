package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	FixtureStorePostgres = "postgres"
	FixtureStoreDynamoDB = "dynamodb"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	FixtureStore           string
	DynamoFixturesTable    string
	DynamoEndpoint         string
	AWSRegion              string
	ScoreReportMaxAttempts int

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string

	CORSAllowedOrigins []string
}

// ArchiveEnabled сообщает, заданы ли параметры R2 для архива раундов.
func (c *Config) ArchiveEnabled() bool {
	return c.R2AccountID != ""
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Отсутствие .env не ошибка
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	store := strings.ToLower(envOr("FIXTURE_STORE", FixtureStorePostgres))
	if store != FixtureStorePostgres && store != FixtureStoreDynamoDB {
		return nil, fmt.Errorf("FIXTURE_STORE must be %q or %q, got %q", FixtureStorePostgres, FixtureStoreDynamoDB, store)
	}

	attempts, err := intEnv("SCORE_REPORT_MAX_ATTEMPTS", 5)
	if err != nil {
		return nil, err
	}
	if attempts < 1 {
		return nil, fmt.Errorf("SCORE_REPORT_MAX_ATTEMPTS must be at least 1, got %d", attempts)
	}

	cfg := &Config{
		DatabaseURL:            dbURL,
		JWTSecretKey:           jwtKey,
		ServerPort:             port,
		FixtureStore:           store,
		DynamoFixturesTable:    envOr("DYNAMODB_FIXTURES_TABLE", "Fixtures"),
		DynamoEndpoint:         os.Getenv("DYNAMODB_ENDPOINT"),
		AWSRegion:              envOr("AWS_REGION", "us-east-1"),
		ScoreReportMaxAttempts: attempts,
		R2AccountID:            os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:          os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey:      os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:           os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:        os.Getenv("R2_PUBLIC_BASE_URL"),
		CORSAllowedOrigins:     splitList(envOr("CORS_ALLOWED_ORIGINS", "*")),
	}

	if err := cfg.validateR2(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateR2: параметры R2 задаются либо все, либо ни одного.
func (c *Config) validateR2() error {
	values := map[string]string{
		"R2_ACCOUNT_ID":        c.R2AccountID,
		"R2_ACCESS_KEY_ID":     c.R2AccessKeyID,
		"R2_SECRET_ACCESS_KEY": c.R2SecretAccessKey,
		"R2_BUCKET_NAME":       c.R2BucketName,
		"R2_PUBLIC_BASE_URL":   c.R2PublicBaseURL,
	}
	var missing []string
	for _, name := range []string{"R2_ACCOUNT_ID", "R2_ACCESS_KEY_ID", "R2_SECRET_ACCESS_KEY", "R2_BUCKET_NAME", "R2_PUBLIC_BASE_URL"} {
		if values[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 || len(missing) == len(values) {
		return nil
	}
	return fmt.Errorf("incomplete Cloudflare R2 configuration, missing %s", strings.Join(missing, ", "))
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
