package db

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/doodlesbykumbi/identity-in-go/pkg/slosilo"
	"github.com/doodlesbykumbi/identity-in-go/pkg/store/mirror"
)

// Config holds database connection configuration
type Config struct {
	// URL is the database connection URL (defaults to DATABASE_URL env var)
	URL string
}

// Connect establishes the primary database connection.
// If no URL is provided, it reads from DATABASE_URL environment variable.
func Connect(cfg Config) (*gorm.DB, error) {
	dbURL := cfg.URL
	if dbURL == "" {
		dbURL = URL()
	}
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	// Default to silent logging unless IDENTITY_LOG_LEVEL=debug is set
	logMode := logger.Silent
	if strings.EqualFold(os.Getenv("IDENTITY_LOG_LEVEL"), "debug") {
		logMode = logger.Info
	}

	db, err := gorm.Open(
		postgres.New(postgres.Config{
			DSN:                  dbURL,
			PreferSimpleProtocol: true, // disables implicit prepared statement usage
		}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logMode),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// ConnectMirror opens the mirror database. If no URL is provided, it reads
// from MIRROR_DATABASE_URL.
func ConnectMirror(cfg Config) (*mirror.Store, error) {
	dbURL := cfg.URL
	if dbURL == "" {
		dbURL = MirrorURL()
	}
	if dbURL == "" {
		return nil, fmt.Errorf("MIRROR_DATABASE_URL environment variable is required")
	}

	m, err := mirror.Open(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mirror database: %w", err)
	}
	return m, nil
}

// URL returns the primary database URL from environment.
// Returns empty string if DATABASE_URL is not set.
func URL() string {
	return os.Getenv("DATABASE_URL")
}

// MirrorURL returns MIRROR_DATABASE_URL
func MirrorURL() string {
	return os.Getenv("MIRROR_DATABASE_URL")
}

// Cipher builds the data-key cipher from the base64 IDENTITY_DATA_KEY.
func Cipher() (slosilo.SymmetricCipher, error) {
	dataKeyB64, ok := os.LookupEnv("IDENTITY_DATA_KEY")
	if !ok || dataKeyB64 == "" {
		return nil, fmt.Errorf("IDENTITY_DATA_KEY environment variable is required")
	}

	dataKey, err := base64.StdEncoding.DecodeString(dataKeyB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode IDENTITY_DATA_KEY: %w", err)
	}

	cipher, err := slosilo.NewSymmetric(dataKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher, nil
}
