package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything loaded from the environment at startup.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DbName   string

	APIPort string

	// PEM-encoded RSA keypair for token signing and verification.
	PrivateKey []byte
	PublicKey  []byte

	// LockWriteTTL is how long an acquired lock authorizes writes;
	// LockStealTTL is how long until a different user may steal it.
	// LockWriteTTL must not exceed LockStealTTL, otherwise a holder
	// could lose the lock while still believing it valid.
	LockWriteTTL time.Duration
	LockStealTTL time.Duration

	// Optional snapshot archive. Empty bucket disables it.
	Bucket string
	Region string
}

// New loads the configuration, exiting on missing required values.
func New() *Config {
	// .env is optional outside development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Skipping .env file: %v", err)
	}
	cfg := &Config{
		Host:         must("POSTGRES_HOST"),
		Port:         must("POSTGRES_PORT"),
		User:         must("POSTGRES_USER"),
		Password:     must("POSTGRES_PASSWORD"),
		DbName:       must("POSTGRES_DB_NAME"),
		APIPort:      optional("API_PORT", "3000"),
		PrivateKey:   key("PRIVATE_KEY"),
		PublicKey:    key("PUBLIC_KEY"),
		LockWriteTTL: seconds("LOCK_WRITE_TTL", 60),
		LockStealTTL: seconds("LOCK_STEAL_TTL", 60),
		Bucket:       os.Getenv("S3_BUCKET_NAME"),
		Region:       os.Getenv("AWS_REGION"),
	}
	if cfg.LockWriteTTL > cfg.LockStealTTL {
		log.Fatalf("LOCK_WRITE_TTL (%s) must not exceed LOCK_STEAL_TTL (%s)", cfg.LockWriteTTL, cfg.LockStealTTL)
	}
	return cfg
}

// ConnString builds the lib/pq connection string.
func (c *Config) ConnString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.DbName)
}

func must(name string) string {
	val := os.Getenv(name)
	if val == "" {
		log.Fatalf("Environment variable %s not set", name)
	}
	return val
}

func optional(name, fallback string) string {
	if val := os.Getenv(name); val != "" {
		return val
	}
	return fallback
}

func seconds(name string, fallback int) time.Duration {
	val := os.Getenv(name)
	if val == "" {
		return time.Duration(fallback) * time.Second
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		log.Fatalf("Environment variable %s must be a positive number of seconds", name)
	}
	return time.Duration(n) * time.Second
}

// key loads a PEM key from NAME, or from the file at NAME_PATH when
// the value itself is not provided.
func key(name string) []byte {
	if val := os.Getenv(name); val != "" {
		return []byte(val)
	}
	path := os.Getenv(name + "_PATH")
	if path == "" {
		log.Fatalf("Please provide %s or %s_PATH for JWT signing. See README.md for details.", name, name)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read %s from %s: %v", name, path, err)
	}
	return data
}
