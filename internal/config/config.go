package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

type Options struct {
	runAddr     string
	logLevel    string
	dataBaseDSN string
	catalogFile string
	sessionTTL  time.Duration

	envFile string
}

func NewOptions() *Options {
	return new(Options)
}

// ParseFlags handles command line arguments
// and stores their values in the corresponding variables.
func (o *Options) ParseFlags() error {
	o.envFile = loadEnvFile()
	return o.parse(flag.CommandLine, os.Args[1:])
}

func (o *Options) parse(fs *flag.FlagSet, args []string) error {
	ttl, err := time.ParseDuration(getEnvOrDefault("SESSION_TTL", "24h"))
	if err != nil {
		return fmt.Errorf("invalid SESSION_TTL: %w", err)
	}

	fs.StringVar(&o.runAddr, "a", getEnvOrDefault("RUN_ADDRESS", ":8080"), "address and port to run server")
	fs.StringVar(&o.logLevel, "l", getEnvOrDefault("LOG_LEVEL", "info"), "log level")
	fs.StringVar(&o.dataBaseDSN, "d", getEnvOrDefault("DATABASE_URI", ""), "database connection string")
	fs.StringVar(&o.catalogFile, "c", getEnvOrDefault("CATALOG_FILE", ""), "path to a JSON product catalog")
	fs.DurationVar(&o.sessionTTL, "t", ttl, "idle time after which a cart session is dropped")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if o.sessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", o.sessionTTL)
	}
	return nil
}

func (o *Options) RunAddr() string {
	return o.runAddr
}

func (o *Options) LogLevel() string {
	return o.logLevel
}

func (o *Options) DataBaseDSN() string {
	return o.dataBaseDSN
}

func (o *Options) CatalogFile() string {
	return o.catalogFile
}

func (o *Options) SessionTTL() time.Duration {
	return o.sessionTTL
}

// EnvFile is the .env file that was loaded, empty if none was found.
func (o *Options) EnvFile() string {
	return o.envFile
}

// getEnvOrDefault reads an environment variable or returns a default value if the variable is not set or is empty.
func getEnvOrDefault(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// loadEnvFile loads the first .env found in the working directory or two
// levels up (running from cmd/shopeasy) and returns its path.
func loadEnvFile() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for _, path := range []string{
		filepath.Join(cwd, ".env"),
		filepath.Join(cwd, "..", "..", ".env"),
	} {
		if err := godotenv.Load(path); err == nil {
			return path
		}
	}
	return ""
}
