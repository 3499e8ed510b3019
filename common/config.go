package common

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	AppEnv string `yaml:"APP_ENV"`
	Port   string `yaml:"PORT"`

	// Database configuration
	DBDriver   string `yaml:"DB_DRIVER"`
	SQLiteDB   string `yaml:"SQLITE_DB"`
	DBHost     string `yaml:"DB_HOST"`
	DBPort     string `yaml:"DB_PORT"`
	DBUser     string `yaml:"DB_USER"`
	DBPassword string `yaml:"DB_PASSWORD"`
	DBName     string `yaml:"DB_NAME"`

	// File storage
	StorageDriver string `yaml:"STORAGE_DRIVER"`
	UploadDir     string `yaml:"UPLOAD_DIR"`
	AWSS3Bucket   string `yaml:"AWS_S3_BUCKET"`
	AWSS3Region   string `yaml:"AWS_S3_REGION"`
	AWSAccessKey  string `yaml:"AWS_ACCESS_KEY"`
	AWSSecretKey  string `yaml:"AWS_SECRET_KEY"`
	AWSS3Endpoint string `yaml:"AWS_S3_ENDPOINT"`

	// Page cache
	CacheDir    string `yaml:"CACHE_DIR"`
	CacheMaxAge string `yaml:"CACHE_MAX_AGE"`

	SessionSecret string `yaml:"SESSION_SECRET"`
}

// LoadConfig reads .env, then the optional YAML file named by CONFIG_FILE
// (config.yaml by default). Environment variables win over the file.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Error loading .env file: %s\n", err)
	}

	cfg := &Config{}

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.yaml"
	}
	if file, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(file, cfg); err != nil {
			log.Printf("Error parsing YAML file: %s\n", err)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("Error reading YAML file: %s\n", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	override(&c.AppEnv, "APP_ENV")
	override(&c.Port, "PORT")
	override(&c.DBDriver, "DB_DRIVER")
	override(&c.SQLiteDB, "SQLITE_DB")
	override(&c.DBHost, "DB_HOST")
	override(&c.DBPort, "DB_PORT")
	override(&c.DBUser, "DB_USER")
	override(&c.DBPassword, "DB_PASSWORD")
	override(&c.DBName, "DB_NAME")
	override(&c.StorageDriver, "STORAGE_DRIVER")
	override(&c.UploadDir, "UPLOAD_DIR")
	override(&c.AWSS3Bucket, "AWS_S3_BUCKET")
	override(&c.AWSS3Region, "AWS_S3_REGION")
	override(&c.AWSAccessKey, "AWS_ACCESS_KEY")
	override(&c.AWSSecretKey, "AWS_SECRET_KEY")
	override(&c.AWSS3Endpoint, "AWS_S3_ENDPOINT")
	override(&c.CacheDir, "CACHE_DIR")
	override(&c.CacheMaxAge, "CACHE_MAX_AGE")
	override(&c.SessionSecret, "SESSION_SECRET")
}

func (c *Config) applyDefaults() {
	if c.AppEnv != EnvProduction {
		c.AppEnv = EnvDevelopment
	}

	dataDir := "."
	if c.IsProduction() {
		dataDir = "/data"
	}

	setDefault := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}

	setDefault(&c.Port, "8080")
	setDefault(&c.DBDriver, "sqlite")
	setDefault(&c.SQLiteDB, filepath.Join(dataDir, "database.sqlite"))
	setDefault(&c.DBPort, "5432")
	setDefault(&c.StorageDriver, "disk")
	if c.IsProduction() {
		setDefault(&c.UploadDir, filepath.Join(dataDir, "uploads"))
		setDefault(&c.CacheDir, filepath.Join(dataDir, "cache"))
	} else {
		setDefault(&c.UploadDir, filepath.Join(dataDir, "public", "uploads"))
		setDefault(&c.CacheDir, filepath.Join(dataDir, "cache"))
	}
	setDefault(&c.CacheMaxAge, "1h")
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

// PageCacheMaxAge parses CACHE_MAX_AGE as a duration or a number of seconds.
func (c *Config) PageCacheMaxAge() time.Duration {
	if d, err := time.ParseDuration(c.CacheMaxAge); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(c.CacheMaxAge); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("invalid CACHE_MAX_AGE %q, using 1h", c.CacheMaxAge)
	return time.Hour
}
