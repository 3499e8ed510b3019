package common

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func ConnectDb(cfg *Config) *gorm.DB {
	switch cfg.DBDriver {
	case "postgres":
		return connectPostgres(cfg)
	case "sqlite":
		return connectSQLite(cfg)
	default:
		log.Println("unknown DB_DRIVER:", cfg.DBDriver)
		return nil
	}
}

func connectSQLite(cfg *Config) *gorm.DB {
	dbFile := cfg.SQLiteDB
	log.Println("attemptConnectDb: sqlite_db:", dbFile)
	if dbFile == "" {
		log.Println("sqlite_db not set")
		return nil
	}

	if dir := filepath.Dir(dbFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Println("Error creating sqlite directory: " + err.Error())
			return nil
		}
	}

	db, err := gorm.Open(sqlite.Open(sqliteDSN(dbFile)), &gorm.Config{})
	if err != nil {
		log.Println("Error opening sqlite db: " + err.Error())
		return nil
	}
	log.Println("opened sqlite db at:", dbFile)
	return db
}

// sqliteDSN turns on foreign keys so cascades apply.
func sqliteDSN(dbFile string) string {
	if strings.Contains(dbFile, "_foreign_keys") {
		return dbFile
	}
	sep := "?"
	if strings.Contains(dbFile, "?") {
		sep = "&"
	}
	return dbFile + sep + "_foreign_keys=on"
}

func connectPostgres(cfg *Config) *gorm.DB {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.DBHost,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		cfg.DBPort,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Println("Error opening postgres db: " + err.Error())
		return nil
	}
	log.Printf("opened postgres db %s at %s:%s", cfg.DBName, cfg.DBHost, cfg.DBPort)
	return db
}
