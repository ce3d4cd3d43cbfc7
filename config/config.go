package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	defaultScanQueueSize       = 200
	defaultNumScanWorkers      = 4
	defaultWriteBatchSize      = 100
	defaultMetadataTimeoutSecs = 30
	defaultProximityWindowMins = 60
	defaultGeocodeIntervalMS   = 1100
)

type Config struct {
	// source directory (where original user files are scanned)
	RootDirectory string

	// database path
	DatabasePath string

	// scan worker settings
	ScanQueueSize  int
	NumScanWorkers int
	WriteBatchSize int

	// per-file cap on metadata parsing
	MetadataTimeout time.Duration

	// maximum time delta when inferring coordinates from a nearby asset
	ProximityWindow time.Duration

	// minimum interval between external reverse-geocoding lookups
	GeocodeInterval time.Duration
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func LoadConfig() (Config, error) {
	root := getEnvOrDefault("ROOT_DIRECTORY", ".")
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for root directory '%s': %w", root, err)
	}

	dbPath := getEnvOrDefault("DATABASE_PATH", "catalog.db")

	cfg := Config{
		RootDirectory:   absRoot,
		DatabasePath:    dbPath,
		ScanQueueSize:   getEnvIntOrDefault("SCAN_QUEUE_SIZE", defaultScanQueueSize),
		NumScanWorkers:  getEnvIntOrDefault("NUM_SCAN_WORKERS", defaultNumScanWorkers),
		WriteBatchSize:  getEnvIntOrDefault("WRITE_BATCH_SIZE", defaultWriteBatchSize),
		MetadataTimeout: time.Duration(getEnvIntOrDefault("METADATA_TIMEOUT_SECONDS", defaultMetadataTimeoutSecs)) * time.Second,
		ProximityWindow: time.Duration(getEnvIntOrDefault("PROXIMITY_WINDOW_MINUTES", defaultProximityWindowMins)) * time.Minute,
		GeocodeInterval: time.Duration(getEnvIntOrDefault("GEOCODE_INTERVAL_MS", defaultGeocodeIntervalMS)) * time.Millisecond,
	}

	return cfg, nil
}
