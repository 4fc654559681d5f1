// Package config holds the environment driven settings of the builder
// service. Values are read once at init from the process environment, with a
// .env file in the working directory filling in keys that are not set.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var envLoaded sync.Once

// loadEnvFile reads .env if present. godotenv.Load never overrides variables
// that are already set in the environment.
func loadEnvFile() {
	envLoaded.Do(func() {
		if _, err := os.Stat(".env"); err != nil {
			return
		}
		log.Println("Loading configuration overrides from .env file...")
		if err := godotenv.Load(); err != nil {
			log.Printf("Failed to load .env file: %v", err)
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%t (default: %t)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	log.Printf("Config override: %s=%v (default: %v)", key, out, defaultValue)
	return out
}

var (
	// Server
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration
	GinMode            string
	CORSAllowOrigins   []string
	MaxUploadMB        int

	// Logging
	LogDirectory    string
	LogToFile       bool
	LogJSON         bool
	LogLevel        string
	LogStreamBuffer int

	// Rendering
	RenderFormat              string
	RenderQuality             int
	RenderWorkers             int
	RenderCacheCleanup        time.Duration
	RenderCacheCleanupVerbose bool

	// Messaging
	BroadcastBuffer int
)

func init() {
	loadEnvFile()

	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)
	GinMode = getEnvString("GIN_MODE", "release")
	CORSAllowOrigins = getEnvList("CORS_ALLOW_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"})
	MaxUploadMB = getEnvInt("MAX_UPLOAD_MB", 64)

	LogDirectory = getEnvString("LOG_DIRECTORY", "logs")
	LogToFile = getEnvBool("LOG_TO_FILE", false)
	LogJSON = getEnvBool("LOG_JSON", true)
	LogLevel = getEnvString("LOG_LEVEL", "INFO")
	LogStreamBuffer = getEnvInt("LOG_STREAM_BUFFER", 1000)

	RenderFormat = getEnvString("RENDER_FORMAT", "webp")
	RenderQuality = getEnvInt("RENDER_QUALITY", 80)
	RenderWorkers = getEnvInt("RENDER_WORKERS", 4)
	RenderCacheCleanup = time.Duration(getEnvInt("RENDER_CACHE_CLEANUP_MINUTES", 10)) * time.Minute
	RenderCacheCleanupVerbose = getEnvBool("RENDER_CACHE_CLEANUP_VERBOSE", false)

	BroadcastBuffer = getEnvInt("BROADCAST_BUFFER", 64)
}
