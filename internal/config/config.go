package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	StoragePath    string
	UseInMemory    bool
	LogLevel       string
	ResponderDelay time.Duration
}

func Load() *Config {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	return &Config{
		StoragePath:    getEnv("STORAGE_PATH", "charla.db"),
		UseInMemory:    getEnvAsBool("IN_MEMORY", false),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		ResponderDelay: time.Duration(getEnvAsInt("RESPONDER_DELAY_MS", 1000)) * time.Millisecond,
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
