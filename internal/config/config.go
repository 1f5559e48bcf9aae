package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port          string
	JWTSecret     string
	AdminUser     string
	AdminPassword string

	VerifyToken   string
	WhatsAppToken string
	PhoneNumberID string

	FollowUpPace time.Duration

	ArchiveEnabled bool
	DBPath         string
	DBHost         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBPort         string
	DBSSLMode      string
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Warn().Msg("no .env file loaded")
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		JWTSecret:      getEnv("JWT_SECRET", "sua-chave-secreta-muito-forte-aqui-2025"),
		AdminUser:      getEnv("ADMIN_USER", "lucas"),
		AdminPassword:  getEnv("ADMIN_PASSWORD", "@Sucesso2025"),
		VerifyToken:    getEnv("VERIFY_TOKEN", ""),
		WhatsAppToken:  getEnv("WHATSAPP_TOKEN", ""),
		PhoneNumberID:  getEnv("PHONE_NUMBER_ID", ""),
		FollowUpPace:   getDuration("FOLLOWUP_PACE", 2*time.Second),
		ArchiveEnabled: getEnv("ARCHIVE_ENABLED", "true") == "true",
		DBPath:         getEnv("DB_PATH", "./salesbot.db"),
		DBHost:         getEnv("DB_HOST", ""),
		DBUser:         getEnv("DB_USER", ""),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", ""),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBSSLMode:      getEnv("DB_SSLMODE", "disable"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("invalid duration, using default")
		return fallback
	}
	return d
}
