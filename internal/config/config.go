package config

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          int
	MediaPath     string
	DataPath      string
	DBPath        string
	JWTSecret     string
	AdminUsername string
	AdminPassword string
	CORSOrigins   []string

	// Collaborator service endpoints. Empty disables the feature.
	CoverServiceURL  string
	SpeechServiceURL string

	// Timeline surface defaults, overridable per client.
	PixelsPerSecond float64
	TrackHeight     float64
	SnapThresholdPx float64
	TickIntervalMs  int
}

func Load() *Config {
	// Optional .env for local development; real env vars win.
	godotenv.Load()

	port, _ := strconv.Atoi(getEnv("PORT", "8080"))
	dataPath := getEnv("DATA_PATH", "/data")

	// JWT secret: require explicit setting or generate random
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			log.Fatalf("Failed to generate random JWT secret: %v", err)
		}
		jwtSecret = hex.EncodeToString(b)
		log.Println("WARNING: JWT_SECRET not set, using random secret. Sessions will not survive restarts. Set JWT_SECRET env var for persistent sessions.")
	}

	// CORS origins: comma-separated list or "*" (default)
	corsOrigins := []string{"*"}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		corsOrigins = make([]string, 0, len(origins))
		for _, o := range origins {
			o = strings.TrimSpace(o)
			if o != "" {
				corsOrigins = append(corsOrigins, o)
			}
		}
	}

	return &Config{
		Port:             port,
		MediaPath:        getEnv("MEDIA_PATH", "/media"),
		DataPath:         dataPath,
		DBPath:           getEnv("DB_PATH", dataPath+"/studio.db"),
		JWTSecret:        jwtSecret,
		AdminUsername:    getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:    getEnv("ADMIN_PASSWORD", "admin"),
		CORSOrigins:      corsOrigins,
		CoverServiceURL:  getEnv("COVER_SERVICE_URL", ""),
		SpeechServiceURL: getEnv("SPEECH_SERVICE_URL", ""),
		PixelsPerSecond:  getEnvFloat("PIXELS_PER_SECOND", 100),
		TrackHeight:      getEnvFloat("TRACK_HEIGHT_PX", 28),
		SnapThresholdPx:  getEnvFloat("SNAP_THRESHOLD_PX", 8),
		TickIntervalMs:   getEnvInt("TICK_INTERVAL_MS", 16),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
