package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var (
	MongoURI     string
	DBName       string
	StoreBackend string
	Port         string

	JWTSecret string
	JWTTTL    time.Duration
	RedisURL  string

	AWSRegion     string
	AWSBucketName string

	SendGridAPIKey string
	EmailSender    string

	MeasurementProvider string
	MeasurementAPIURL   string
	GeminiAPIKey        string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	ActiveWindowDays int
	LeaderboardSize  int
)

// LoadConfig loads environment variables from .env file
func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using default values or system environment variables")
	}

	MongoURI = getEnv("MONGO_URI", "mongodb://localhost:27017/")
	DBName = getEnv("DB_NAME", "tailorme")
	StoreBackend = getEnv("STORE_BACKEND", "mongo")
	Port = getEnv("PORT", "8080")

	JWTSecret = os.Getenv("JWT_SECRET")
	JWTTTL = time.Duration(getEnvInt("JWT_TTL_HOURS", 24)) * time.Hour
	RedisURL = os.Getenv("REDIS_URL")

	AWSRegion = getEnv("AWS_REGION", "ap-south-1")
	AWSBucketName = os.Getenv("AWS_BUCKET_NAME")

	SendGridAPIKey = os.Getenv("SENDGRID_API_KEY")
	EmailSender = getEnv("EMAIL_SENDER", "no-reply@tailorme.app")

	MeasurementProvider = getEnv("MEASUREMENT_PROVIDER", "predict")
	MeasurementAPIURL = getEnv("MEASUREMENT_API_URL", "http://localhost:5000/predict")
	GeminiAPIKey = os.Getenv("GEMINI_API_KEY")

	GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	GoogleRedirectURL = getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/auth/google/callback")

	ActiveWindowDays = getEnvInt("ACTIVE_WINDOW_DAYS", 14)
	LeaderboardSize = getEnvInt("LEADERBOARD_SIZE", 5)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
		log.Printf("Invalid integer for %s=%q, using %d", key, value, fallback)
	}
	return fallback
}
