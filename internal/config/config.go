package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort    string // Application port
	DBUser     string // Database user
	DBPassword string // Database password
	DBHost     string // Database host
	DBPort     string // Database port
	DBName     string // Database name
	JWTSecret  string // JWT secret key
	RedisAddr  string // Redis server address
	RedisPass  string // Redis password
	RedisDB    int    // Redis database number
	IsProd     bool   // Is production environment

	// Referral economy settings. These are injected configuration,
	// never mutable global state.
	CodeOwnerBonus int64 // Coins credited to the referrer per rewarded referral
	NewUserBonus   int64 // Coins credited to the referred user when the referrer was rewarded
	ReferralsLimit int   // Hard ceiling on rewarded referrals per profile
	CoinValue      int64 // Game points required to mint one coin
}

// envInt reads an integer environment variable, falling back to def
func envInt(key string, def int64) int64 {
	if v, err := strconv.ParseInt(os.Getenv(key), 10, 64); err == nil {
		return v
	}
	return def
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	return &Config{
		AppPort:    os.Getenv("APP_PORT"),          // Application port
		DBUser:     os.Getenv("DB_USER"),           // Database user
		DBPassword: os.Getenv("DB_PASSWORD"),       // Database password
		DBHost:     os.Getenv("DB_HOST"),           // Database host
		DBPort:     os.Getenv("DB_PORT"),           // Database port
		DBName:     os.Getenv("DB_NAME"),           // Database name
		JWTSecret:  os.Getenv("JWT_SECRET"),        // JWT secret key
		RedisAddr:  os.Getenv("REDIS_ADDR"),        // Redis server address
		RedisPass:  os.Getenv("REDIS_PASS"),        // Redis password
		RedisDB:    redisDB,                        // Redis database number
		IsProd:     os.Getenv("IS_PROD") == "true", // Is production environment

		CodeOwnerBonus: envInt("CODE_OWNER_BONUS", 100),     // Referrer bonus per rewarded referral
		NewUserBonus:   envInt("NEW_USER_BONUS", 50),        // Join bonus for the referred user
		ReferralsLimit: int(envInt("REFERRALS_LIMIT", 7)),   // Rewarded-referral ceiling
		CoinValue:      envInt("COIN_VALUE", 100),           // Points per coin exchange rate
	}
}
