package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultRecipeAPIURL        = "https://baking-ai.onrender.com/get-all-recipes"
	DefaultPageSize            = 20
	DefaultMaxSearchCandidates = 1000
)

// Web holds the settings of the recipe browsing front.
type Web struct {
	Port                string
	RecipeAPIURL        string
	PageSize            int
	MaxSearchCandidates int
	RequestTimeout      time.Duration
	Attempts            int
	RatePerSecond       float64
	SessionTTL          time.Duration
	SessionStore        string // memory | redis
}

// API holds the settings of the recipe API server.
type API struct {
	Port           string
	CatalogSource  string // csv | postgres | sqlite
	CSVPath        string
	SQLitePath     string
	ReloadInterval time.Duration
	CORSOrigins    []string
	DefaultLimit   int
}

// Database holds Postgres connection parameters.
type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// LoadEnvFile loads variables from the given files into the environment.
// Missing files are not an error; the returned bool reports whether any file
// was read.
func LoadEnvFile(files ...string) bool {
	loaded := false
	for _, f := range files {
		if err := godotenv.Load(f); err == nil {
			loaded = true
		}
	}
	return loaded
}

func WebConfig() Web {
	return Web{
		Port:                GetEnv("PORT", "8080"),
		RecipeAPIURL:        GetEnv("RECIPE_API_URL", DefaultRecipeAPIURL),
		PageSize:            GetEnvInt("PAGE_SIZE", DefaultPageSize),
		MaxSearchCandidates: GetEnvInt("MAX_SEARCH_CANDIDATES", DefaultMaxSearchCandidates),
		RequestTimeout:      GetEnvDuration("RECIPE_API_TIMEOUT", 30*time.Second),
		Attempts:            GetEnvInt("RECIPE_API_ATTEMPTS", 1),
		RatePerSecond:       GetEnvFloat("RECIPE_API_RATE", 5),
		SessionTTL:          GetEnvDuration("SESSION_TTL", 24*time.Hour),
		SessionStore:        GetEnv("SESSION_STORE", "memory"),
	}
}

func APIConfig() API {
	return API{
		Port:           GetEnv("PORT", "8080"),
		CatalogSource:  GetEnv("CATALOG_SOURCE", "csv"),
		CSVPath:        GetEnv("RECIPES_CSV", "recipes.csv"),
		SQLitePath:     GetEnv("SQLITE_PATH", "recipes.db"),
		ReloadInterval: GetEnvDuration("CATALOG_RELOAD_INTERVAL", 5*time.Minute),
		CORSOrigins:    GetEnvList("CORS_ORIGINS", []string{"https://bakingai.netlify.app"}),
		DefaultLimit:   GetEnvInt("DEFAULT_LIMIT", DefaultPageSize),
	}
}

// RedisConfig returns host, port, password
func RedisConfig() (string, string, string) {
	host := GetEnv("R_HOST", "redis")
	port := GetEnv("R_PORT", "6379")
	password := GetEnv("R_PASS", "")
	return host, port, password
}

func DatabaseConfig() Database {
	return Database{
		Host:     GetEnv("DB_HOST", "localhost"),
		Port:     GetEnv("DB_PORT", "5432"),
		User:     GetEnv("DB_USER", ""),
		Password: GetEnv("DB_PASS", ""),
		Name:     GetEnv("DB_NAME", "bakingai"),
		SSLMode:  GetEnv("DB_SSL_MODE", "disable"),
	}
}

// GetEnv retrieves values from environment files based on the key it matches,
// returns a string (value) if not empty
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt returns the integer value of key, or defaultValue when unset or
// not a positive integer.
func GetEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(GetEnv(key, ""))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func GetEnvFloat(key string, defaultValue float64) float64 {
	f, err := strconv.ParseFloat(GetEnv(key, ""), 64)
	if err != nil || f <= 0 {
		return defaultValue
	}
	return f
}

// GetEnvDuration accepts Go duration strings ("30s", "5m").
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(GetEnv(key, ""))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

// GetEnvList splits a comma separated value, dropping blanks.
func GetEnvList(key string, defaultValue []string) []string {
	raw := GetEnv(key, "")
	if raw == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
