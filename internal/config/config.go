package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env  string
	Port string

	// StoreBackend is one of memory, mongo or firestore.
	StoreBackend     string
	MongoURI         string
	DBName           string
	FirestoreProject string

	APIKey        string
	JWTSigningKey string
	JWTIssuer     string
	TokenTTL      time.Duration

	// RateLimitBackend is memory or redis. RateLimitPerMin <= 0 disables limiting.
	RateLimitBackend string
	RateLimitPerMin  int
	RedisAddr        string

	CORSOrigins []string
}

func (c Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

func defaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("STORE_BACKEND", "memory")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("DB_NAME", "schoolportal")
	v.SetDefault("JWT_ISSUER", "schoolportal")
	v.SetDefault("TOKEN_TTL", 12*time.Hour)
	v.SetDefault("RATE_LIMIT_BACKEND", "memory")
	v.SetDefault("RATE_LIMIT_PER_MIN", 120)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("CORS_ORIGINS", "*")
}

// LoadConfig reads .env when present, then the process environment.
func LoadConfig() Config {
	_ = godotenv.Load()
	return fromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	defaults(v)
	v.AutomaticEnv()
	return v
}

func fromViper(v *viper.Viper) Config {
	var origins []string
	for _, o := range strings.Split(v.GetString("CORS_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return Config{
		Env:              v.GetString("APP_ENV"),
		Port:             v.GetString("PORT"),
		StoreBackend:     strings.ToLower(v.GetString("STORE_BACKEND")),
		MongoURI:         v.GetString("MONGO_URI"),
		DBName:           v.GetString("DB_NAME"),
		FirestoreProject: v.GetString("FIRESTORE_PROJECT"),
		APIKey:           v.GetString("API_KEY"),
		JWTSigningKey:    v.GetString("JWT_SIGNING_KEY"),
		JWTIssuer:        v.GetString("JWT_ISSUER"),
		TokenTTL:         v.GetDuration("TOKEN_TTL"),
		RateLimitBackend: strings.ToLower(v.GetString("RATE_LIMIT_BACKEND")),
		RateLimitPerMin:  v.GetInt("RATE_LIMIT_PER_MIN"),
		RedisAddr:        v.GetString("REDIS_ADDR"),
		CORSOrigins:      origins,
	}
}
