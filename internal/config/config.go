package config

import (
	"os"
	"strings"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	StoreDriver string // memory|sqlite|postgres|mongo
	DBDSN       string
	MongoURI    string
	MongoDB     string

	RedisAddr    string // empty disables pub/sub fan-out
	RedisChannel string

	AuthSecret    string
	AdminUser     string
	AdminPassHash string // bcrypt; empty disables admin login

	// dev tokens for students (username == password)
	EnableDevLogin bool

	CORSOrigins []string

	LogLevel   string
	LogConsole bool
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	defOrigins := "http://localhost:3000,http://localhost:5173"
	if mode == ModeOnline {
		defOrigins = "https://mockme.app"
	}
	return Config{
		Mode:           mode,
		HTTPAddr:       addr,
		StoreDriver:    envOr("STORE_DRIVER", "sqlite"),
		DBDSN:          envOr("DB_DSN", ""),
		MongoURI:       envOr("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:        envOr("MONGO_DB", "mockme"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisChannel:   envOr("REDIS_CHANNEL", "mockme.events"),
		AuthSecret:     envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		AdminUser:      envOr("ADMIN_USER", "admin"),
		AdminPassHash:  os.Getenv("ADMIN_PASS_HASH"),
		EnableDevLogin: envBool("ENABLE_DEV_LOGIN", mode == ModeOffline),
		CORSOrigins:    csvOr("CORS_ORIGINS", defOrigins),
		LogLevel:       envOr("LOG_LEVEL", "info"),
		LogConsole:     envBool("LOG_CONSOLE", mode == ModeOffline),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
