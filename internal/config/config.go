package config

import (
	"os"
	"strconv"
)

type Config struct {
	HTTPAddr string

	// Database. DB_DRIVER selects "sqlite" (default, file path in SQLitePath)
	// or "mysql" (DSN in DBDSN).
	DBDriver   string
	DBDSN      string
	SQLitePath string

	JWTSecret string

	// Shared secret the identity provider presents on /v1/users/sync.
	ProvisionSecret string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RabbitURL   string
	RabbitQueue string
}

func Load() Config {
	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	driver := os.Getenv("DB_DRIVER")
	if driver == "" {
		driver = "sqlite"
	}

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = "app:apppass@tcp(127.0.0.1:3306)/gopherchat?charset=utf8mb4&parseTime=true&loc=Local"
	}

	sqlitePath := os.Getenv("SQLITE_PATH")
	if sqlitePath == "" {
		sqlitePath = "gopherchat.db"
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-secret-change-me"
	}

	provisionSecret := os.Getenv("PROVISION_SECRET")
	if provisionSecret == "" {
		provisionSecret = "dev-provision-secret"
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	rabbitQueue := os.Getenv("RABBIT_QUEUE")
	if rabbitQueue == "" {
		rabbitQueue = "message_events"
	}

	return Config{
		HTTPAddr: httpAddr,

		DBDriver:   driver,
		DBDSN:      dsn,
		SQLitePath: sqlitePath,

		JWTSecret:       secret,
		ProvisionSecret: provisionSecret,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		RabbitURL:   os.Getenv("RABBIT_URL"),
		RabbitQueue: rabbitQueue,
	}
}
