package config

import (
	"log/slog"
	"os"
	"strconv"
)

func Load() App {
	cfg := App{
		Port:                getenv("APP_PORT", "8080"),
		DatabaseURL:         must("DATABASE_URL"),
		JWTSecret:           getenv("JWT_SECRET", "local_dev_secret"),
		PushGatewayURL:      os.Getenv("PUSH_GATEWAY_URL"),
		PushAPIKey:          os.Getenv("PUSH_API_KEY"),
		LoanPeriodDays:      getenvInt("LOAN_PERIOD_DAYS", 14),
		ReminderWindowHours: getenvInt("REMINDER_WINDOW_HOURS", 48),
		Env:                 getenv("APP_ENV", "dev"),
	}
	return cfg
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("bad int env, using default", "key", k, "value", v)
		return def
	}
	return n
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		slog.Error("required env missing", "key", k)
		panic("missing env " + k)
	}
	return v
}
