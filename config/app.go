package config

type App struct {
	Port                string `env:"APP_PORT" default:"8080"`
	DatabaseURL         string `env:"DATABASE_URL,required"`
	JWTSecret           string `env:"JWT_SECRET,required"`
	PushGatewayURL      string `env:"PUSH_GATEWAY_URL"`
	PushAPIKey          string `env:"PUSH_API_KEY"`
	LoanPeriodDays      int    `env:"LOAN_PERIOD_DAYS" default:"14"`
	ReminderWindowHours int    `env:"REMINDER_WINDOW_HOURS" default:"48"`
	Env                 string `env:"APP_ENV" default:"dev"`
}
