package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel       string `env:"LOG_LEVEL"`
	Postgres       Postgres
	Redis          Redis
	HTTP           HTTP
	API            API
	Cache          Cache
	Throttle       Throttle
	Jobs           Jobs
	GoogleDrive    GoogleDrive
	Gemini         Gemini
	StartBalance   string        `env:"START_BALANCE" envDefault:"100000"`
	GuestSessionTTL time.Duration `env:"GUEST_SESSION_TTL" envDefault:"720h"`
}

type Postgres struct {
	Host            string `env:"PG_HOST"`
	Port            int    `env:"PG_PORT"`
	DbName          string `env:"PG_DB_NAME"`
	Password        string `env:"PG_PASSWORD"`
	User            string `env:"PG_USER"`
	MaxOpenConns    int    `env:"PG_MAX_OPEN_CONNS"`
	ConnMaxLifetime int    `env:"PG_CONN_MAX_LIFETIME"`
	MaxIdleConns    int    `env:"PG_MAX_IDLE_CONNS"`
	ConnMaxIdleTime int    `env:"PG_CONN_MAX_IDLE_TIME"`
	MigrationDir    string `env:"PG_MIGRATION_DIR"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST"`
	Port     int    `env:"REDIS_PORT"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB"`
}

type HTTP struct {
	Port            int           `env:"HTTP_PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type API struct {
	Debug        bool          `env:"API_DEBUG"`
	Timeout      time.Duration `env:"API_TIMEOUT"`
	AlphaVantage AlphaVantage
}

type AlphaVantage struct {
	Url    string `env:"ALPHA_VANTAGE_API_URL" envDefault:"https://www.alphavantage.co"`
	ApiKey string `env:"ALPHA_VANTAGE_API_KEY"`
}

type Cache struct {
	QuotesFreshness     time.Duration `env:"CACHE_QUOTES_FRESHNESS" envDefault:"15m"`
	PortfolioExpiration time.Duration `env:"CACHE_PORTFOLIO_EXPIRATION" envDefault:"15m"`
}

type Throttle struct {
	MinInterval time.Duration `env:"THROTTLE_MIN_INTERVAL" envDefault:"12s"`
	QueueSize   int           `env:"THROTTLE_QUEUE_SIZE" envDefault:"256"`
}

type Jobs struct {
	RefreshQuotesInterval time.Duration `env:"REFRESH_QUOTES_JOB_INTERVAL" envDefault:"1h"`
	DriveCleanupInterval  time.Duration `env:"DRIVE_CLEANUP_JOB_INTERVAL" envDefault:"24h"`
}

type GoogleDrive struct {
	CredentialsFile string        `env:"GOOGLE_DRIVE_CREDENTIALS_FILE"`
	FileTTL         time.Duration `env:"GOOGLE_DRIVE_FILE_TTL" envDefault:"168h"`
}

type Gemini struct {
	ApiKey string `env:"GEMINI_API_KEY"`
	Model  string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}
