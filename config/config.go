package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/Temutjin2k/droply/internal/domain/types"
	"github.com/Temutjin2k/droply/pkg/configparser"
)

// Flags
var (
	modeFlag = flag.String("mode", "", "application mode: package-service | tracker-service")
)

// Errors
var (
	ErrModeNotProvided = errors.New("mode flag not provided")
)

// Config contains all configuration variables of the application
type (
	Config struct {
		Mode types.ServiceMode

		Log               LogConfig
		Store             StoreConfig
		Database          DatabaseConfig
		RabbitMQ          RabbitMQConfig
		Services          ServicesConfig
		ExternalAPIConfig ExternalAPIConfig
		GeoCache          GeoCacheConfig
		Map               MapConfig
		Tracker           TrackerConfig
		Auth              Auth
	}

	LogConfig struct {
		Level string `env:"LOG_LEVEL" default:"DEBUG"`
	}

	StoreConfig struct {
		Driver types.StoreDriver `env:"STORE_DRIVER" default:"postgres"`
	}

	DatabaseConfig struct {
		Host     string `env:"DATABASE_HOST" default:"localhost"`
		Port     string `env:"DATABASE_PORT" default:"5432"`
		User     string `env:"DATABASE_USER" default:"droply_user"`
		Password string `env:"DATABASE_PASSWORD" default:"droply_pass"`
		Database string `env:"DATABASE_DATABASE" default:"droply_db"`

		MaxConns        int32         `env:"DATABASE_MAXCONNS" default:"20"`
		MinConns        int32         `env:"DATABASE_MINCONNS" default:"2"`
		MaxConnLifetime time.Duration `env:"DATABASE_MAXCONNLIFETIME" default:"30m"`
		MaxConnIdleTime time.Duration `env:"DATABASE_MAXCONNIDLETIME" default:"5m"`

		AutoMigrate bool `env:"DATABASE_AUTOMIGRATE" default:"true"`
	}

	RabbitMQConfig struct {
		Host     string `env:"RABBITMQ_HOST" default:"localhost"`
		Port     string `env:"RABBITMQ_PORT" default:"5672"`
		User     string `env:"RABBITMQ_USER" default:"guest"`
		Password string `env:"RABBITMQ_PASSWORD" default:"guest"`

		Exchange string `env:"RABBITMQ_EXCHANGE" default:"package_topic"`
		Queue    string `env:"RABBITMQ_TRACKER_QUEUE" default:"tracker_package_status"`
	}

	ServicesConfig struct {
		PackageService string `env:"SERVICES_PACKAGE_SERVICE" default:"3000"`
		TrackerService string `env:"SERVICES_TRACKER_SERVICE" default:"3001"`
	}

	ExternalAPIConfig struct {
		LocationIQapiKey  string        `env:"LOCATIONIQ_API_KEY"`
		LocationIQBaseURL string        `env:"LOCATIONIQ_BASE_URL" default:"https://us1.locationiq.com"`
		Timeout           time.Duration `env:"LOCATIONIQ_TIMEOUT" default:"5s"`
	}

	GeoCacheConfig struct {
		Enabled   bool          `env:"GEOCACHE_ENABLED" default:"true"`
		Path      string        `env:"GEOCACHE_PATH" default:"geocache.db"`
		TTL       time.Duration `env:"GEOCACHE_TTL" default:"720h"`
		PurgeSpec string        `env:"GEOCACHE_PURGE_SPEC" default:"0 0 * * * *"`
	}

	MapConfig struct {
		FallbackLatitude       float64 `env:"MAP_FALLBACK_LATITUDE" default:"36.75"`
		FallbackLongitude      float64 `env:"MAP_FALLBACK_LONGITUDE" default:"3.06"`
		DetailPickupLatitude   float64 `env:"MAP_DETAIL_PICKUP_LATITUDE" default:"36.75"`
		DetailPickupLongitude  float64 `env:"MAP_DETAIL_PICKUP_LONGITUDE" default:"3.06"`
		DetailDropoffLatitude  float64 `env:"MAP_DETAIL_DROPOFF_LATITUDE" default:"36.70"`
		DetailDropoffLongitude float64 `env:"MAP_DETAIL_DROPOFF_LONGITUDE" default:"3.05"`
		GeocodeConcurrency     int     `env:"MAP_GEOCODE_CONCURRENCY" default:"4"`
		CourierSpeedKmh        float64 `env:"MAP_COURIER_SPEED_KMH" default:"30"`
	}

	TrackerConfig struct {
		CheckInterval     time.Duration `env:"TRACKER_CHECK_INTERVAL" default:"10s"`
		SampleMinInterval time.Duration `env:"TRACKER_SAMPLE_MIN_INTERVAL" default:"5s"`
		SampleMinDistance float64       `env:"TRACKER_SAMPLE_MIN_DISTANCE_M" default:"10"`
		WriteTimeout      time.Duration `env:"TRACKER_WRITE_TIMEOUT" default:"5s"`
	}

	Auth struct {
		AccessTokenTTL time.Duration `env:"AUTH_ACCESS_TOKEN_TTL" default:"24h"`
		JWTSecret      string        `env:"AUTH_JWT_SECRET" default:"supersecretkey"`
	}
)

func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

func (c RabbitMQConfig) GetDSN() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.User,
		c.Password,
		c.Host,
		c.Port,
	)
}

func NewConfig(filepath string) (*Config, error) {
	cfg := &Config{}

	// Loading enviromental variables and parsing to config struct.
	if err := configparser.LoadAndParseYaml(filepath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load and parse config: %w", err)
	}

	if err := parseFlags(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	return cfg, nil
}

func parseFlags(cfg *Config) error {
	if modeFlag == nil || *modeFlag == "" {
		return ErrModeNotProvided
	}

	cfg.Mode = types.ServiceMode(*modeFlag)

	return nil
}

// PoolLimits exposes pool sizing to pkg/postgres.
func (c DatabaseConfig) PoolLimits() (int32, int32, time.Duration, time.Duration) {
	return c.MaxConns, c.MinConns, c.MaxConnLifetime, c.MaxConnIdleTime
}
