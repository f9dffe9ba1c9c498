package config

import (
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

// Geocoding providers.
const (
	ProviderKakao  = "kakao"
	ProviderMapbox = "mapbox"
	ProviderNone   = "none"
)

// Config holds all service settings, populated from an optional
// shelterdash.yaml and environment variables (env wins).
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// DatabaseURL selects the store: postgres:// or postgresql:// URLs use
	// Postgres, anything else is a SQLite path or DSN.
	DatabaseURL string
	DataDir     string

	// Public abandonment API (data.go.kr).
	AnimalAPIKey       string
	AnimalAPIBaseURL   string
	AnimalAPITimeout   time.Duration
	AnimalAPIRateLimit float64
	AnimalAPIPageSize  int
	FetchWindowDays    int

	// Geocoding configuration.
	GeocodeProvider      string
	GeocodeTimeout       time.Duration
	GeocodeCacheSize     int
	GeocodeRateLimit     float64
	GeocodeDefaultOrigin bool
	KakaoAPIKey          string
	MapboxToken          string

	// Snapshot publishing; disabled when KafkaBrokers is empty.
	KafkaBrokers []string
	KafkaTopic   string

	RefreshInterval time.Duration
}

// Load reads configuration from ./shelterdash.yaml or
// $HOME/.shelterdash/shelterdash.yaml when present, then the environment,
// applying defaults where unset.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit config file. An empty path searches the
// default locations.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("shelterdash")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.shelterdash")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	cfg := &Config{
		HTTPAddr:        v.GetString("http.addr"),
		LogLevel:        v.GetString("log.level"),
		LogFormat:       v.GetString("log.format"),
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),

		DatabaseURL: v.GetString("database.url"),
		DataDir:     v.GetString("data.dir"),

		AnimalAPIKey:       v.GetString("animal_api.service_key"),
		AnimalAPIBaseURL:   v.GetString("animal_api.base_url"),
		AnimalAPITimeout:   v.GetDuration("animal_api.timeout"),
		AnimalAPIRateLimit: v.GetFloat64("animal_api.rate_limit"),
		AnimalAPIPageSize:  v.GetInt("animal_api.page_size"),
		FetchWindowDays:    v.GetInt("fetch.window_days"),

		GeocodeTimeout:       v.GetDuration("geocode.timeout"),
		GeocodeCacheSize:     v.GetInt("geocode.cache_size"),
		GeocodeRateLimit:     v.GetFloat64("geocode.rate_limit"),
		GeocodeDefaultOrigin: v.GetBool("geocode.default_origin"),
		KakaoAPIKey:          v.GetString("kakao.api_key"),
		MapboxToken:          v.GetString("mapbox.token"),

		KafkaTopic: v.GetString("kafka.topic"),

		RefreshInterval: v.GetDuration("refresh.interval"),
	}
	if brokers := strings.TrimSpace(v.GetString("kafka.brokers")); brokers != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(brokers)
	}
	cfg.GeocodeProvider = resolveProvider(v.GetString("geocode.provider"), cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("shutdown_timeout", "10s")
	v.SetDefault("database.url", "shelters.db")
	v.SetDefault("data.dir", "data")
	v.SetDefault("animal_api.service_key", "")
	v.SetDefault("animal_api.base_url", "https://apis.data.go.kr/1543061/abandonmentPublicService_v2")
	v.SetDefault("animal_api.timeout", "30s")
	v.SetDefault("animal_api.rate_limit", 5.0)
	v.SetDefault("animal_api.page_size", 1000)
	v.SetDefault("fetch.window_days", 30)
	v.SetDefault("geocode.provider", "")
	v.SetDefault("geocode.timeout", "5s")
	v.SetDefault("geocode.cache_size", 1000)
	v.SetDefault("geocode.rate_limit", 10.0)
	v.SetDefault("geocode.default_origin", false)
	v.SetDefault("kakao.api_key", "")
	v.SetDefault("mapbox.token", "")
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "shelter-snapshots")
	v.SetDefault("refresh.interval", "6h")
}

// resolveProvider picks the explicit provider, else the first one with credentials.
func resolveProvider(explicit string, cfg *Config) string {
	if explicit != "" {
		return strings.ToLower(explicit)
	}
	switch {
	case cfg.KakaoAPIKey != "":
		return ProviderKakao
	case cfg.MapboxToken != "":
		return ProviderMapbox
	default:
		return ProviderNone
	}
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return eris.New("DATABASE_URL is required")
	}
	if c.ShutdownTimeout <= 0 {
		return eris.New("invalid SHUTDOWN_TIMEOUT")
	}
	if c.AnimalAPITimeout <= 0 {
		return eris.New("invalid ANIMAL_API_TIMEOUT")
	}
	if c.AnimalAPIPageSize <= 0 {
		return eris.New("invalid ANIMAL_API_PAGE_SIZE")
	}
	if c.AnimalAPIRateLimit <= 0 {
		return eris.New("invalid ANIMAL_API_RATE_LIMIT")
	}
	if c.FetchWindowDays <= 0 {
		return eris.New("invalid FETCH_WINDOW_DAYS")
	}
	if c.GeocodeTimeout <= 0 {
		return eris.New("invalid GEOCODE_TIMEOUT")
	}
	if c.GeocodeCacheSize <= 0 {
		c.GeocodeCacheSize = 1000
	}
	if c.GeocodeRateLimit <= 0 {
		return eris.New("invalid GEOCODE_RATE_LIMIT")
	}
	if c.RefreshInterval <= 0 {
		return eris.New("invalid REFRESH_INTERVAL")
	}

	switch c.GeocodeProvider {
	case ProviderKakao:
		if c.KakaoAPIKey == "" {
			return eris.New("GEOCODE_PROVIDER is kakao but KAKAO_API_KEY is not set")
		}
	case ProviderMapbox:
		if c.MapboxToken == "" {
			return eris.New("GEOCODE_PROVIDER is mapbox but MAPBOX_TOKEN is not set")
		}
	case ProviderNone:
	default:
		return eris.Errorf("unknown GEOCODE_PROVIDER %q", c.GeocodeProvider)
	}

	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return eris.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

// UsesPostgres reports whether DatabaseURL points at Postgres.
func (c *Config) UsesPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}
