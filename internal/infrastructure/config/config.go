package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Sites     SitesConfig
	Geocoder  GeocoderConfig
	Google    GoogleConfig
	Mail      MailConfig
	Supabase  SupabaseConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Output    OutputConfig
	Promotion PromotionConfig
	Calendar  CalendarConfig
	Log       LogConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// SitesConfig holds the storefront credentials for both shops
type SitesConfig struct {
	Mini SiteConfig
	Dok  SiteConfig
}

// SiteConfig holds a single WooCommerce storefront connection
type SiteConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	TimeoutSeconds int
	BatchSize      int
	PageSize       int
}

// GeocoderConfig holds Google Maps geocoding settings
type GeocoderConfig struct {
	APIKey     string
	PaceMillis int // minimum gap between requests
}

// GoogleConfig holds Drive/Sheets service account settings
type GoogleConfig struct {
	CredentialsFile string
	SharedDriveID   string
	FolderID        string
}

// MailConfig holds SMTP settings and report recipients
type MailConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	ManifestRecipient string
	ResultRecipient   string
}

// SupabaseConfig holds the product name catalog endpoint
type SupabaseConfig struct {
	URL string
	Key string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// StorageConfig holds object storage settings for manifest backups.
// Compatible with any S3-compatible backend (AWS S3, RustFS, MinIO, etc.)
type StorageConfig struct {
	Enabled      bool
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	Prefix       string
	UseSSL       bool
	UsePathStyle bool
}

// OutputConfig holds local output settings for generated manifests
type OutputConfig struct {
	Dir string
}

// PromotionConfig holds friend bundle promotion settings
type PromotionConfig struct {
	Enabled         bool
	ProductID       int64 // storefront product id of the bonus starter pack
	LookbackMinutes int   // window of completed orders scanned per run
}

// CalendarConfig holds rest day settings
type CalendarConfig struct {
	CustomHolidays []string // YYYY-MM-DD, skipped like public holidays
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with FULFILL_ prefix (e.g., FULFILL_MAIL_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("FULFILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Build config struct
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Sites: SitesConfig{
			Mini: siteFromViper(v, "sites.mini"),
			Dok:  siteFromViper(v, "sites.dok"),
		},
		Geocoder: GeocoderConfig{
			APIKey:     v.GetString("geocoder.api_key"),
			PaceMillis: v.GetInt("geocoder.pace_millis"),
		},
		Google: GoogleConfig{
			CredentialsFile: v.GetString("google.credentials_file"),
			SharedDriveID:   v.GetString("google.shared_drive_id"),
			FolderID:        v.GetString("google.folder_id"),
		},
		Mail: MailConfig{
			Host:              v.GetString("mail.host"),
			Port:              v.GetInt("mail.port"),
			Username:          v.GetString("mail.username"),
			Password:          v.GetString("mail.password"),
			ManifestRecipient: v.GetString("mail.manifest_recipient"),
			ResultRecipient:   v.GetString("mail.result_recipient"),
		},
		Supabase: SupabaseConfig{
			URL: v.GetString("supabase.url"),
			Key: v.GetString("supabase.key"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Storage: StorageConfig{
			Enabled:      v.GetBool("storage.enabled"),
			Endpoint:     v.GetString("storage.endpoint"),
			Region:       v.GetString("storage.region"),
			Bucket:       v.GetString("storage.bucket"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			Prefix:       v.GetString("storage.prefix"),
			UseSSL:       v.GetBool("storage.use_ssl"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
		},
		Output: OutputConfig{
			Dir: v.GetString("output.dir"),
		},
		Promotion: PromotionConfig{
			Enabled:         v.GetBool("promotion.enabled"),
			ProductID:       v.GetInt64("promotion.product_id"),
			LookbackMinutes: v.GetInt("promotion.lookback_minutes"),
		},
		Calendar: CalendarConfig{
			CustomHolidays: v.GetStringSlice("calendar.custom_holidays"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func siteFromViper(v *viper.Viper, prefix string) SiteConfig {
	return SiteConfig{
		BaseURL:        v.GetString(prefix + ".base_url"),
		ConsumerKey:    v.GetString(prefix + ".consumer_key"),
		ConsumerSecret: v.GetString(prefix + ".consumer_secret"),
		TimeoutSeconds: v.GetInt(prefix + ".timeout_seconds"),
		BatchSize:      v.GetInt(prefix + ".batch_size"),
		PageSize:       v.GetInt(prefix + ".page_size"),
	}
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "fulfillment"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Geocoder.PaceMillis == 0 {
		cfg.Geocoder.PaceMillis = 100
	}
	if cfg.Mail.Port == 0 {
		cfg.Mail.Port = 587
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "ap-northeast-2"
	}
	if cfg.Storage.Prefix == "" {
		cfg.Storage.Prefix = "manifests"
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "output"
	}
	if cfg.Promotion.LookbackMinutes == 0 {
		cfg.Promotion.LookbackMinutes = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	for name, site := range map[string]SiteConfig{"sites.mini": c.Sites.Mini, "sites.dok": c.Sites.Dok} {
		if site.BaseURL == "" {
			continue // unconfigured site is skipped at runtime
		}
		if site.ConsumerKey == "" || site.ConsumerSecret == "" {
			return fmt.Errorf("%s: consumer_key and consumer_secret are required when base_url is set", name)
		}
	}

	if c.Promotion.Enabled && c.Promotion.ProductID == 0 {
		return fmt.Errorf("promotion.product_id is required when the promotion is enabled")
	}

	if c.Storage.Enabled {
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required when storage is enabled")
		}
		if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
			return fmt.Errorf("storage.access_key and storage.secret_key are required when storage is enabled")
		}
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Sites.Mini.BaseURL == "" && c.Sites.Dok.BaseURL == "" {
			return fmt.Errorf("at least one storefront must be configured in production")
		}
		if c.Mail.Host == "" || c.Mail.ManifestRecipient == "" {
			return fmt.Errorf("mail.host and mail.manifest_recipient are required in production")
		}
	}

	return nil
}

// Timeout returns the per-request HTTP timeout for a storefront
func (s *SiteConfig) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}
