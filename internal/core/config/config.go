package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig holds the configuration for the application.
// Tags used:
// - mapstructure: used by viper to unmarshal
// - default: default value to set if missing
// - required: if "true", error if missing
type AppConfig struct {
	// Environment specifies the runtime environment (e.g., development, production).
	Environment string `mapstructure:"APP_ENV" default:"development"`
	// LogLevel defines the logging verbosity (e.g., debug, info, error).
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
	// LogFile enables a rotated JSON log file when set.
	LogFile string `mapstructure:"LOG_FILE"`
	// ServerPort is the port where the server will listen.
	ServerPort int `mapstructure:"SERVER_PORT" default:"8080"`
	// NodeID seeds the return id generator. Every replica needs its own.
	NodeID int `mapstructure:"NODE_ID" default:"1"`

	// Database holds the database configuration.
	Database DatabaseConfig `mapstructure:",squash"`

	// Redis holds the Redis connection configuration.
	Redis RedisConfig `mapstructure:",squash"`

	// WooCommerce holds the WooCommerce API configuration.
	WooCommerce WooCommerceConfig `mapstructure:",squash"`

	// Couriers holds the tracking page URLs per courier.
	Couriers CouriersConfig `mapstructure:",squash"`

	// Proxy holds the upstream proxy used by the tracking scrapers.
	Proxy ProxyConfig `mapstructure:",squash"`

	// Collaborators holds the base URLs of the external services.
	Collaborators CollaboratorsConfig `mapstructure:",squash"`

	// Workflow holds the reverse-logistics tunables.
	Workflow WorkflowConfig `mapstructure:",squash"`

	// Monitor holds the SLA deadline monitor settings.
	Monitor MonitorConfig `mapstructure:",squash"`

	// Tracing holds the OpenTelemetry exporter settings.
	Tracing TracingConfig `mapstructure:",squash"`
}

// WooCommerceConfig holds the credentials for the WooCommerce Store.
type WooCommerceConfig struct {
	// URL is the base URL of the WooCommerce store.
	URL string `mapstructure:"WC_URL" required:"true"`
	// ConsumerKey is the public key for API access.
	ConsumerKey string `mapstructure:"WC_CONSUMER_KEY" required:"true"`
	// ConsumerSecret is the secret key for API access.
	ConsumerSecret string `mapstructure:"WC_CONSUMER_SECRET" required:"true"`
	// CompanyID is the seller every store order is attributed to.
	CompanyID string `mapstructure:"WC_COMPANY_ID" default:"store"`
	// CacheTTLSeconds keeps fetched orders in Redis; 0 disables the cache.
	CacheTTLSeconds int `mapstructure:"WC_ORDER_CACHE_TTL_SECONDS" default:"300"`
}

// CacheTTL returns the order cache lifetime.
func (w WooCommerceConfig) CacheTTL() time.Duration {
	return time.Duration(w.CacheTTLSeconds) * time.Second
}

// DatabaseConfig holds database connection details.
type DatabaseConfig struct {
	// Driver selects the gorm dialector: "postgres" or "sqlite".
	Driver string `mapstructure:"DB_DRIVER" default:"postgres"`
	// Host is the database server hostname.
	Host string `mapstructure:"DB_HOST" default:"localhost"`
	// Port is the database connection port.
	Port int `mapstructure:"DB_PORT" default:"5432"`
	User     string `mapstructure:"DB_USER" default:"postgres"`
	Password string `mapstructure:"DB_PASSWORD"`
	Name     string `mapstructure:"DB_NAME" default:"reverse_logistics"`
	SSLMode  string `mapstructure:"DB_SSLMODE" default:"disable"`
	// Path is the sqlite database file, only used with the sqlite driver.
	Path string `mapstructure:"DB_PATH" default:"reverse-logistics.db"`
}

// DSN builds the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// RedisConfig holds the Redis connection URL.
type RedisConfig struct {
	// URL is in the format redis://[:password@]host[:port][/database]
	URL string `mapstructure:"REDIS_URL" required:"true"`
}

// CouriersConfig holds the tracking endpoints for the scraped couriers.
type CouriersConfig struct {
	CoordinadoraURL    string `mapstructure:"COURIER_COORDINADORA_CO" required:"true"`
	InterrapidisimoURL string `mapstructure:"COURIER_INTERRAPIDISIMO_CO" required:"true"`
	// ServientregaURL is a format string taking the tracking number.
	ServientregaURL string `mapstructure:"COURIER_SERVIENTREGA_CO" default:"https://mobile.servientrega.com/WebSitePortal/RastreoEnvioDetalle.html?Guia=%s"`
}

// ProxyConfig holds the upstream proxy credentials.
type ProxyConfig struct {
	Enabled  bool   `mapstructure:"PROXY_ENABLED" default:"false"`
	Hostname string `mapstructure:"PROXY_HOST"`
	Port     int    `mapstructure:"PROXY_PORT"`
	Username string `mapstructure:"PROXY_USERNAME"`
	Password string `mapstructure:"PROXY_PASSWORD"`
}

// CollaboratorsConfig holds the base URLs of the services the engine calls out to.
type CollaboratorsConfig struct {
	CourierURL      string `mapstructure:"COURIER_API_URL" required:"true"`
	PaymentURL      string `mapstructure:"PAYMENT_API_URL" required:"true"`
	NotificationURL string `mapstructure:"NOTIFICATION_API_URL" required:"true"`
	InventoryURL    string `mapstructure:"INVENTORY_API_URL" required:"true"`
	StorageURL      string `mapstructure:"STORAGE_API_URL" required:"true"`
	// TimeoutSeconds bounds every collaborator call.
	TimeoutSeconds int `mapstructure:"COLLABORATOR_TIMEOUT_SECONDS" default:"10"`
}

// Timeout returns the collaborator timeout as a duration.
func (c CollaboratorsConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// WorkflowConfig holds the reverse-logistics tunables.
type WorkflowConfig struct {
	PickupSLAHours       int    `mapstructure:"RETURN_PICKUP_SLA_HOURS" default:"48"`
	RTOTransitDays       int    `mapstructure:"RTO_EXPECTED_TRANSIT_DAYS" default:"7"`
	RTORateLimit         int    `mapstructure:"RTO_RATE_LIMIT" default:"5"`
	RTORateWindowSeconds int    `mapstructure:"RTO_RATE_WINDOW_SECONDS" default:"60"`
	RestockingFeePercent int    `mapstructure:"RESTOCKING_FEE_PERCENT" default:"0"`
	NonRestockable       string `mapstructure:"NON_RESTOCKABLE_CATEGORIES" default:"innerwear,cosmetics,perishable"`
}

// NonRestockableCategories splits the comma separated category list.
func (w WorkflowConfig) NonRestockableCategories() []string {
	var out []string
	for _, c := range strings.Split(w.NonRestockable, ",") {
		if c = strings.TrimSpace(strings.ToLower(c)); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// MonitorConfig holds the SLA deadline monitor settings.
type MonitorConfig struct {
	Enabled         bool `mapstructure:"MONITOR_ENABLED" default:"true"`
	IntervalSeconds int  `mapstructure:"MONITOR_INTERVAL_SECONDS" default:"300"`
	BatchSize       int  `mapstructure:"MONITOR_BATCH_SIZE" default:"100"`
	Workers         int  `mapstructure:"MONITOR_WORKERS" default:"8"`
}

// TracingConfig holds the OpenTelemetry exporter settings.
type TracingConfig struct {
	// Endpoint is the OTLP/HTTP collector host:port. Empty disables tracing.
	Endpoint    string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME" default:"reverse-logistics"`
}

// maxNodeID is the largest id a 10 bit snowflake node accepts.
const maxNodeID = 1023

// Load loads configuration from .env files and environment variables.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, err
	}
	if config.NodeID < 0 || config.NodeID > maxNodeID {
		return nil, fmt.Errorf("NODE_ID must be between 0 and %d, got %d", maxNodeID, config.NodeID)
	}

	return &config, nil
}

// processTags iterates over the struct fields and sets default values in Viper.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			if err := v.BindEnv(key); err != nil {
				return fmt.Errorf("failed to bind %s: %w", key, err)
			}
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks if fields marked as required have non-zero values.
func validateRequired(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		if field.Tag.Get("required") == "true" && isZero(val.Field(i)) {
			return fmt.Errorf("missing required configuration: %s", field.Tag.Get("mapstructure"))
		}
	}
	return nil
}

// isZero checks if a reflect.Value is the zero value for its type.
func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}
