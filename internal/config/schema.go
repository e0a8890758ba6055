package config

// Config holds biblio configuration.
// Stored at: {home}/config.yaml
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Admin    AdminConfig    `mapstructure:"admin" yaml:"admin"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Redis    RedisConfig    `mapstructure:"redis" yaml:"redis"`
	Cache    CacheConfig    `mapstructure:"cache" yaml:"cache"`
	Search   SearchConfig   `mapstructure:"search" yaml:"search"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
}

// AdminConfig holds the basic auth credentials for administrative
// endpoints. Values support ${ENV_VAR} syntax.
type AdminConfig struct {
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
}

// DatabaseConfig holds Postgres settings. When URL is empty and
// ManageContainer is true, the server runs its own Postgres container.
type DatabaseConfig struct {
	// URL is an external Postgres connection string (supports ${ENV_VAR}).
	// Takes precedence over the managed container.
	URL string `mapstructure:"url" yaml:"url"`
	// ManageContainer runs Postgres in Docker when no URL is given.
	ManageContainer bool `mapstructure:"manage_container" yaml:"manage_container"`
	// ContainerName is the Docker container name (default: derived from home path)
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
	// Image is the Docker image to use (default: postgres:16-alpine)
	Image string `mapstructure:"image" yaml:"image"`
	// Port is the host port to bind (default: 5432)
	Port string `mapstructure:"port" yaml:"port"`
	// Password for the managed container's superuser (supports ${ENV_VAR}).
	Password string `mapstructure:"password" yaml:"password"`
}

// RedisConfig holds the response cache connection settings.
type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	URL     string `mapstructure:"url" yaml:"url"`
}

// CacheConfig tunes the response cache.
type CacheConfig struct {
	Prefix     string `mapstructure:"prefix" yaml:"prefix"`
	TTLSeconds int    `mapstructure:"ttl_seconds" yaml:"ttl_seconds"`
}

// SearchConfig selects the search strategy and language.
type SearchConfig struct {
	// Strategy is "indexed" (Postgres full-text search) or "livescan"
	// (re-reads the archive on every query).
	Strategy string `mapstructure:"strategy" yaml:"strategy"`
	// Language names the Postgres text search configuration.
	Language string `mapstructure:"language" yaml:"language"`
}

// Search strategies.
const (
	StrategyIndexed  = "indexed"
	StrategyLivescan = "livescan"
)

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: "8080",
		},
		Admin: AdminConfig{
			Username: "admin",
			Password: "${BIBLIO_ADMIN_PASSWORD}",
		},
		Database: DatabaseConfig{
			ManageContainer: true,
			Image:           "postgres:16-alpine",
			Port:            "5432",
			Password:        "biblio",
		},
		Redis: RedisConfig{
			Enabled: false,
			URL:     "redis://localhost:6379/0",
		},
		Cache: CacheConfig{
			Prefix:     "biblio-cache",
			TTLSeconds: 0,
		},
		Search: SearchConfig{
			Strategy: StrategyIndexed,
			Language: "russian",
		},
	}
}
