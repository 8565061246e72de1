// minioctl/internal/config/config.go
package config

import (
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Storage StorageConfig
	App     AppConfig
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

type AppConfig struct {
	ConsoleURL string
	LogLevel   string
}

var (
	once     sync.Once
	instance *Config
)

// Load reads .env (when present) and the environment once per process.
func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		v := viper.GetViper()
		setDefaults(v)

		// Read from environment variables
		v.AutomaticEnv()

		instance = fromViper(v)
	})

	return instance
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("MINIO_ENDPOINT", "localhost:9000")
	v.SetDefault("MINIO_ACCESS_KEY", "minioadmin")
	v.SetDefault("MINIO_SECRET_KEY", "minioadmin123")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("MINIO_REGION", "")
	v.SetDefault("MINIO_CONSOLE_URL", "http://localhost:9003/")
	v.SetDefault("LOG_LEVEL", "warn")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Storage: StorageConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			Region:    v.GetString("MINIO_REGION"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
		},
		App: AppConfig{
			ConsoleURL: v.GetString("MINIO_CONSOLE_URL"),
			LogLevel:   v.GetString("LOG_LEVEL"),
		},
	}
}
