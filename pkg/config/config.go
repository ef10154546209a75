package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	SQLite  SQLiteConfig
	Redis   RedisConfig
	Milvus  MilvusConfig
	LLM     LLMConfig
	AustLII AustLIIConfig
	Sync    SyncConfig
	Email   EmailConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type MilvusConfig struct {
	Enabled        bool
	Endpoint       string
	APIKey         string
	CollectionName string
	VectorDim      int
}

type LLMConfig struct {
	Model          string
	APIKey         string
	EmbeddingModel string
	TimeoutSec     int
}

type AustLIIConfig struct {
	BaseURL    string
	TimeoutSec int
}

type SyncConfig struct {
	DailyLimit      int
	FetchRetries    int
	FetchBackoffSec int
	PacingDelaySec  int
	IntervalHours   int
	LeaseTTLMinutes int
	ScheduleEnabled bool
}

type EmailConfig struct {
	ResendAPIKey string
	FromAddress  string
	SyncReportTo string
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/arcanthyr")

	viper.SetEnvPrefix("ARCANTHYR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 10485760)

	viper.SetDefault("sqlite.path", "./data/arcanthyr.db")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("milvus.enabled", false)
	viper.SetDefault("milvus.endpoint", "localhost:19530")
	viper.SetDefault("milvus.collectionName", "legal_cases")
	viper.SetDefault("milvus.vectorDim", 1536)

	viper.SetDefault("llm.model", "gpt-4")
	viper.SetDefault("llm.embeddingModel", "text-embedding-3-small")
	viper.SetDefault("llm.timeoutSec", 60)

	viper.SetDefault("austlii.baseURL", "http://www.austlii.edu.au")
	viper.SetDefault("austlii.timeoutSec", 20)

	viper.SetDefault("sync.dailyLimit", 50)
	viper.SetDefault("sync.fetchRetries", 3)
	viper.SetDefault("sync.fetchBackoffSec", 2)
	viper.SetDefault("sync.pacingDelaySec", 2)
	viper.SetDefault("sync.intervalHours", 24)
	viper.SetDefault("sync.leaseTTLMinutes", 30)
	viper.SetDefault("sync.scheduleEnabled", true)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
