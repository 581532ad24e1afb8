package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Rasa       RasaConfig
	OSTicket   OSTicketConfig
	BookStack  BookStackConfig
	Extraction ExtractionConfig
	Clustering ClusteringConfig
	Scheduler  SchedulerConfig
	SQLite     SQLiteConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
}

// RasaConfig points at the Postgres tracker store holding conversation events.
type RasaConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// OSTicketConfig points at the MySQL helpdesk database.
type OSTicketConfig struct {
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	ResolvedStatusID int
	JoinStrategy     string
}

type BookStackConfig struct {
	URL         string
	APIToken    string
	APISecret   string
	BookName    string
	ChapterName string
	TimeoutSec  int
}

type ExtractionConfig struct {
	ConversationDays int
	TicketDays       int
}

type ClusteringConfig struct {
	Epsilon     float64
	MinSamples  int
	MaxFeatures int
}

type SchedulerConfig struct {
	Interval    time.Duration
	WarmupDelay time.Duration
	MaxAttempts int
}

type SQLiteConfig struct {
	Path string
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
	viper.AddConfigPath("/etc/bewithu")

	viper.SetEnvPrefix("BEWITHU")
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
	viper.SetDefault("server.port", 8090)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)

	viper.SetDefault("rasa.host", "postgres")
	viper.SetDefault("rasa.port", 5432)
	viper.SetDefault("rasa.user", "postgres")
	viper.SetDefault("rasa.password", "")
	viper.SetDefault("rasa.database", "rasa_db")

	viper.SetDefault("osticket.host", "mysql")
	viper.SetDefault("osticket.port", 3306)
	viper.SetDefault("osticket.user", "osticket")
	viper.SetDefault("osticket.password", "")
	viper.SetDefault("osticket.database", "osticket")
	viper.SetDefault("osticket.resolvedStatusID", 3)
	viper.SetDefault("osticket.joinStrategy", "conflated")

	viper.SetDefault("bookstack.url", "http://bookstack:80")
	viper.SetDefault("bookstack.apiToken", "")
	viper.SetDefault("bookstack.apiSecret", "")
	viper.SetDefault("bookstack.bookName", "AI Helpdesk Knowledge Base")
	viper.SetDefault("bookstack.chapterName", "Auto-Generated Knowledge")
	viper.SetDefault("bookstack.timeoutSec", 30)

	viper.SetDefault("extraction.conversationDays", 7)
	viper.SetDefault("extraction.ticketDays", 30)

	viper.SetDefault("clustering.epsilon", 0.3)
	viper.SetDefault("clustering.minSamples", 2)
	viper.SetDefault("clustering.maxFeatures", 1000)

	viper.SetDefault("scheduler.interval", 24*time.Hour)
	viper.SetDefault("scheduler.warmupDelay", 60*time.Second)
	viper.SetDefault("scheduler.maxAttempts", 3)

	viper.SetDefault("sqlite.path", "./data/extractor.db")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
