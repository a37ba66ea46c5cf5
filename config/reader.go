package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// LikeCountTTL bounds how long a cached like count may be served
	LikeCountTTL time.Duration `yaml:"like_count_ttl"`
}

type EventsConfig struct {
	// Driver selects the activity event sink: "", "rabbitmq" or "kafka"
	Driver       string   `yaml:"driver"`
	RabbitMQURL  string   `yaml:"rabbitmq_url"`
	Exchange     string   `yaml:"exchange"`
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`
}

type ConfigSchema struct {
	Databases struct {
		Master   DBConfig   `yaml:"master"`
		Replicas []DBConfig `yaml:"replicas"`
	} `yaml:"db"`
	Redis   RedisConfig  `yaml:"redis"`
	Events  EventsConfig `yaml:"events"`
	Backend struct {
		Host           string        `yaml:"host"`
		Port           int           `yaml:"port"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
	} `yaml:"backend"`
	Auth struct {
		JWTSecret           string `yaml:"jwt_secret"`
		AllowHeaderIdentity bool   `yaml:"allow_header_identity"`
		ProvisioningToken   string `yaml:"provisioning_token"`
	} `yaml:"auth"`
	Feed struct {
		PageSize int `yaml:"page_size"`
	} `yaml:"feed"`
	Logs struct {
		Level string `yaml:"level"`
	} `yaml:"logs"`
}

var AppConfig *ConfigSchema

// LoadConfig читает YAML и заполняет AppConfig, подставляя значения по умолчанию
func LoadConfig(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	conf, err := Parse(data)
	if err != nil {
		return err
	}
	AppConfig = conf
	return nil
}

func Parse(data []byte) (*ConfigSchema, error) {
	var conf ConfigSchema
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	conf.applyDefaults()
	return &conf, nil
}

func (c *ConfigSchema) applyDefaults() {
	if c.Databases.Master.Port == 0 {
		c.Databases.Master.Port = 5432
	}
	for i := range c.Databases.Replicas {
		if c.Databases.Replicas[i].Port == 0 {
			c.Databases.Replicas[i].Port = 5432
		}
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.LikeCountTTL <= 0 {
		c.Redis.LikeCountTTL = 30 * time.Second
	}
	if c.Events.Exchange == "" {
		c.Events.Exchange = "feed_activity"
	}
	if c.Events.KafkaTopic == "" {
		c.Events.KafkaTopic = "feed-activity"
	}
	if c.Backend.Port == 0 {
		c.Backend.Port = 8080
	}
	if c.Backend.RequestTimeout <= 0 {
		c.Backend.RequestTimeout = 5 * time.Second
	}
	if c.Feed.PageSize <= 0 {
		c.Feed.PageSize = 10
	}
	if c.Logs.Level == "" {
		c.Logs.Level = "info"
	}
}

// Addr returns the listen address of the HTTP server
func (c *ConfigSchema) Addr() string {
	return fmt.Sprintf("%s:%d", c.Backend.Host, c.Backend.Port)
}

// DebugEnabled reports whether DEBUG log lines should be written
func DebugEnabled() bool {
	return AppConfig != nil && AppConfig.Logs.Level == "debug"
}
