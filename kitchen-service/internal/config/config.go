package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Name string `yaml:"name"`
		Port int    `yaml:"port"`
	} `yaml:"app"`

	Postgres struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		DBName   string `yaml:"dbname"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"postgres"`

	RabbitMQ struct {
		URL string `yaml:"url"`
	} `yaml:"rabbitmq"`

	MigrationsPath string `yaml:"migrations_path"`
}

func Load(path string) *Config {
	file, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed open config file: %v", err)
	}
	defer file.Close()

	var config Config

	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		log.Fatalf("invalid config file: %v", err)
	}

	if config.App.Port == 0 {
		config.App.Port = 8082
	}
	if config.MigrationsPath == "" {
		config.MigrationsPath = "kitchen-service/migrations"
	}

	return &config
}
