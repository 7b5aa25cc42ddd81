// Package config carrega a configuração do processo a partir do ambiente,
// com um .env opcional para desenvolvimento local.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config reúne tudo que o ingestor precisa para subir.
type Config struct {
	DatabaseDSN     string
	CheckInterval   time.Duration
	PageWorkers     int
	MaxPageFailures int
	MaxPages        int
	Sources         []string // vazio = todas

	APIAddr string

	TelegramToken  string
	TelegramChatID int64

	KafkaBrokers []string
	KafkaTopic   string
}

// Load lê o .env se existir e monta a configuração com defaults sensatos.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] .env não encontrado, usando só o ambiente")
	}

	cfg := &Config{
		DatabaseDSN:     getEnv("DATABASE_DSN", "catalogo.db"),
		PageWorkers:     getEnvInt("PAGE_WORKERS", 4),
		MaxPageFailures: getEnvInt("MAX_PAGE_FAILURES", 3),
		MaxPages:        getEnvInt("MAX_PAGES", 25),
		APIAddr:         getEnv("API_ADDR", ":8080"),
		TelegramToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "preco-eventos"),
	}

	interval, err := time.ParseDuration(getEnv("CHECK_INTERVAL", "30m"))
	if err != nil {
		return nil, fmt.Errorf("CHECK_INTERVAL inválido: %w", err)
	}
	cfg.CheckInterval = interval

	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		chatID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_CHAT_ID inválido: %w", err)
		}
		cfg.TelegramChatID = chatID
	}

	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		cfg.KafkaBrokers = splitList(raw)
	}
	if raw := os.Getenv("SOURCES"); raw != "" {
		cfg.Sources = splitList(raw)
	}

	return cfg, nil
}

func getEnv(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func getEnvInt(name string, def int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("[config] %s=%q inválido, usando %d", name, raw, def)
		return def
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
