package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/victornm/ecoquest/internal/config"
	"github.com/victornm/ecoquest/internal/storage/postgres"
)

type Config struct {
	Postgres struct {
		Addr string
		User string
		Pass string
		Name string
	}
}

func main() {
	steps := flag.Int("steps", 0, "number of migrations to apply, negative rolls back, zero applies all")
	flag.Parse()

	c, err := loadConfig()
	if err != nil {
		log.Fatalf("Load config failed: %v", err)
	}

	p := c.Postgres
	if err := postgres.Migrate(postgres.DSN("pgx5", p.Addr, p.User, p.Pass, p.Name), *steps); err != nil {
		log.Fatalf("Migrate failed: %v", err)
	}
}

func loadConfig() (Config, error) {
	var c Config

	if err := config.LoadDotEnv(".env"); err != nil {
		return c, fmt.Errorf("load .env: %w", err)
	}

	p := os.Getenv("CONFIG_PATH")
	if p == "" {
		return c, fmt.Errorf("CONFIG_PATH not set")
	}

	if err := config.Load(p, &c); err != nil {
		return c, fmt.Errorf("load config: %w", err)
	}

	return c, nil
}
