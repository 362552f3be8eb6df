// Command fueltrack-maint runs database maintenance tasks.
//
//	fueltrack-maint check     verify database and redis connectivity
//	fueltrack-maint migrate   create or update tables and seed default policies
//	fueltrack-maint purge     delete expired sessions and reset tokens
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/you/fueltrack/internal/app"
	"github.com/you/fueltrack/internal/config"
	"github.com/you/fueltrack/internal/infrastructure/database"
)

func main() {
	configPath := flag.String("config", "", "path to config.yml (defaults to CONFIG_PATH or config/config.yml)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-config path] check|migrate|purge\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	app.ConfigureLogging(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch flag.Arg(0) {
	case "check":
		err = check(ctx, cfg)
	case "migrate":
		err = migrate(cfg)
	case "purge":
		err = purge(ctx, cfg)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", flag.Arg(0), err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func check(ctx context.Context, cfg *config.Config) error {
	db, err := database.Open(cfg.DSN, cfg.DBLogLevel)
	if err != nil {
		return err
	}
	defer database.Close(db)
	if err := database.Ping(db); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	log.Info("database connection ok")

	if cfg.SessionStore == "redis" || cfg.RateLimitBackend == "redis" {
		rc := database.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer rc.Close()
		if err := rc.Ping(ctx); err != nil {
			return err
		}
		log.Info("redis connection ok")
	}
	return nil
}

// migrate builds the container, which migrates tables and seeds policies
func migrate(cfg *config.Config) error {
	c, err := app.NewContainer(cfg)
	if err != nil {
		return err
	}
	defer c.Close()
	log.Info("migration complete")
	return nil
}

func purge(ctx context.Context, cfg *config.Config) error {
	c, err := app.NewContainer(cfg)
	if err != nil {
		return err
	}
	defer c.Close()
	sessions, tokens, err := c.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"sessions": sessions, "reset_tokens": tokens}).Info("purge complete")
	return nil
}
