// Command seed loads members, items and warehouses of one organization
// from a YAML file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/garyjia/erp-requisitions/internal/config"
	"github.com/garyjia/erp-requisitions/internal/container"
	"github.com/garyjia/erp-requisitions/internal/seed"
	"github.com/garyjia/erp-requisitions/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	seedPath := flag.String("file", "configs/seed.example.yaml", "Path to seed file")
	flag.Parse()

	_ = gotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: "stdout",
		Format:     "console",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	fixture, err := seed.Load(*seedPath)
	if err != nil {
		logger.Fatal("Failed to load seed file", zap.Error(err))
	}

	ctx := context.Background()
	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		logger.Fatal("Failed to create container", zap.Error(err))
	}
	if err := c.Start(ctx); err != nil {
		logger.Fatal("Failed to start container", zap.Error(err))
	}

	repos := c.Repositories()
	summary, err := seed.Apply(ctx, fixture, c.DB(), repos.Member, repos.Catalog)
	if err != nil {
		logger.Error("Seeding failed", zap.Error(err))
		_ = c.Close()
		os.Exit(1)
	}

	logger.Info("Seed applied",
		zap.String("organization", fixture.Organization),
		zap.Int("members", summary.Members),
		zap.Int("items", summary.Items),
		zap.Int("warehouses", summary.Warehouses))

	if err := c.Close(); err != nil {
		logger.Error("Failed to close container", zap.Error(err))
	}
}
