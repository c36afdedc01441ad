package main

import (
	"fmt"

	"github.com/reelshelf/reelshelf/pkg/reelshelf/auth"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/config"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/database"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/logging"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// commandContext lazily loads what every subcommand needs
type commandContext struct {
	configFlag *string
	cfg        *config.Config
	db         *gorm.DB
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(*c.configFlag)
	if err != nil {
		return nil, err
	}
	if _, err := logging.New(cfg.App.LogLevel, cfg.App.Env); err != nil {
		return nil, err
	}
	auth.Configure(cfg.JWT.Secret, cfg.JWT.TTL)
	c.cfg = cfg
	return cfg, nil
}

// ensureDB connects and migrates the configured database
func (c *commandContext) ensureDB() (*gorm.DB, error) {
	if c.db != nil {
		return c.db, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := database.Connect(cfg.Database.Driver, cfg.Database.DSN); err != nil {
		return nil, fmt.Errorf("failed to connect to database, %w", err)
	}
	db := database.GetDB()
	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations, %w", err)
	}
	zap.L().Debug("Database migrations completed", zap.String("driver", cfg.Database.Driver))
	c.db = db
	return db, nil
}

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := &commandContext{configFlag: &configFlag}

	serve := newServeCommand(ctx)

	rootCmd := &cobra.Command{
		Use:           "reelshelf-server",
		Short:         "Reelshelf video bookmarking API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: serve.RunE,
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(serve)
	rootCmd.AddCommand(newNormalizeTagsCommand(ctx))
	rootCmd.AddCommand(newCheckLikesCommand(ctx))

	return rootCmd
}
