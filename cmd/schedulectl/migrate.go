package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tutorhub/backend/pkg/database"
	applogger "tutorhub/backend/pkg/logger"
)

func newMigrateCmd(load configLoader) *cobra.Command {
	var down int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "执行内嵌的数据库迁移",
		Example: `  schedulectl migrate
  schedulectl migrate --down 1`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			logger, err := applogger.NewLogger(&cfg.Log)
			if err != nil {
				return err
			}
			defer logger.Sync()

			db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			if down > 0 {
				logger.Info("回滚数据库迁移", zap.Int("steps", down))
				return database.RollbackMigrations(sqlDB, down, logger)
			}
			return database.RunMigrations(sqlDB, logger)
		},
	}
	cmd.Flags().IntVar(&down, "down", 0, "回滚的迁移步数（0 表示执行全部 up 迁移）")
	return cmd
}
