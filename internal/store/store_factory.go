package store

import (
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"notistream/internal/config"
	"notistream/internal/repository"
	"notistream/internal/store/memory"
	"notistream/internal/store/mysql"
)

func NewStore(cfg *config.Config, logger *zap.Logger) (repository.NotificationStore, error) {
	if cfg.MySQLDSN == "" {
		return memory.New(logger), nil
	}
	sqlDB, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		logger.Error("mysql open failed", zap.Error(err))
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		logger.Error("mysql ping failed", zap.Error(err))
		return nil, err
	}
	return mysql.New(sqlDB, logger), nil
}
