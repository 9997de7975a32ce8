package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations 应用内嵌迁移中所有未执行的版本。
// 表结构只有 spots/kelas/settings 三张表，仍坚持版本化迁移：
// 容量 CHECK 约束这类数据库层防线必须随代码一起发布。
func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("加载内嵌迁移失败: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("初始化迁移驱动失败: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("构建迁移实例失败: %w", err)
	}

	// dirty 说明上次迁移中途失败，库内结构不可信；
	// 预约正确性依赖约束完整，拒绝带病启动
	if version, dirty, verr := m.Version(); verr == nil && dirty {
		return fmt.Errorf("迁移版本 %d 处于 dirty 状态，需人工修复后再启动", version)
	}

	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info("表结构已是最新，无待执行迁移")
	case err != nil:
		return fmt.Errorf("执行迁移失败: %w", err)
	default:
		version, _, _ := m.Version()
		logger.Info("表结构迁移完成", zap.Uint("version", version))
	}

	return nil
}
