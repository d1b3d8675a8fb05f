package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Sudeep845/Raktsewa-sub000/config"
	"github.com/Sudeep845/Raktsewa-sub000/internal/repository"
	"github.com/Sudeep845/Raktsewa-sub000/internal/service"
	"github.com/Sudeep845/Raktsewa-sub000/internal/session"
	"github.com/Sudeep845/Raktsewa-sub000/pkg/database"
	"github.com/Sudeep845/Raktsewa-sub000/pkg/jwt"
	applogger "github.com/Sudeep845/Raktsewa-sub000/pkg/logger"
)

// env 命令运行所需的配置、日志与数据库连接
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	sqlDB  *sql.DB
}

func openEnv(configPath string) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return &env{cfg: cfg, logger: logger, db: db, sqlDB: sqlDB}, nil
}

func (e *env) close() {
	_ = e.sqlDB.Close()
	_ = e.logger.Sync()
}

// ── migrate ──

func newMigrateCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "数据库迁移",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "应用全部未执行的迁移",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(*configPath)
			if err != nil {
				return err
			}
			defer e.close()
			return database.RunMigrations(e.sqlDB, e.logger)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "回滚迁移",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(*configPath)
			if err != nil {
				return err
			}
			defer e.close()
			return database.RollbackMigrations(e.sqlDB, steps, e.logger)
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "回滚步数")

	version := &cobra.Command{
		Use:   "version",
		Short: "查看当前迁移版本",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(*configPath)
			if err != nil {
				return err
			}
			defer e.close()
			v, dirty, err := database.MigrationVersion(e.sqlDB)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", v, dirty)
			return nil
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

// ── create-admin ──

func newCreateAdminCmd(configPath *string) *cobra.Command {
	var username, email, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "创建初始管理员（邮箱已存在时跳过）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(*configPath)
			if err != nil {
				return err
			}
			defer e.close()

			// 命令行参数优先于配置
			if username == "" {
				username = e.cfg.Admin.Username
			}
			if email == "" {
				email = e.cfg.Admin.Email
			}
			if password == "" {
				password = e.cfg.Admin.Password
			}

			repo := repository.NewRepository(e.db)
			authSvc := service.NewAuthService(repo, jwt.NewManager(&e.cfg.Auth), session.NewMemoryStore(),
				e.cfg.Server.Location(), e.logger)

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			created, err := authSvc.CreateAdmin(ctx, username, email, password)
			if err != nil {
				return fmt.Errorf("创建管理员失败: %w", err)
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "管理员 %s <%s> 已创建\n", username, email)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "邮箱 %s 已存在，跳过\n", email)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "管理员用户名（默认 admin.username）")
	cmd.Flags().StringVar(&email, "email", "", "管理员邮箱（默认 admin.email）")
	cmd.Flags().StringVar(&password, "password", "", "管理员密码（默认 admin.password，至少 8 位）")
	return cmd
}
