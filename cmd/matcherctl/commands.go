package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"csm-matcher/config"
	"csm-matcher/internal/repository"
	"csm-matcher/internal/service"
	"csm-matcher/internal/solver"
	"csm-matcher/pkg/database"
	"csm-matcher/pkg/jwt"
	applogger "csm-matcher/pkg/logger"
	"csm-matcher/pkg/redis"
)

var (
	migrateCommand = cli.Command{
		Name:  "migrate",
		Usage: "管理数据库迁移",
		Subcommands: cli.Commands{
			{
				Name:   "up",
				Usage:  "执行全部未应用的迁移",
				Action: migrateUp,
			},
			{
				Name:   "down",
				Usage:  "回滚迁移",
				Flags:  []cli.Flag{stepsFlag},
				Action: migrateDown,
			},
			{
				Name:   "version",
				Usage:  "显示当前迁移版本",
				Action: migrateVersion,
			},
		},
	}
	courseCommand = cli.Command{
		Name:  "course",
		Usage: "管理课程匹配器",
		Subcommands: cli.Commands{
			{
				Name:   "create",
				Usage:  "为课程创建匹配器并指定协调员",
				Flags:  []cli.Flag{courseIDFlag, courseNameFlag, coordinatorFlag, createdByFlag},
				Action: createCourse,
			},
		},
	}
	tokenCommand = cli.Command{
		Name:  "token",
		Usage: "开发环境 Token 工具",
		Subcommands: cli.Commands{
			{
				Name:   "issue",
				Usage:  "签发 Token（有效期为 auth.dev_token_ttl）",
				Flags:  []cli.Flag{userIDFlag, emailFlag, roleFlag},
				Action: issueToken,
			},
			{
				Name:   "revoke",
				Usage:  "吊销 Token，写入 Redis 黑名单直至过期",
				Flags:  []cli.Flag{tokenFlag},
				Action: revokeToken,
			},
		},
	}
	closeExpiredCommand = cli.Command{
		Name:   "close-expired",
		Usage:  "立即关闭所有已过截止时间的偏好表单",
		Action: closeExpired,
	}
)

// env 一次命令执行所需的公共依赖
type env struct {
	cfg    *config.Config
	logger *zap.Logger
}

func loadEnv(ctx *cli.Context) (*env, error) {
	cfg, err := config.Load(ctx.String(configFlagName))
	if err != nil {
		return nil, err
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	return &env{cfg: cfg, logger: logger}, nil
}

// withDB 打开数据库连接执行 fn，结束后关闭
func (e *env) withDB(fn func(db *gorm.DB) error) error {
	db, err := database.NewDB(&e.cfg.Database, e.cfg.Log.Level, e.logger)
	if err != nil {
		return fmt.Errorf("数据库连接失败: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	defer sqlDB.Close()
	return fn(db)
}

// ────────────────────── 迁移 ──────────────────────

func migrateUp(ctx *cli.Context) error {
	e, err := loadEnv(ctx)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	return e.withDB(func(db *gorm.DB) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return database.RunMigrations(sqlDB, e.logger)
	})
}

func migrateDown(ctx *cli.Context) error {
	steps := ctx.Int(stepsFlagName)
	if steps <= 0 {
		return fmt.Errorf("--%s 必须大于 0", stepsFlagName)
	}

	e, err := loadEnv(ctx)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	return e.withDB(func(db *gorm.DB) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return database.RollbackMigrations(sqlDB, steps, e.logger)
	})
}

func migrateVersion(ctx *cli.Context) error {
	e, err := loadEnv(ctx)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	return e.withDB(func(db *gorm.DB) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		version, dirty, err := database.MigrationVersion(sqlDB)
		if err != nil {
			return err
		}
		fmt.Printf("version: %d\ndirty: %t\n", version, dirty)
		return nil
	})
}

// ────────────────────── 课程 ──────────────────────

func createCourse(ctx *cli.Context) error {
	e, err := loadEnv(ctx)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	return e.withDB(func(db *gorm.DB) error {
		repo := repository.NewRepository(db)
		svc := service.NewMatcherService(&e.cfg.Matcher, repo, solver.New(&e.cfg.Solver, e.logger), e.logger)

		m, err := svc.Create(ctx.Context,
			ctx.Int64(courseIDFlagName),
			ctx.String(courseNameFlagName),
			ctx.StringSlice(coordinatorFlagName),
			ctx.String(createdByFlagName),
		)
		if err != nil {
			return err
		}
		fmt.Printf("已创建匹配器: course_id=%d name=%q\n", m.CourseID, m.CourseName)
		return nil
	})
}

// ────────────────────── Token ──────────────────────

func issueToken(ctx *cli.Context) error {
	e, err := loadEnv(ctx)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	role := ctx.String(roleFlagName)
	if role != jwt.RoleAdmin && role != jwt.RoleMember {
		return fmt.Errorf("无效的角色 %q", role)
	}

	token, err := jwt.NewManager(&e.cfg.Auth).GenerateToken(ctx.String(userIDFlagName), ctx.String(emailFlagName), role)
	if err != nil {
		return fmt.Errorf("签发 Token 失败: %w", err)
	}
	fmt.Println(token)
	return nil
}

func revokeToken(ctx *cli.Context) error {
	e, err := loadEnv(ctx)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	claims, err := jwt.NewManager(&e.cfg.Auth).ParseToken(ctx.String(tokenFlagName))
	if err != nil {
		return fmt.Errorf("Token 无法吊销: %w", err)
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return errors.New("Token 缺少 jti 或过期时间")
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		fmt.Println("Token 已过期，无需吊销")
		return nil
	}

	rdb, err := redis.NewClient(&e.cfg.Redis, e.logger)
	if err != nil {
		return fmt.Errorf("Redis 连接失败: %w", err)
	}
	defer rdb.Close()

	if err := rdb.BlacklistToken(ctx.Context, claims.ID, ttl); err != nil {
		return fmt.Errorf("写入黑名单失败: %w", err)
	}
	fmt.Printf("已吊销 jti=%s，%s 后自动清除\n", claims.ID, ttl.Round(time.Second))
	return nil
}

// ────────────────────── 表单 ──────────────────────

func closeExpired(ctx *cli.Context) error {
	e, err := loadEnv(ctx)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	return e.withDB(func(db *gorm.DB) error {
		repo := repository.NewRepository(db)
		svc := service.NewMatcherService(&e.cfg.Matcher, repo, solver.New(&e.cfg.Solver, e.logger), e.logger)

		runCtx, cancel := context.WithTimeout(ctx.Context, 30*time.Second)
		defer cancel()

		n, err := svc.CloseExpired(runCtx, time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("已关闭 %d 个表单\n", n)
		return nil
	})
}
