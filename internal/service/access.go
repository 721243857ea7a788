package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"csm-matcher/internal/model"
	"csm-matcher/internal/repository"
	"csm-matcher/pkg/jwt"
)

// ── 通用业务错误 ──

var (
	ErrMatcherNotFound = errors.New("该课程没有匹配器")
	ErrMatcherInactive = errors.New("匹配结果已提交，匹配器不可再修改")
	ErrNotCoordinator  = errors.New("仅课程协调员可执行此操作")
	ErrNotMentor       = errors.New("不在该课程的导师名单中")
)

// Caller 已通过 JWT 校验的调用者
type Caller struct {
	UserID string
	Email  string
	Role   string
}

// IsAdmin 管理员视同所有课程的协调员
func (c Caller) IsAdmin() bool {
	return c.Role == jwt.RoleAdmin
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// access 各业务服务共用的课程权限检查
type access struct {
	repo   *repository.Repository
	logger *zap.Logger
}

func (a *access) loadMatcher(ctx context.Context, courseID int64) (*model.Matcher, error) {
	m, err := a.repo.Matcher.GetByCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMatcherNotFound
		}
		a.logger.Error("查询匹配器失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, err
	}
	return m, nil
}

func (a *access) isCoordinator(ctx context.Context, courseID int64, caller Caller) (bool, error) {
	if caller.IsAdmin() {
		return true, nil
	}
	ok, err := a.repo.Matcher.IsCoordinator(ctx, courseID, normalizeEmail(caller.Email))
	if err != nil {
		a.logger.Error("查询协调员失败", zap.Int64("course_id", courseID), zap.Error(err))
		return false, err
	}
	return ok, nil
}

func (a *access) findMentor(ctx context.Context, courseID int64, caller Caller) (*model.MatcherMentor, error) {
	mentor, err := a.repo.Mentor.GetByEmail(ctx, courseID, normalizeEmail(caller.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		a.logger.Error("查询导师失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, err
	}
	return mentor, nil
}

// requireCoordinator 课程存在且调用者为协调员
func (a *access) requireCoordinator(ctx context.Context, courseID int64, caller Caller) (*model.Matcher, error) {
	m, err := a.loadMatcher(ctx, courseID)
	if err != nil {
		return nil, err
	}
	ok, err := a.isCoordinator(ctx, courseID, caller)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotCoordinator
	}
	return m, nil
}

// requireEditable 协调员且匹配器尚未提交
func (a *access) requireEditable(ctx context.Context, courseID int64, caller Caller) (*model.Matcher, error) {
	m, err := a.requireCoordinator(ctx, courseID, caller)
	if err != nil {
		return nil, err
	}
	if !m.Active {
		return nil, ErrMatcherInactive
	}
	return m, nil
}

// requireMentor 课程存在且调用者在导师名单中
func (a *access) requireMentor(ctx context.Context, courseID int64, caller Caller) (*model.Matcher, *model.MatcherMentor, error) {
	m, err := a.loadMatcher(ctx, courseID)
	if err != nil {
		return nil, nil, err
	}
	mentor, err := a.findMentor(ctx, courseID, caller)
	if err != nil {
		return nil, nil, err
	}
	if mentor == nil {
		return nil, nil, ErrNotMentor
	}
	return m, mentor, nil
}

// requireMember 协调员或导师均可
func (a *access) requireMember(ctx context.Context, courseID int64, caller Caller) (*model.Matcher, error) {
	m, err := a.loadMatcher(ctx, courseID)
	if err != nil {
		return nil, err
	}
	ok, err := a.isCoordinator(ctx, courseID, caller)
	if err != nil {
		return nil, err
	}
	if ok {
		return m, nil
	}
	mentor, err := a.findMentor(ctx, courseID, caller)
	if err != nil {
		return nil, err
	}
	if mentor == nil {
		return nil, ErrNotMentor
	}
	return m, nil
}

// inTx 在事务内执行 fn；单元测试未绑定数据库时 tx 为 nil，直接使用原 Repository
func (a *access) inTx(ctx context.Context, fn func(txRepo *repository.Repository) error) error {
	tx, err := a.repo.BeginTx(ctx)
	if err != nil {
		a.logger.Error("开启事务失败", zap.Error(err))
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	if err := fn(a.repo.WithTx(tx)); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			a.logger.Error("提交事务失败", zap.Error(err))
			return err
		}
	}
	return nil
}
