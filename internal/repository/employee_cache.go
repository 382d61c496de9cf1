package repository

import (
	"context"
	"time"

	"go.uber.org/zap"

	"staff-payroll/backend/internal/model"
)

const employeeCachePrefix = "employee:"

// EmployeeCache 员工缓存接口，由 pkg/redis.Client 实现
type EmployeeCache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
}

// cachedEmployeeRepo 读穿透缓存：先查缓存，未命中再查库并回填
// 缓存读写失败只记日志，不影响主流程
type cachedEmployeeRepo struct {
	inner  EmployeeRepository
	cache  EmployeeCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedEmployeeRepo 为 EmployeeRepository 增加缓存层
func NewCachedEmployeeRepo(inner EmployeeRepository, cache EmployeeCache, ttl time.Duration, logger *zap.Logger) EmployeeRepository {
	return &cachedEmployeeRepo{inner: inner, cache: cache, ttl: ttl, logger: logger}
}

func (r *cachedEmployeeRepo) GetByUsername(ctx context.Context, username string) (*model.Employee, error) {
	key := employeeCachePrefix + username

	var cached model.Employee
	hit, err := r.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		r.logger.Warn("读取员工缓存失败", zap.String("username", username), zap.Error(err))
	} else if hit {
		return &cached, nil
	}

	emp, err := r.inner.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if err := r.cache.SetJSON(ctx, key, emp, r.ttl); err != nil {
		r.logger.Warn("写入员工缓存失败", zap.String("username", username), zap.Error(err))
	}
	return emp, nil
}
