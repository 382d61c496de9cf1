package repository

import (
	"context"

	"gorm.io/gorm"

	"staff-payroll/backend/internal/model"
	pkgerrors "staff-payroll/backend/pkg/errors"
)

// SalaryRepository 薪资单数据访问接口
type SalaryRepository interface {
	Create(ctx context.Context, s *model.Salary) error
	GetByID(ctx context.Context, id uint64) (*model.Salary, error)
	GetByUserAndMonth(ctx context.Context, username, month string) (*model.Salary, error)
	ExistsByUserAndMonth(ctx context.Context, username, month string) (bool, error)
	GetLatestByUser(ctx context.Context, username string) (*model.Salary, error)
	ListByUser(ctx context.Context, username string) ([]model.Salary, error)
	ListByMonth(ctx context.Context, month string) ([]model.Salary, error)
	ListByStatus(ctx context.Context, status string) ([]model.Salary, error)
	// UpdateStatus 仅更新发薪状态、发薪日期，按 version 做乐观锁
	UpdateStatus(ctx context.Context, s *model.Salary) error
}

type salaryRepo struct {
	db *gorm.DB
}

// NewSalaryRepo 创建 SalaryRepository 实例
func NewSalaryRepo(db *gorm.DB) SalaryRepository {
	return &salaryRepo{db: db}
}

func (r *salaryRepo) Create(ctx context.Context, s *model.Salary) error {
	if s.Version == 0 {
		s.Version = 1
	}
	return translateWriteError(r.db.WithContext(ctx).Create(s).Error)
}

func (r *salaryRepo) GetByID(ctx context.Context, id uint64) (*model.Salary, error) {
	var s model.Salary
	err := r.db.WithContext(ctx).
		Where("salary_id = ?", id).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *salaryRepo) GetByUserAndMonth(ctx context.Context, username, month string) (*model.Salary, error) {
	var s model.Salary
	err := r.db.WithContext(ctx).
		Where("username = ? AND salary_month = ?", username, month).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *salaryRepo) ExistsByUserAndMonth(ctx context.Context, username, month string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Salary{}).
		Where("username = ? AND salary_month = ?", username, month).
		Count(&count).Error
	return count > 0, err
}

func (r *salaryRepo) GetLatestByUser(ctx context.Context, username string) (*model.Salary, error) {
	var s model.Salary
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		Order("salary_month DESC").
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *salaryRepo) ListByUser(ctx context.Context, username string) ([]model.Salary, error) {
	var list []model.Salary
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		Order("salary_month DESC").
		Find(&list).Error
	return list, err
}

func (r *salaryRepo) ListByMonth(ctx context.Context, month string) ([]model.Salary, error) {
	var list []model.Salary
	err := r.db.WithContext(ctx).
		Where("salary_month = ?", month).
		Order("username ASC").
		Find(&list).Error
	return list, err
}

func (r *salaryRepo) ListByStatus(ctx context.Context, status string) ([]model.Salary, error) {
	var list []model.Salary
	err := r.db.WithContext(ctx).
		Where("payment_status = ?", status).
		Order("salary_month DESC, username ASC").
		Find(&list).Error
	return list, err
}

func (r *salaryRepo) UpdateStatus(ctx context.Context, s *model.Salary) error {
	oldVersion := s.Version
	result := r.db.WithContext(ctx).
		Model(&model.Salary{}).
		Where("salary_id = ? AND version = ?", s.SalaryID, oldVersion).
		Updates(map[string]interface{}{
			"payment_status": s.PaymentStatus,
			"payment_date":   s.PaymentDate,
			"updated_at":     s.UpdatedAt,
			"version":        oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	s.Version = oldVersion + 1
	return nil
}
