package repository

import (
	"context"

	"gorm.io/gorm"

	"staff-payroll/backend/internal/model"
)

// EmployeeRepository 员工数据访问接口（只读）
type EmployeeRepository interface {
	GetByUsername(ctx context.Context, username string) (*model.Employee, error)
}

// employeeRepo EmployeeRepository 的 GORM 实现
type employeeRepo struct {
	db *gorm.DB
}

// NewEmployeeRepo 创建 EmployeeRepository 实例
func NewEmployeeRepo(db *gorm.DB) EmployeeRepository {
	return &employeeRepo{db: db}
}

func (r *employeeRepo) GetByUsername(ctx context.Context, username string) (*model.Employee, error) {
	var emp model.Employee
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		First(&emp).Error
	if err != nil {
		return nil, err
	}
	return &emp, nil
}
