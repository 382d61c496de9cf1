package repository

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Employee   EmployeeRepository // 读路径使用，可能带缓存
	Attendance AttendanceRepository
	Salary     SalaryRepository

	// employeeSource 挂载缓存前的员工仓储
	employeeSource EmployeeRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Employee:   NewEmployeeRepo(db),
		Attendance: NewAttendanceRepo(db),
		Salary:     NewSalaryRepo(db),
	}
}

// WithEmployeeCache 为员工读路径挂载缓存；cache 为 nil 时原样返回。
// EmployeeDirectory 不受影响，始终直连员工目录。
func (r *Repository) WithEmployeeCache(cache EmployeeCache, ttl time.Duration, logger *zap.Logger) *Repository {
	if cache == nil || ttl <= 0 {
		return r
	}
	if r.employeeSource == nil {
		r.employeeSource = r.Employee
	}
	r.Employee = NewCachedEmployeeRepo(r.employeeSource, cache, ttl, logger)
	return r
}

// EmployeeDirectory 返回不经缓存的员工仓储。
// 薪资单快照银行账号等写路径必须读权威数据。
func (r *Repository) EmployeeDirectory() EmployeeRepository {
	if r.employeeSource != nil {
		return r.employeeSource
	}
	return r.Employee
}
