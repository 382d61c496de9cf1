package service

import (
	"go.uber.org/zap"

	"staff-payroll/backend/config"
	"staff-payroll/backend/internal/repository"
	"staff-payroll/backend/pkg/clock"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Attendance AttendanceService
	Salary     SalaryService
	Export     ExportService
}

// NewService 创建 Service 聚合；薪资配置非法时返回错误
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	clk clock.Clock,
	logger *zap.Logger,
) (*Service, error) {
	policy, err := NewSalaryPolicy(&cfg.Payroll)
	if err != nil {
		return nil, err
	}

	return &Service{
		Attendance: NewAttendanceService(repo, clk, cfg.Attendance.MaxUpsertRetries, logger),
		Salary:     NewSalaryService(repo, policy, clk, logger),
		Export:     NewExportService(repo, clk, logger),
	}, nil
}
