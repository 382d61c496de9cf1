package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"staff-payroll/backend/internal/dto"
	"staff-payroll/backend/internal/model"
	"staff-payroll/backend/internal/repository"
	"staff-payroll/backend/pkg/clock"
	pkgerrors "staff-payroll/backend/pkg/errors"
	"staff-payroll/backend/pkg/numeric"
)

// ── 薪资模块业务错误 ──

var (
	ErrSalaryNotFound  = errors.New("薪资单不存在")
	ErrDuplicateSalary = errors.New("该员工本月薪资已计算")
)

// SalaryService 薪资业务接口
type SalaryService interface {
	// Calculate 计算并保存薪资单，同一员工同一月份只能成功一次
	Calculate(ctx context.Context, req *dto.CalculateSalaryRequest) (*dto.SalaryResponse, error)
	Get(ctx context.Context, id uint64) (*dto.SalaryResponse, error)
	// GetByUserAndMonth 无记录时返回 nil, nil
	GetByUserAndMonth(ctx context.Context, username, month string) (*dto.SalaryResponse, error)
	GetAllByMonth(ctx context.Context, month string) ([]dto.SalaryResponse, error)
	GetHistory(ctx context.Context, username string) ([]dto.SalaryResponse, error)
	// GetLatest 无记录时返回 nil, nil
	GetLatest(ctx context.Context, username string) (*dto.SalaryResponse, error)
	// UpdateStatus 变更为 PAID 时写入发薪日期，其他状态保留原发薪日期
	UpdateStatus(ctx context.Context, id uint64, status string) (*dto.SalaryResponse, error)
	GetMonthlySummary(ctx context.Context, month string) (*dto.MonthlySalarySummaryResponse, error)
	ListByStatus(ctx context.Context, status string) ([]dto.SalaryResponse, error)
}

type salaryService struct {
	repo   *repository.Repository
	policy *SalaryPolicy
	clock  clock.Clock
	logger *zap.Logger
}

// NewSalaryService 创建 SalaryService 实例
func NewSalaryService(repo *repository.Repository, policy *SalaryPolicy, clk clock.Clock, logger *zap.Logger) SalaryService {
	return &salaryService{repo: repo, policy: policy, clock: clk, logger: logger}
}

// ────────────────────── Calculate ──────────────────────

func (s *salaryService) Calculate(ctx context.Context, req *dto.CalculateSalaryRequest) (*dto.SalaryResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, newValidationError("username", "不能为空")
	}
	month, err := parseMonth(req.SalaryMonth)
	if err != nil {
		return nil, err
	}
	if err := validateOverrides(req); err != nil {
		return nil, err
	}

	exists, err := s.repo.Salary.ExistsByUserAndMonth(ctx, username, month)
	if err != nil {
		s.logger.Error("查询薪资单失败", zap.String("username", username), zap.String("month", month), zap.Error(err))
		return nil, newStorageError("check salary exists", err)
	}
	if exists {
		return nil, ErrDuplicateSalary
	}

	// 银行账号在创建时快照，绕过员工缓存直接读目录
	emp, err := s.repo.EmployeeDirectory().GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmployeeNotFound
		}
		s.logger.Error("查询员工失败", zap.String("username", username), zap.Error(err))
		return nil, newStorageError("get employee", err)
	}

	salary := s.policy.Compute(req, emp.Designation)
	salary.Username = username
	salary.SalaryMonth = month
	salary.PaymentStatus = model.PaymentStatusPending
	salary.BankAccountNumber = emp.BankAccountNumber
	salary.Notes = req.Notes
	now := s.clock.Now()
	salary.CreatedAt = now
	salary.UpdatedAt = now

	if err := s.repo.Salary.Create(ctx, &salary); err != nil {
		// 并发计算同一员工同月薪资时，落后的一方撞上唯一约束
		if errors.Is(err, pkgerrors.ErrDuplicateKey) {
			return nil, ErrDuplicateSalary
		}
		s.logger.Error("保存薪资单失败", zap.String("username", username), zap.String("month", month), zap.Error(err))
		return nil, newStorageError("create salary", err)
	}

	s.logger.Info("薪资计算完成",
		zap.String("username", username),
		zap.String("month", month),
		zap.String("gross", salary.GrossSalary.StringFixed(2)),
		zap.String("net", salary.NetSalary.StringFixed(2)),
	)
	return toSalaryResponse(&salary, emp), nil
}

// ────────────────────── Reads ──────────────────────

func (s *salaryService) Get(ctx context.Context, id uint64) (*dto.SalaryResponse, error) {
	salary, err := s.repo.Salary.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSalaryNotFound
		}
		s.logger.Error("查询薪资单失败", zap.Uint64("id", id), zap.Error(err))
		return nil, newStorageError("get salary", err)
	}
	return toSalaryResponse(salary, s.resolveEmployee(ctx, salary.Username)), nil
}

func (s *salaryService) GetByUserAndMonth(ctx context.Context, username, month string) (*dto.SalaryResponse, error) {
	m, err := parseMonth(month)
	if err != nil {
		return nil, err
	}

	salary, err := s.repo.Salary.GetByUserAndMonth(ctx, username, m)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		s.logger.Error("查询薪资单失败", zap.String("username", username), zap.String("month", m), zap.Error(err))
		return nil, newStorageError("get salary by month", err)
	}
	return toSalaryResponse(salary, s.resolveEmployee(ctx, username)), nil
}

// GetAllByMonth 某条记录的员工无法解析时只对该条使用占位值
func (s *salaryService) GetAllByMonth(ctx context.Context, month string) ([]dto.SalaryResponse, error) {
	m, err := parseMonth(month)
	if err != nil {
		return nil, err
	}

	list, err := s.repo.Salary.ListByMonth(ctx, m)
	if err != nil {
		s.logger.Error("查询月度薪资失败", zap.String("month", m), zap.Error(err))
		return nil, newStorageError("list salaries by month", err)
	}
	return s.toResponses(ctx, list), nil
}

func (s *salaryService) GetHistory(ctx context.Context, username string) ([]dto.SalaryResponse, error) {
	if strings.TrimSpace(username) == "" {
		return nil, newValidationError("username", "不能为空")
	}

	list, err := s.repo.Salary.ListByUser(ctx, username)
	if err != nil {
		s.logger.Error("查询薪资历史失败", zap.String("username", username), zap.Error(err))
		return nil, newStorageError("list salaries", err)
	}
	return s.toResponses(ctx, list), nil
}

func (s *salaryService) GetLatest(ctx context.Context, username string) (*dto.SalaryResponse, error) {
	if strings.TrimSpace(username) == "" {
		return nil, newValidationError("username", "不能为空")
	}

	salary, err := s.repo.Salary.GetLatestByUser(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		s.logger.Error("查询最新薪资单失败", zap.String("username", username), zap.Error(err))
		return nil, newStorageError("get latest salary", err)
	}
	return toSalaryResponse(salary, s.resolveEmployee(ctx, username)), nil
}

func (s *salaryService) ListByStatus(ctx context.Context, status string) ([]dto.SalaryResponse, error) {
	if !model.IsValidPaymentStatus(status) {
		return nil, newValidationError("status", "必须为 PENDING、PAID 或 FAILED")
	}

	list, err := s.repo.Salary.ListByStatus(ctx, status)
	if err != nil {
		s.logger.Error("按状态查询薪资失败", zap.String("status", status), zap.Error(err))
		return nil, newStorageError("list salaries by status", err)
	}
	return s.toResponses(ctx, list), nil
}

// ────────────────────── UpdateStatus ──────────────────────

func (s *salaryService) UpdateStatus(ctx context.Context, id uint64, status string) (*dto.SalaryResponse, error) {
	status = strings.TrimSpace(status)
	if !model.IsValidPaymentStatus(status) {
		return nil, newValidationError("status", "必须为 PENDING、PAID 或 FAILED")
	}

	salary, err := s.repo.Salary.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSalaryNotFound
		}
		s.logger.Error("查询薪资单失败", zap.Uint64("id", id), zap.Error(err))
		return nil, newStorageError("get salary", err)
	}

	now := s.clock.Now()
	previous := salary.PaymentStatus
	salary.PaymentStatus = status
	if status == model.PaymentStatusPaid {
		paidOn := clock.DateOf(now)
		salary.PaymentDate = &paidOn
	}
	salary.UpdatedAt = now

	if err := s.repo.Salary.UpdateStatus(ctx, salary); err != nil {
		s.logger.Error("更新发薪状态失败", zap.Uint64("id", id), zap.String("status", status), zap.Error(err))
		return nil, newStorageError("update salary status", err)
	}

	s.logger.Info("发薪状态变更",
		zap.Uint64("id", id),
		zap.String("from", previous),
		zap.String("to", status),
	)
	return toSalaryResponse(salary, s.resolveEmployee(ctx, salary.Username)), nil
}

// ────────────────────── GetMonthlySummary ──────────────────────

func (s *salaryService) GetMonthlySummary(ctx context.Context, month string) (*dto.MonthlySalarySummaryResponse, error) {
	m, err := parseMonth(month)
	if err != nil {
		return nil, err
	}

	list, err := s.repo.Salary.ListByMonth(ctx, m)
	if err != nil {
		s.logger.Error("查询月度薪资失败", zap.String("month", m), zap.Error(err))
		return nil, newStorageError("list salaries by month", err)
	}

	summary := &dto.MonthlySalarySummaryResponse{Month: m, Headcount: len(list)}
	totalGross, totalNet, totalPaidNet := decimal.Zero, decimal.Zero, decimal.Zero
	for i := range list {
		totalGross = totalGross.Add(list[i].GrossSalary)
		totalNet = totalNet.Add(list[i].NetSalary)
		switch list[i].PaymentStatus {
		case model.PaymentStatusPaid:
			summary.PaidCount++
			totalPaidNet = totalPaidNet.Add(list[i].NetSalary)
		case model.PaymentStatusPending:
			summary.PendingCount++
		case model.PaymentStatusFailed:
			summary.FailedCount++
		}
	}

	averageNet := decimal.Zero
	if len(list) > 0 {
		averageNet = totalNet.DivRound(decimal.NewFromInt(int64(len(list))), numeric.Scale)
	}

	summary.TotalGross = dto.FormatAmount(numeric.Round2(totalGross))
	summary.TotalNet = dto.FormatAmount(numeric.Round2(totalNet))
	summary.AverageNet = dto.FormatAmount(averageNet)
	summary.TotalPaidNet = dto.FormatAmount(numeric.Round2(totalPaidNet))
	return summary, nil
}

// ── 辅助函数 ──

// parseMonth 校验并规范化 YYYY-MM
func parseMonth(month string) (string, error) {
	if strings.TrimSpace(month) == "" {
		return "", newValidationError("salary_month", "不能为空")
	}
	m, _, err := model.ParseSalaryMonth(strings.TrimSpace(month))
	if err != nil {
		return "", newValidationError("salary_month", "格式应为 YYYY-MM")
	}
	return m, nil
}

// resolveEmployee 读路径上的员工信息补全，查不到或出错时返回 nil（由响应转换填占位值）
func (s *salaryService) resolveEmployee(ctx context.Context, username string) *model.Employee {
	emp, err := s.repo.Employee.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("查询员工信息失败，使用占位值", zap.String("username", username), zap.Error(err))
		}
		return nil
	}
	return emp
}

func (s *salaryService) toResponses(ctx context.Context, list []model.Salary) []dto.SalaryResponse {
	employees := make(map[string]*model.Employee)
	result := make([]dto.SalaryResponse, 0, len(list))
	for i := range list {
		username := list[i].Username
		emp, ok := employees[username]
		if !ok {
			emp = s.resolveEmployee(ctx, username)
			employees[username] = emp
		}
		result = append(result, *toSalaryResponse(&list[i], emp))
	}
	return result
}

func toSalaryResponse(s *model.Salary, emp *model.Employee) *dto.SalaryResponse {
	name, department := dto.PlaceholderName, dto.PlaceholderName
	if emp != nil {
		name, department = emp.Name, emp.Department
	}
	return &dto.SalaryResponse{
		ID:                 s.SalaryID,
		Username:           s.Username,
		EmployeeName:       name,
		Department:         department,
		SalaryMonth:        s.SalaryMonth,
		BasicSalary:        dto.FormatAmount(s.BasicSalary),
		HouseRentAllowance: dto.FormatAmount(s.HouseRentAllowance),
		TravelAllowance:    dto.FormatAmount(s.TravelAllowance),
		MedicalAllowance:   dto.FormatAmount(s.MedicalAllowance),
		Bonus:              dto.FormatAmount(s.Bonus),
		OvertimeHours:      dto.FormatAmount(s.OvertimeHours),
		OvertimeRate:       dto.FormatAmount(s.OvertimeRate),
		OvertimePay:        dto.FormatAmount(s.OvertimePay),
		TaxDeduction:       dto.FormatAmount(s.TaxDeduction),
		ProvidentFund:      dto.FormatAmount(s.ProvidentFund),
		OtherDeductions:    dto.FormatAmount(s.OtherDeductions),
		GrossSalary:        dto.FormatAmount(s.GrossSalary),
		NetSalary:          dto.FormatAmount(s.NetSalary),
		PaymentStatus:      s.PaymentStatus,
		PaymentDate:        dto.FormatDatePtr(s.PaymentDate),
		BankAccountNumber:  s.BankAccountNumber,
		Notes:              s.Notes,
		CreatedAt:          s.CreatedAt.Format(dto.TimestampLayout),
		UpdatedAt:          s.UpdatedAt.Format(dto.TimestampLayout),
	}
}
