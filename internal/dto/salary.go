package dto

import "github.com/shopspring/decimal"

// ── 薪资模块 DTO ──

// CalculateSalaryRequest 计算薪资请求，所有金额字段均为可选覆盖值
// 金额既可传数字也可传字符串（"45000.00"），由 decimal 解析
type CalculateSalaryRequest struct {
	Username           string           `json:"username"`
	SalaryMonth        string           `json:"salary_month"` // YYYY-MM
	BasicSalary        *decimal.Decimal `json:"basic_salary"`
	HouseRentAllowance *decimal.Decimal `json:"house_rent_allowance"`
	TravelAllowance    *decimal.Decimal `json:"travel_allowance"`
	MedicalAllowance   *decimal.Decimal `json:"medical_allowance"`
	Bonus              *decimal.Decimal `json:"bonus"`
	OvertimeHours      *decimal.Decimal `json:"overtime_hours"`
	OvertimeRate       *decimal.Decimal `json:"overtime_rate"`
	TaxDeduction       *decimal.Decimal `json:"tax_deduction"`
	ProvidentFund      *decimal.Decimal `json:"provident_fund"`
	OtherDeductions    *decimal.Decimal `json:"other_deductions"`
	Notes              string           `json:"notes" binding:"omitempty,max=500"`
}

// UpdateSalaryStatusRequest 更新发薪状态请求
type UpdateSalaryStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SalaryResponse 薪资单响应（含员工姓名、部门）
type SalaryResponse struct {
	ID                 uint64 `json:"id"`
	Username           string `json:"username"`
	EmployeeName       string `json:"employee_name"`
	Department         string `json:"department"`
	SalaryMonth        string `json:"salary_month"`
	BasicSalary        string `json:"basic_salary"`
	HouseRentAllowance string `json:"house_rent_allowance"`
	TravelAllowance    string `json:"travel_allowance"`
	MedicalAllowance   string `json:"medical_allowance"`
	Bonus              string `json:"bonus"`
	OvertimeHours      string `json:"overtime_hours"`
	OvertimeRate       string `json:"overtime_rate"`
	OvertimePay        string `json:"overtime_pay"`
	TaxDeduction       string `json:"tax_deduction"`
	ProvidentFund      string `json:"provident_fund"`
	OtherDeductions    string `json:"other_deductions"`
	GrossSalary        string `json:"gross_salary"`
	NetSalary          string `json:"net_salary"`
	PaymentStatus      string `json:"payment_status"`
	PaymentDate        string `json:"payment_date,omitempty"`
	BankAccountNumber  string `json:"bank_account_number"`
	Notes              string `json:"notes,omitempty"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}

// MonthlySalarySummaryResponse 月度薪资汇总
type MonthlySalarySummaryResponse struct {
	Month        string `json:"month"`
	Headcount    int    `json:"headcount"`
	TotalGross   string `json:"total_gross"`
	TotalNet     string `json:"total_net"`
	AverageNet   string `json:"average_net"`
	PaidCount    int    `json:"paid_count"`
	PendingCount int    `json:"pending_count"`
	FailedCount  int    `json:"failed_count"`
	TotalPaidNet string `json:"total_paid_net"`
}

// ── 导出模块 DTO ──

// ExportSalariesRequest 薪资导出参数
type ExportSalariesRequest struct {
	Month string `form:"month" binding:"required"`
}

// ExportAttendanceRequest 考勤导出参数
type ExportAttendanceRequest struct {
	Username string `form:"username" binding:"required"`
	Year     int    `form:"year"     binding:"required,min=1970,max=9999"`
	Month    int    `form:"month"    binding:"required,min=1,max=12"`
}
