package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 发薪状态
const (
	PaymentStatusPending = "PENDING"
	PaymentStatusPaid    = "PAID"
	PaymentStatusFailed  = "FAILED"
)

// SalaryMonthLayout 薪资月份格式
const SalaryMonthLayout = "2006-01"

// IsValidPaymentStatus 校验发薪状态是否合法
func IsValidPaymentStatus(status string) bool {
	switch status {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed:
		return true
	}
	return false
}

// Salary 薪资单表 — 对应 salaries，(username, salary_month) 唯一
type Salary struct {
	SalaryID           uint64          `gorm:"primaryKey;autoIncrement"                                          json:"salary_id"`
	Username           string          `gorm:"type:varchar(50);not null;uniqueIndex:uq_salaries_username_month"  json:"username"`
	SalaryMonth        string          `gorm:"type:char(7);not null;uniqueIndex:uq_salaries_username_month;index" json:"salary_month"` // YYYY-MM
	BasicSalary        decimal.Decimal `gorm:"type:numeric(12,2);not null"                                       json:"basic_salary"`
	HouseRentAllowance decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"                             json:"house_rent_allowance"`
	TravelAllowance    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"                             json:"travel_allowance"`
	MedicalAllowance   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"                             json:"medical_allowance"`
	Bonus              decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"                             json:"bonus"`
	OvertimeHours      decimal.Decimal `gorm:"type:numeric(8,2);not null;default:0"                              json:"overtime_hours"`
	OvertimeRate       decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"                             json:"overtime_rate"`
	OvertimePay        decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"                             json:"overtime_pay"`
	TaxDeduction       decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"                             json:"tax_deduction"`
	ProvidentFund      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"                             json:"provident_fund"`
	OtherDeductions    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"                             json:"other_deductions"`
	GrossSalary        decimal.Decimal `gorm:"type:numeric(12,2);not null"                                       json:"gross_salary"`
	NetSalary          decimal.Decimal `gorm:"type:numeric(12,2);not null"                                       json:"net_salary"`
	PaymentStatus      string          `gorm:"type:varchar(20);not null;default:'PENDING';index"                 json:"payment_status"` // PENDING | PAID | FAILED
	PaymentDate        *time.Time      `gorm:"type:date"                                                         json:"payment_date,omitempty"`
	BankAccountNumber  string          `gorm:"type:varchar(50);not null;default:''"                              json:"bank_account_number"` // 创建时快照
	Notes              string          `gorm:"type:varchar(500);not null;default:''"                             json:"notes"`
	VersionedModel
}

// TableName 指定表名
func (Salary) TableName() string { return "salaries" }

// ParseSalaryMonth 解析并规范化 YYYY-MM
func ParseSalaryMonth(s string) (string, time.Time, error) {
	t, err := time.Parse(SalaryMonthLayout, s)
	if err != nil {
		return "", time.Time{}, err
	}
	return t.Format(SalaryMonthLayout), t, nil
}
