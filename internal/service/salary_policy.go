package service

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"staff-payroll/backend/config"
	"staff-payroll/backend/internal/dto"
	"staff-payroll/backend/internal/model"
	"staff-payroll/backend/pkg/numeric"
)

var monthsPerYear = decimal.NewFromInt(12)

// SalaryPolicy 薪资计算策略：职位基本工资表与各项津贴、扣款比例
// 由 config.PayrollConfig 解析而来，计算过程无副作用
type SalaryPolicy struct {
	designations       map[string]decimal.Decimal
	defaultBasicSalary decimal.Decimal
	hraRate            decimal.Decimal
	travelAllowance    decimal.Decimal
	medicalAllowance   decimal.Decimal
	overtimeRate       decimal.Decimal
	pfRate             decimal.Decimal
	taxAnnualThreshold decimal.Decimal
	taxRate            decimal.Decimal
}

// NewSalaryPolicy 解析薪资配置，任一金额或比例非法时返回错误
func NewSalaryPolicy(cfg *config.PayrollConfig) (*SalaryPolicy, error) {
	p := &SalaryPolicy{designations: make(map[string]decimal.Decimal, len(cfg.DesignationSalaries))}

	for name, raw := range cfg.DesignationSalaries {
		amount, err := parseAmount("payroll.designation_salaries."+name, raw)
		if err != nil {
			return nil, err
		}
		p.designations[normalizeDesignation(name)] = amount
	}

	fields := []struct {
		key string
		raw string
		dst *decimal.Decimal
	}{
		{"payroll.default_basic_salary", cfg.DefaultBasicSalary, &p.defaultBasicSalary},
		{"payroll.hra_rate", cfg.HRARate, &p.hraRate},
		{"payroll.travel_allowance", cfg.TravelAllowance, &p.travelAllowance},
		{"payroll.medical_allowance", cfg.MedicalAllowance, &p.medicalAllowance},
		{"payroll.overtime_rate", cfg.OvertimeRate, &p.overtimeRate},
		{"payroll.pf_rate", cfg.PFRate, &p.pfRate},
		{"payroll.tax_annual_threshold", cfg.TaxAnnualThreshold, &p.taxAnnualThreshold},
		{"payroll.tax_rate", cfg.TaxRate, &p.taxRate},
	}
	for _, f := range fields {
		v, err := parseAmount(f.key, f.raw)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}

	return p, nil
}

func parseAmount(key, raw string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("薪资配置 %s 无效: %w", key, err)
	}
	if v.IsNegative() {
		return decimal.Zero, fmt.Errorf("薪资配置 %s 不能为负数", key)
	}
	return v, nil
}

func normalizeDesignation(designation string) string {
	return strings.ToLower(strings.TrimSpace(designation))
}

// BasicSalaryFor 按职位查基本工资，未配置的职位取默认值
func (p *SalaryPolicy) BasicSalaryFor(designation string) decimal.Decimal {
	if amount, ok := p.designations[normalizeDesignation(designation)]; ok {
		return numeric.Round2(amount)
	}
	return numeric.Round2(p.defaultBasicSalary)
}

// MonthlyTax 月应纳税额：月薪 ×12 超过年度起征额的部分按税率计，再摊回 12 个月
func (p *SalaryPolicy) MonthlyTax(gross decimal.Decimal) decimal.Decimal {
	annual := gross.Mul(monthsPerYear)
	if !annual.GreaterThan(p.taxAnnualThreshold) {
		return decimal.Zero
	}
	return annual.Sub(p.taxAnnualThreshold).Mul(p.taxRate).DivRound(monthsPerYear, numeric.Scale)
}

// Compute 按顺序计算各项金额，返回仅填充金额字段的薪资单
// 有覆盖值时使用覆盖值（保留两位小数），否则按策略计算
func (p *SalaryPolicy) Compute(req *dto.CalculateSalaryRequest, designation string) model.Salary {
	var s model.Salary

	s.BasicSalary = numeric.OrDefault(req.BasicSalary, p.BasicSalaryFor(designation))
	s.HouseRentAllowance = numeric.OrDefault(req.HouseRentAllowance, numeric.Round2(s.BasicSalary.Mul(p.hraRate)))
	s.TravelAllowance = numeric.OrDefault(req.TravelAllowance, numeric.Round2(p.travelAllowance))
	s.MedicalAllowance = numeric.OrDefault(req.MedicalAllowance, numeric.Round2(p.medicalAllowance))
	s.Bonus = numeric.OrDefault(req.Bonus, decimal.Zero)

	s.OvertimeHours = numeric.OrDefault(req.OvertimeHours, decimal.Zero)
	s.OvertimeRate = numeric.OrDefault(req.OvertimeRate, numeric.Round2(p.overtimeRate))
	s.OvertimePay = numeric.Round2(s.OvertimeHours.Mul(s.OvertimeRate))

	s.GrossSalary = numeric.Sum(
		s.BasicSalary,
		s.HouseRentAllowance,
		s.TravelAllowance,
		s.MedicalAllowance,
		s.Bonus,
		s.OvertimePay,
	)

	s.ProvidentFund = numeric.OrDefault(req.ProvidentFund, numeric.Round2(s.BasicSalary.Mul(p.pfRate)))
	s.TaxDeduction = numeric.OrDefault(req.TaxDeduction, p.MonthlyTax(s.GrossSalary))
	s.OtherDeductions = numeric.OrDefault(req.OtherDeductions, decimal.Zero)

	s.NetSalary = numeric.Round2(
		s.GrossSalary.
			Sub(s.TaxDeduction).
			Sub(s.ProvidentFund).
			Sub(s.OtherDeductions),
	)
	return s
}

// validateOverrides 覆盖金额不能为负
func validateOverrides(req *dto.CalculateSalaryRequest) error {
	overrides := []struct {
		field string
		value *decimal.Decimal
	}{
		{"basic_salary", req.BasicSalary},
		{"house_rent_allowance", req.HouseRentAllowance},
		{"travel_allowance", req.TravelAllowance},
		{"medical_allowance", req.MedicalAllowance},
		{"bonus", req.Bonus},
		{"overtime_hours", req.OvertimeHours},
		{"overtime_rate", req.OvertimeRate},
		{"tax_deduction", req.TaxDeduction},
		{"provident_fund", req.ProvidentFund},
		{"other_deductions", req.OtherDeductions},
	}
	for _, o := range overrides {
		if o.value != nil && o.value.IsNegative() {
			return newValidationError(o.field, "不能为负数")
		}
	}
	return nil
}
