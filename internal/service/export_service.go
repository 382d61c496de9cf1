package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"staff-payroll/backend/internal/dto"
	"staff-payroll/backend/internal/model"
	"staff-payroll/backend/internal/repository"
	"staff-payroll/backend/pkg/clock"
	"staff-payroll/backend/pkg/numeric"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoSalaries   = errors.New("该月份暂无薪资单")
	ErrExportNoAttendance = errors.New("该月份暂无考勤记录")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportMonthlySalaries 导出某月全部薪资单，末行为合计
	ExportMonthlySalaries(ctx context.Context, month string) (*bytes.Buffer, string, error)
	// ExportMonthlyAttendance 导出某员工某月考勤明细
	ExportMonthlyAttendance(ctx context.Context, username string, year int, month time.Month) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	loc    *time.Location // 签到/签退时刻按考勤时区输出
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, clk clock.Clock, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, loc: clk.Now().Location(), logger: logger}
}

// amountNumFmt excelize 内置格式 2，即 "0.00"
const amountNumFmt = 2

// 薪资表中金额列的位置（从 1 开始）
const (
	salaryFirstAmountCol = 5
	salaryGrossCol       = 15
	salaryNetCol         = 16
)

var salaryHeaders = []string{
	"员工账号", "姓名", "部门", "月份", "基本工资", "房补", "交通补贴", "医疗补贴", "奖金",
	"加班时长", "加班费", "个税", "公积金", "其他扣款", "应发", "实发", "发薪状态", "发薪日期", "银行账号",
}

// ═══════════════════════════════════════════════════════════
// ExportMonthlySalaries 导出月度薪资表
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportMonthlySalaries(ctx context.Context, month string) (*bytes.Buffer, string, error) {
	m, err := parseMonth(month)
	if err != nil {
		return nil, "", err
	}

	salaries, err := s.repo.Salary.ListByMonth(ctx, m)
	if err != nil {
		s.logger.Error("查询月度薪资失败", zap.String("month", m), zap.Error(err))
		return nil, "", newStorageError("list salaries by month", err)
	}
	if len(salaries) == 0 {
		return nil, "", ErrExportNoSalaries
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "薪资表"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	amountStyle, _ := f.NewStyle(&excelize.Style{NumFmt: amountNumFmt})

	// 标题行
	lastCol := colName(len(salaryHeaders))
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s 薪资表", m))
	f.MergeCell(sheetName, "A1", axis(len(salaryHeaders), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	f.SetSheetRow(sheetName, "A2", &salaryHeaders)
	f.SetCellStyle(sheetName, "A2", axis(len(salaryHeaders), 2), headerStyle)
	f.SetColWidth(sheetName, "A", lastCol, 14)

	// 数据行：金额与工时写入数值单元格
	employees := make(map[string]*model.Employee)
	totalGross, totalNet := decimal.Zero, decimal.Zero
	row := 3
	for i := range salaries {
		sal := &salaries[i]
		emp, ok := employees[sal.Username]
		if !ok {
			emp = s.lookupEmployee(ctx, sal.Username)
			employees[sal.Username] = emp
		}
		resp := toSalaryResponse(sal, emp)

		values := []interface{}{
			resp.Username, resp.EmployeeName, resp.Department, resp.SalaryMonth,
			cellAmount(sal.BasicSalary), cellAmount(sal.HouseRentAllowance), cellAmount(sal.TravelAllowance),
			cellAmount(sal.MedicalAllowance), cellAmount(sal.Bonus), cellAmount(sal.OvertimeHours),
			cellAmount(sal.OvertimePay), cellAmount(sal.TaxDeduction), cellAmount(sal.ProvidentFund),
			cellAmount(sal.OtherDeductions), cellAmount(sal.GrossSalary), cellAmount(sal.NetSalary),
			resp.PaymentStatus, resp.PaymentDate, resp.BankAccountNumber,
		}
		f.SetSheetRow(sheetName, axis(1, row), &values)

		totalGross = totalGross.Add(sal.GrossSalary)
		totalNet = totalNet.Add(sal.NetSalary)
		row++
	}

	// 合计行
	f.SetCellValue(sheetName, axis(1, row), "合计")
	f.SetCellValue(sheetName, axis(salaryGrossCol, row), cellAmount(totalGross))
	f.SetCellValue(sheetName, axis(salaryNetCol, row), cellAmount(totalNet))
	f.SetCellStyle(sheetName, axis(salaryFirstAmountCol, 3), axis(salaryNetCol, row), amountStyle)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	return buf, fmt.Sprintf("薪资表_%s.xlsx", m), nil
}

// ═══════════════════════════════════════════════════════════
// ExportMonthlyAttendance 导出员工月度考勤
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportMonthlyAttendance(ctx context.Context, username string, year int, month time.Month) (*bytes.Buffer, string, error) {
	if username == "" {
		return nil, "", newValidationError("username", "不能为空")
	}
	if month < time.January || month > time.December {
		return nil, "", newValidationError("month", "必须在 1-12 之间")
	}

	records, err := s.repo.Attendance.ListByUserAndMonth(ctx, username, year, month)
	if err != nil {
		s.logger.Error("查询月度考勤失败", zap.String("username", username), zap.Error(err))
		return nil, "", newStorageError("list monthly attendance", err)
	}
	if len(records) == 0 {
		return nil, "", ErrExportNoAttendance
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "考勤表"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	period := fmt.Sprintf("%04d-%02d", year, int(month))
	name := username
	if emp := s.lookupEmployee(ctx, username); emp != nil && emp.Name != "" {
		name = emp.Name
	}
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s %s 考勤明细", name, period))
	f.MergeCell(sheetName, "A1", "F1")

	headers := []string{"日期", "签到", "签退", "状态", "工时", "备注"}
	f.SetSheetRow(sheetName, "A2", &headers)
	f.SetColWidth(sheetName, "A", "E", 12)
	f.SetColWidth(sheetName, "F", "F", 40)
	hoursStyle, _ := f.NewStyle(&excelize.Style{NumFmt: amountNumFmt})

	// 按日期升序输出
	totalHours := decimal.Zero
	row := 3
	for i := len(records) - 1; i >= 0; i-- {
		a := &records[i]
		values := []interface{}{
			a.AttendanceDate.Format(dto.DateLayout),
			dto.FormatClock(a.CheckInTime, s.loc),
			dto.FormatClock(a.CheckOutTime, s.loc),
			a.Status,
			nil,
			a.Notes,
		}
		if a.WorkingHours != nil {
			values[4] = cellAmount(*a.WorkingHours)
			totalHours = totalHours.Add(*a.WorkingHours)
		}
		f.SetSheetRow(sheetName, axis(1, row), &values)
		row++
	}
	f.SetCellValue(sheetName, axis(1, row), "合计工时")
	f.SetCellValue(sheetName, axis(5, row), cellAmount(totalHours))
	f.SetCellStyle(sheetName, axis(5, 3), axis(5, row), hoursStyle)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	return buf, fmt.Sprintf("考勤表_%s_%s.xlsx", username, period), nil
}

// ── 辅助函数 ──

func (s *exportService) lookupEmployee(ctx context.Context, username string) *model.Employee {
	emp, err := s.repo.Employee.GetByUsername(ctx, username)
	if err != nil {
		return nil
	}
	return emp
}

// colName 列号（从 1 开始）转列名
func colName(col int) string {
	name, _ := excelize.ColumnNumberToName(col)
	return name
}

// axis 行列号（均从 1 开始）转单元格坐标
func axis(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// cellAmount 两位小数金额转为数值单元格的值，显示格式由 amountNumFmt 控制
func cellAmount(d decimal.Decimal) float64 {
	return numeric.Round2(d).InexactFloat64()
}
