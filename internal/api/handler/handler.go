package handler

import "staff-payroll/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Attendance *AttendanceHandler
	Salary     *SalaryHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Attendance: NewAttendanceHandler(svc.Attendance),
		Salary:     NewSalaryHandler(svc.Salary),
		Export:     NewExportHandler(svc.Export),
	}
}
