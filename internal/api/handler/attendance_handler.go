package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"staff-payroll/backend/internal/dto"
	"staff-payroll/backend/internal/service"
	"staff-payroll/backend/pkg/response"
)

// AttendanceHandler 考勤模块 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc}
}

// CheckIn 签到
// POST /api/v1/attendance/:username/check-in
func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	username, ok := MustGetUsername(c)
	if !ok {
		return
	}

	record, err := h.attendanceSvc.CheckIn(c.Request.Context(), username)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, record)
}

// CheckOut 签退
// POST /api/v1/attendance/:username/check-out
func (h *AttendanceHandler) CheckOut(c *gin.Context) {
	username, ok := MustGetUsername(c)
	if !ok {
		return
	}

	record, err := h.attendanceSvc.CheckOut(c.Request.Context(), username)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, record)
}

// MarkManual 手工补录当天考勤
// POST /api/v1/attendance/manual
func (h *AttendanceHandler) MarkManual(c *gin.Context) {
	var req dto.ManualAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	record, err := h.attendanceSvc.MarkManual(c.Request.Context(), &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, record)
}

// GetToday 今日考勤，无记录时 data 为 null
// GET /api/v1/attendance/:username/today
func (h *AttendanceHandler) GetToday(c *gin.Context) {
	username, ok := MustGetUsername(c)
	if !ok {
		return
	}

	record, err := h.attendanceSvc.GetToday(c.Request.Context(), username)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, record)
}

// GetHistory 考勤历史（日期倒序）
// GET /api/v1/attendance/:username/history
func (h *AttendanceHandler) GetHistory(c *gin.Context) {
	username, ok := MustGetUsername(c)
	if !ok {
		return
	}

	list, err := h.attendanceSvc.GetHistory(c.Request.Context(), username)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// GetMonthly 月度考勤
// GET /api/v1/attendance/:username/monthly?year=2026&month=10
func (h *AttendanceHandler) GetMonthly(c *gin.Context) {
	username, ok := MustGetUsername(c)
	if !ok {
		return
	}

	var req dto.MonthlyAttendanceRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, err := h.attendanceSvc.GetByMonth(c.Request.Context(), username, req.Year, time.Month(req.Month))
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// GetStats 考勤统计
// GET /api/v1/attendance/:username/stats
func (h *AttendanceHandler) GetStats(c *gin.Context) {
	username, ok := MustGetUsername(c)
	if !ok {
		return
	}

	stats, err := h.attendanceSvc.GetStats(c.Request.Context(), username)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, stats)
}

// GetByDate 某天全部员工考勤（按账号升序）
// GET /api/v1/attendance/date/:date
func (h *AttendanceHandler) GetByDate(c *gin.Context) {
	date, err := time.Parse(dto.DateLayout, c.Param("date"))
	if err != nil {
		response.BadRequest(c, 10001, "日期格式应为 YYYY-MM-DD")
		return
	}

	list, err := h.attendanceSvc.GetByDate(c.Request.Context(), date)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

func (h *AttendanceHandler) handleAttendanceError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrAlreadyCheckedIn):
		response.Conflict(c, 20001, err.Error())
	case errors.Is(err, service.ErrAlreadyCheckedOut):
		response.Conflict(c, 20002, err.Error())
	case errors.Is(err, service.ErrNotCheckedIn):
		response.BadRequest(c, 20003, err.Error())
	default:
		response.InternalError(c)
	}
}
