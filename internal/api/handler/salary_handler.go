package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"staff-payroll/backend/internal/dto"
	"staff-payroll/backend/internal/service"
	pkgerrors "staff-payroll/backend/pkg/errors"
	"staff-payroll/backend/pkg/response"
)

// SalaryHandler 薪资模块 HTTP 处理器
type SalaryHandler struct {
	salarySvc service.SalaryService
}

// NewSalaryHandler 创建 SalaryHandler
func NewSalaryHandler(salarySvc service.SalaryService) *SalaryHandler {
	return &SalaryHandler{salarySvc: salarySvc}
}

// Calculate 计算并保存薪资单
// POST /api/v1/salaries/calculate
func (h *SalaryHandler) Calculate(c *gin.Context) {
	var req dto.CalculateSalaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	salary, err := h.salarySvc.Calculate(c.Request.Context(), &req)
	if err != nil {
		h.handleSalaryError(c, err)
		return
	}

	response.Created(c, salary)
}

// GetSalary 薪资单详情
// GET /api/v1/salaries/:id
func (h *SalaryHandler) GetSalary(c *gin.Context) {
	id, ok := MustGetSalaryID(c)
	if !ok {
		return
	}

	salary, err := h.salarySvc.Get(c.Request.Context(), id)
	if err != nil {
		h.handleSalaryError(c, err)
		return
	}

	response.OK(c, salary)
}

// UpdateStatus 更新发薪状态
// PUT /api/v1/salaries/:id/status
func (h *SalaryHandler) UpdateStatus(c *gin.Context) {
	id, ok := MustGetSalaryID(c)
	if !ok {
		return
	}

	var req dto.UpdateSalaryStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	salary, err := h.salarySvc.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.handleSalaryError(c, err)
		return
	}

	response.OK(c, salary)
}

// GetHistory 员工薪资历史（月份倒序）
// GET /api/v1/salaries/user/:username
func (h *SalaryHandler) GetHistory(c *gin.Context) {
	username, ok := MustGetUsername(c)
	if !ok {
		return
	}

	list, err := h.salarySvc.GetHistory(c.Request.Context(), username)
	if err != nil {
		h.handleSalaryError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// GetLatest 员工最新薪资单，无记录时 data 为 null
// GET /api/v1/salaries/user/:username/latest
func (h *SalaryHandler) GetLatest(c *gin.Context) {
	username, ok := MustGetUsername(c)
	if !ok {
		return
	}

	salary, err := h.salarySvc.GetLatest(c.Request.Context(), username)
	if err != nil {
		h.handleSalaryError(c, err)
		return
	}

	response.OK(c, salary)
}

// GetByUserAndMonth 员工某月薪资单，无记录时 data 为 null
// GET /api/v1/salaries/user/:username/month/:month
func (h *SalaryHandler) GetByUserAndMonth(c *gin.Context) {
	username, ok := MustGetUsername(c)
	if !ok {
		return
	}

	salary, err := h.salarySvc.GetByUserAndMonth(c.Request.Context(), username, c.Param("month"))
	if err != nil {
		h.handleSalaryError(c, err)
		return
	}

	response.OK(c, salary)
}

// GetAllByMonth 某月全部薪资单
// GET /api/v1/salaries/month/:month
func (h *SalaryHandler) GetAllByMonth(c *gin.Context) {
	list, err := h.salarySvc.GetAllByMonth(c.Request.Context(), c.Param("month"))
	if err != nil {
		h.handleSalaryError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// GetMonthlySummary 月度薪资汇总
// GET /api/v1/salaries/month/:month/summary
func (h *SalaryHandler) GetMonthlySummary(c *gin.Context) {
	summary, err := h.salarySvc.GetMonthlySummary(c.Request.Context(), c.Param("month"))
	if err != nil {
		h.handleSalaryError(c, err)
		return
	}

	response.OK(c, summary)
}

// ListByStatus 按发薪状态查询
// GET /api/v1/salaries/status/:status
func (h *SalaryHandler) ListByStatus(c *gin.Context) {
	list, err := h.salarySvc.ListByStatus(c.Request.Context(), c.Param("status"))
	if err != nil {
		h.handleSalaryError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

func (h *SalaryHandler) handleSalaryError(c *gin.Context, err error) {
	// 乐观锁冲突包装在 StorageError 中，需先于通用处理判断
	if errors.Is(err, pkgerrors.ErrOptimisticLock) {
		response.Conflict(c, 30004, "薪资单已被其他操作修改，请刷新后重试")
		return
	}
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrSalaryNotFound):
		response.NotFound(c, 30001, "薪资单不存在")
	case errors.Is(err, service.ErrDuplicateSalary):
		response.Conflict(c, 30002, "该员工本月薪资已计算")
	case errors.Is(err, service.ErrEmployeeNotFound):
		response.NotFound(c, 30003, "员工不存在")
	default:
		response.InternalError(c)
	}
}
