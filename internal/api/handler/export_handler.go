package handler

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"staff-payroll/backend/internal/dto"
	"staff-payroll/backend/internal/service"
	"staff-payroll/backend/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportSalaries 导出月度薪资表
// GET /api/v1/export/salaries?month=2026-09
func (h *ExportHandler) ExportSalaries(c *gin.Context) {
	var req dto.ExportSalariesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "month 不能为空")
		return
	}

	buf, filename, err := h.exportSvc.ExportMonthlySalaries(c.Request.Context(), req.Month)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	writeXLSX(c, buf, filename)
}

// ExportAttendance 导出员工月度考勤
// GET /api/v1/export/attendance?username=alice&year=2026&month=10
func (h *ExportHandler) ExportAttendance(c *gin.Context) {
	var req dto.ExportAttendanceRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	buf, filename, err := h.exportSvc.ExportMonthlyAttendance(c.Request.Context(), req.Username, req.Year, time.Month(req.Month))
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	writeXLSX(c, buf, filename)
}

// writeXLSX 设置下载响应头并写入文件内容
func writeXLSX(c *gin.Context, buf *bytes.Buffer, filename string) {
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrExportNoSalaries):
		response.NotFound(c, 40001, "该月份暂无薪资单")
	case errors.Is(err, service.ErrExportNoAttendance):
		response.NotFound(c, 40002, "该月份暂无考勤记录")
	default:
		response.InternalError(c)
	}
}
