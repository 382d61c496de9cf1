package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"staff-payroll/backend/internal/service"
	"staff-payroll/backend/pkg/response"
)

// MustGetUsername 从路径参数中提取员工账号。
// 为空时写入 400 响应并返回 false，调用方应直接 return。
func MustGetUsername(c *gin.Context) (string, bool) {
	username := strings.TrimSpace(c.Param("username"))
	if username == "" {
		response.BadRequest(c, 10001, "员工账号不能为空")
		return "", false
	}
	return username, true
}

// MustGetSalaryID 从路径参数中提取薪资单 ID。
func MustGetSalaryID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, 10001, "薪资单ID无效")
		return 0, false
	}
	return id, true
}

// handleCommonError 处理各模块共有的错误：参数校验与存储失败。
// 已写入响应时返回 true。
func handleCommonError(c *gin.Context, err error) bool {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", ve.Error())
		return true
	case errors.Is(err, service.ErrStorage):
		response.InternalError(c)
		return true
	}
	return false
}
