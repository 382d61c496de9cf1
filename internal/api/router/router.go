package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"staff-payroll/backend/config"
	"staff-payroll/backend/internal/api/handler"
	"staff-payroll/backend/internal/api/middleware"
	"staff-payroll/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时打卡限流降级放行
func Setup(cfg *config.Config, h *handler.Handler, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimitBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	clockLimit := middleware.RateLimit(rdb, cfg.Redis.RateLimit, cfg.Redis.RateWindow)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 考勤模块
		attendance := v1.Group("/attendance")
		{
			attendance.POST("/:username/check-in", clockLimit, h.Attendance.CheckIn)
			attendance.POST("/:username/check-out", clockLimit, h.Attendance.CheckOut)
			attendance.POST("/manual", h.Attendance.MarkManual)
			attendance.GET("/:username/today", h.Attendance.GetToday)
			attendance.GET("/:username/history", h.Attendance.GetHistory)
			attendance.GET("/:username/monthly", h.Attendance.GetMonthly)
			attendance.GET("/:username/stats", h.Attendance.GetStats)
			attendance.GET("/date/:date", h.Attendance.GetByDate)
		}

		// 薪资模块
		salaries := v1.Group("/salaries")
		{
			salaries.POST("/calculate", h.Salary.Calculate)
			salaries.GET("/:id", h.Salary.GetSalary)
			salaries.PUT("/:id/status", h.Salary.UpdateStatus)
			salaries.GET("/user/:username", h.Salary.GetHistory)
			salaries.GET("/user/:username/latest", h.Salary.GetLatest)
			salaries.GET("/user/:username/month/:month", h.Salary.GetByUserAndMonth)
			salaries.GET("/month/:month", h.Salary.GetAllByMonth)
			salaries.GET("/month/:month/summary", h.Salary.GetMonthlySummary)
			salaries.GET("/status/:status", h.Salary.ListByStatus)
		}

		// 导出模块
		export := v1.Group("/export")
		{
			export.GET("/salaries", h.Export.ExportSalaries)
			export.GET("/attendance", h.Export.ExportAttendance)
		}
	}

	return r
}
