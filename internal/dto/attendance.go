package dto

// ── 考勤模块 DTO ──

// ManualAttendanceRequest 手工补录/修正当天考勤
// username 与 status 的必填校验在 Service 层完成，以便返回统一的校验错误
type ManualAttendanceRequest struct {
	Username     string  `json:"username"`
	CheckInTime  *string `json:"check_in_time"`  // HH:mm:ss 或 HH:mm
	CheckOutTime *string `json:"check_out_time"` // HH:mm:ss 或 HH:mm
	Status       string  `json:"status"`
	Notes        *string `json:"notes" binding:"omitempty,max=500"`
}

// MonthlyAttendanceRequest 月度考勤查询参数
type MonthlyAttendanceRequest struct {
	Year  int `form:"year"  binding:"required,min=1970,max=9999"`
	Month int `form:"month" binding:"required,min=1,max=12"`
}

// AttendanceResponse 考勤记录响应
type AttendanceResponse struct {
	ID             uint64 `json:"id"`
	Username       string `json:"username"`
	AttendanceDate string `json:"attendance_date"`
	CheckInTime    string `json:"check_in_time,omitempty"`
	CheckOutTime   string `json:"check_out_time,omitempty"`
	Status         string `json:"status"`
	WorkingHours   string `json:"working_hours,omitempty"`
	Notes          string `json:"notes,omitempty"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// AttendanceStatsResponse 考勤统计
type AttendanceStatsResponse struct {
	Username             string `json:"username"`
	TotalDays            int64  `json:"total_days"`
	PresentDays          int64  `json:"present_days"`
	AbsentDays           int64  `json:"absent_days"`
	HalfDays             int64  `json:"half_days"`
	LeaveDays            int64  `json:"leave_days"`
	AttendancePercentage string `json:"attendance_percentage"`
}
