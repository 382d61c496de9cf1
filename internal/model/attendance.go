package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 考勤状态
// AttendanceNotesMaxLen 备注列长度（字符数），与 notes varchar(500) 一致
const AttendanceNotesMaxLen = 500

const (
	AttendanceStatusPresent = "PRESENT"
	AttendanceStatusAbsent  = "ABSENT"
	AttendanceStatusHalfDay = "HALF_DAY"
	AttendanceStatusLeave   = "LEAVE"
)

// IsValidAttendanceStatus 校验考勤状态是否合法
func IsValidAttendanceStatus(status string) bool {
	switch status {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusHalfDay, AttendanceStatusLeave:
		return true
	}
	return false
}

// Attendance 考勤记录表 — 对应 attendances，(username, attendance_date) 唯一
type Attendance struct {
	AttendanceID   uint64           `gorm:"primaryKey;autoIncrement"                                              json:"attendance_id"`
	Username       string           `gorm:"type:varchar(50);not null;uniqueIndex:uq_attendances_username_date"    json:"username"`
	AttendanceDate time.Time        `gorm:"type:date;not null;uniqueIndex:uq_attendances_username_date;index"     json:"attendance_date"`
	CheckInTime    *time.Time       `json:"check_in_time,omitempty"`
	CheckOutTime   *time.Time       `json:"check_out_time,omitempty"`
	Status         string           `gorm:"type:varchar(20);not null"                                             json:"status"` // PRESENT | ABSENT | HALF_DAY | LEAVE
	WorkingHours   *decimal.Decimal `gorm:"type:numeric(6,2)"                                                     json:"working_hours,omitempty"`
	Notes          string           `gorm:"type:varchar(500);not null;default:''"                                 json:"notes"`
	VersionedModel
}

// TableName 指定表名
func (Attendance) TableName() string { return "attendances" }
