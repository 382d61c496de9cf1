package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"staff-payroll/backend/internal/model"
	pkgerrors "staff-payroll/backend/pkg/errors"
)

// DateLayout attendance_date 的查询格式，按字符串传参避免时区换算
const DateLayout = "2006-01-02"

// AttendanceRepository 考勤数据访问接口
type AttendanceRepository interface {
	GetByUserAndDate(ctx context.Context, username string, date time.Time) (*model.Attendance, error)
	ListByUser(ctx context.Context, username string) ([]model.Attendance, error)
	ListByUserAndMonth(ctx context.Context, username string, year int, month time.Month) ([]model.Attendance, error)
	ListByDate(ctx context.Context, date time.Time) ([]model.Attendance, error)
	// Save AttendanceID 为 0 时插入（唯一冲突返回 ErrDuplicateKey），否则按 version 更新（冲突返回 ErrOptimisticLock）
	Save(ctx context.Context, a *model.Attendance) error
}

type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建 AttendanceRepository 实例
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) GetByUserAndDate(ctx context.Context, username string, date time.Time) (*model.Attendance, error) {
	var a model.Attendance
	err := r.db.WithContext(ctx).
		Where("username = ? AND attendance_date = ?", username, date.Format(DateLayout)).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *attendanceRepo) ListByUser(ctx context.Context, username string) ([]model.Attendance, error) {
	var list []model.Attendance
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		Order("attendance_date DESC").
		Find(&list).Error
	return list, err
}

func (r *attendanceRepo) ListByUserAndMonth(ctx context.Context, username string, year int, month time.Month) ([]model.Attendance, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	var list []model.Attendance
	err := r.db.WithContext(ctx).
		Where("username = ? AND attendance_date >= ? AND attendance_date < ?",
			username, start.Format(DateLayout), end.Format(DateLayout)).
		Order("attendance_date DESC").
		Find(&list).Error
	return list, err
}

func (r *attendanceRepo) ListByDate(ctx context.Context, date time.Time) ([]model.Attendance, error) {
	var list []model.Attendance
	err := r.db.WithContext(ctx).
		Where("attendance_date = ?", date.Format(DateLayout)).
		Order("username ASC").
		Find(&list).Error
	return list, err
}

func (r *attendanceRepo) Save(ctx context.Context, a *model.Attendance) error {
	if a.AttendanceID == 0 {
		if a.Version == 0 {
			a.Version = 1
		}
		return translateWriteError(r.db.WithContext(ctx).Create(a).Error)
	}

	oldVersion := a.Version
	result := r.db.WithContext(ctx).
		Model(&model.Attendance{}).
		Where("attendance_id = ? AND version = ?", a.AttendanceID, oldVersion).
		Updates(map[string]interface{}{
			"check_in_time":  a.CheckInTime,
			"check_out_time": a.CheckOutTime,
			"status":         a.Status,
			"working_hours":  a.WorkingHours,
			"notes":          a.Notes,
			"updated_at":     a.UpdatedAt,
			"version":        oldVersion + 1,
		})
	if result.Error != nil {
		return translateWriteError(result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	a.Version = oldVersion + 1
	return nil
}
