package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"staff-payroll/backend/internal/dto"
	"staff-payroll/backend/internal/model"
	"staff-payroll/backend/internal/repository"
	"staff-payroll/backend/pkg/clock"
	pkgerrors "staff-payroll/backend/pkg/errors"
	"staff-payroll/backend/pkg/numeric"
)

// ── 考勤模块业务错误 ──

var (
	ErrAlreadyCheckedIn  = errors.New("今日已签到")
	ErrAlreadyCheckedOut = errors.New("今日已签退")
	ErrNotCheckedIn      = errors.New("今日尚未签到，请先签到")
)

// AlreadyCheckedInError 携带已有签到时间，errors.Is(err, ErrAlreadyCheckedIn) 为 true
type AlreadyCheckedInError struct {
	At time.Time
}

func (e *AlreadyCheckedInError) Error() string {
	return fmt.Sprintf("今日已于 %s 签到", e.At.Format(dto.ClockLayout))
}

func (e *AlreadyCheckedInError) Is(target error) bool { return target == ErrAlreadyCheckedIn }

// AlreadyCheckedOutError 携带已有签退时间，errors.Is(err, ErrAlreadyCheckedOut) 为 true
type AlreadyCheckedOutError struct {
	At time.Time
}

func (e *AlreadyCheckedOutError) Error() string {
	return fmt.Sprintf("今日已于 %s 签退", e.At.Format(dto.ClockLayout))
}

func (e *AlreadyCheckedOutError) Is(target error) bool { return target == ErrAlreadyCheckedOut }

// negativeHoursNote 签退早于签到时写入备注
const negativeHoursNote = "[签退时间早于签到时间，工时按 0 计]"

// AttendanceService 考勤业务接口
//
// 同一员工同一天至多一条记录。三条写路径（签到、签退、手工补录）都走 upsert：
// 读取当天记录 → 按各自规则合并 → 保存；保存遇到唯一约束或版本冲突时重新读取并合并，
// 重试次数由 attendance.max_upsert_retries 限制。
type AttendanceService interface {
	CheckIn(ctx context.Context, username string) (*dto.AttendanceResponse, error)
	CheckOut(ctx context.Context, username string) (*dto.AttendanceResponse, error)
	MarkManual(ctx context.Context, req *dto.ManualAttendanceRequest) (*dto.AttendanceResponse, error)
	// GetToday 当天无记录时返回 nil, nil
	GetToday(ctx context.Context, username string) (*dto.AttendanceResponse, error)
	GetHistory(ctx context.Context, username string) ([]dto.AttendanceResponse, error)
	GetByMonth(ctx context.Context, username string, year int, month time.Month) ([]dto.AttendanceResponse, error)
	GetByDate(ctx context.Context, date time.Time) ([]dto.AttendanceResponse, error)
	GetStats(ctx context.Context, username string) (*dto.AttendanceStatsResponse, error)
}

type attendanceService struct {
	repo       *repository.Repository
	clock      clock.Clock
	maxRetries int
	logger     *zap.Logger
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(repo *repository.Repository, clk clock.Clock, maxRetries int, logger *zap.Logger) AttendanceService {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &attendanceService{repo: repo, clock: clk, maxRetries: maxRetries, logger: logger}
}

// ────────────────────── CheckIn ──────────────────────

func (s *attendanceService) CheckIn(ctx context.Context, username string) (*dto.AttendanceResponse, error) {
	if strings.TrimSpace(username) == "" {
		return nil, newValidationError("username", "不能为空")
	}

	now := s.clock.Now()
	a, err := s.upsert(ctx, "check in", username, now, func(a *model.Attendance, _ bool) error {
		if a.CheckInTime != nil {
			return &AlreadyCheckedInError{At: a.CheckInTime.In(now.Location())}
		}
		a.CheckInTime = &now
		a.Status = model.AttendanceStatusPresent
		// 补录已写入签退时间时，签到后即可算出工时
		if a.CheckOutTime != nil {
			applyWorkingHours(a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("员工签到", zap.String("username", username), zap.Time("at", now))
	return s.toResponse(a), nil
}

// ────────────────────── CheckOut ──────────────────────

func (s *attendanceService) CheckOut(ctx context.Context, username string) (*dto.AttendanceResponse, error) {
	if strings.TrimSpace(username) == "" {
		return nil, newValidationError("username", "不能为空")
	}

	now := s.clock.Now()
	a, err := s.upsert(ctx, "check out", username, now, func(a *model.Attendance, exists bool) error {
		if !exists {
			return ErrNotCheckedIn
		}
		if a.CheckOutTime != nil {
			return &AlreadyCheckedOutError{At: a.CheckOutTime.In(now.Location())}
		}
		if a.CheckInTime == nil {
			return ErrNotCheckedIn
		}
		a.CheckOutTime = &now
		applyWorkingHours(a)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("员工签退", zap.String("username", username), zap.Time("at", now))
	return s.toResponse(a), nil
}

// ────────────────────── MarkManual ──────────────────────

// MarkManual 管理员补录当天考勤：传入的字段覆盖已有值，未传字段保持不变，不受签到/签退顺序约束
func (s *attendanceService) MarkManual(ctx context.Context, req *dto.ManualAttendanceRequest) (*dto.AttendanceResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, newValidationError("username", "不能为空")
	}
	status := strings.TrimSpace(req.Status)
	if status == "" {
		return nil, newValidationError("status", "不能为空")
	}
	if !model.IsValidAttendanceStatus(status) {
		return nil, newValidationError("status", "必须为 PRESENT、ABSENT、HALF_DAY 或 LEAVE")
	}

	now := s.clock.Now()
	day := clock.DateOf(now)

	checkIn, err := parseClockOnDay(day, req.CheckInTime)
	if err != nil {
		return nil, newValidationError("check_in_time", err.Error())
	}
	checkOut, err := parseClockOnDay(day, req.CheckOutTime)
	if err != nil {
		return nil, newValidationError("check_out_time", err.Error())
	}

	a, err := s.upsert(ctx, "mark manual", username, now, func(a *model.Attendance, _ bool) error {
		if checkIn != nil {
			in := *checkIn
			a.CheckInTime = &in
		}
		if checkOut != nil {
			out := *checkOut
			a.CheckOutTime = &out
		}
		a.Status = status
		if req.Notes != nil {
			a.Notes = *req.Notes
		}
		if a.CheckInTime != nil && a.CheckOutTime != nil {
			applyWorkingHours(a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("手工补录考勤",
		zap.String("username", username),
		zap.String("status", status),
	)
	return s.toResponse(a), nil
}

// ────────────────────── Reads ──────────────────────

func (s *attendanceService) GetToday(ctx context.Context, username string) (*dto.AttendanceResponse, error) {
	a, err := s.repo.Attendance.GetByUserAndDate(ctx, username, clock.Today(s.clock))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		s.logger.Error("查询今日考勤失败", zap.String("username", username), zap.Error(err))
		return nil, newStorageError("get today attendance", err)
	}
	return s.toResponse(a), nil
}

func (s *attendanceService) GetHistory(ctx context.Context, username string) ([]dto.AttendanceResponse, error) {
	list, err := s.repo.Attendance.ListByUser(ctx, username)
	if err != nil {
		s.logger.Error("查询考勤历史失败", zap.String("username", username), zap.Error(err))
		return nil, newStorageError("list attendance", err)
	}
	return s.toResponses(list), nil
}

func (s *attendanceService) GetByMonth(ctx context.Context, username string, year int, month time.Month) ([]dto.AttendanceResponse, error) {
	if year <= 0 {
		return nil, newValidationError("year", "必须为正整数")
	}
	if month < time.January || month > time.December {
		return nil, newValidationError("month", "必须在 1-12 之间")
	}

	list, err := s.repo.Attendance.ListByUserAndMonth(ctx, username, year, month)
	if err != nil {
		s.logger.Error("查询月度考勤失败",
			zap.String("username", username),
			zap.Int("year", year),
			zap.Int("month", int(month)),
			zap.Error(err),
		)
		return nil, newStorageError("list monthly attendance", err)
	}
	return s.toResponses(list), nil
}

func (s *attendanceService) GetByDate(ctx context.Context, date time.Time) ([]dto.AttendanceResponse, error) {
	list, err := s.repo.Attendance.ListByDate(ctx, date)
	if err != nil {
		s.logger.Error("按日期查询考勤失败", zap.String("date", date.Format(dto.DateLayout)), zap.Error(err))
		return nil, newStorageError("list attendance by date", err)
	}
	return s.toResponses(list), nil
}

// GetStats 每次调用都基于完整历史重新统计
func (s *attendanceService) GetStats(ctx context.Context, username string) (*dto.AttendanceStatsResponse, error) {
	list, err := s.repo.Attendance.ListByUser(ctx, username)
	if err != nil {
		s.logger.Error("查询考勤历史失败", zap.String("username", username), zap.Error(err))
		return nil, newStorageError("list attendance", err)
	}

	stats := &dto.AttendanceStatsResponse{Username: username, TotalDays: int64(len(list))}
	for i := range list {
		switch list[i].Status {
		case model.AttendanceStatusPresent:
			stats.PresentDays++
		case model.AttendanceStatusAbsent:
			stats.AbsentDays++
		case model.AttendanceStatusHalfDay:
			stats.HalfDays++
		case model.AttendanceStatusLeave:
			stats.LeaveDays++
		}
	}
	stats.AttendancePercentage = dto.FormatAmount(numeric.Percentage(stats.PresentDays, stats.TotalDays))
	return stats, nil
}

// ── upsert ──

// mutateFunc 将一次写操作合并到当天记录上；exists=false 表示记录是新建的空记录。
// 冲突重试时会在重新读取的记录上再次调用，必须只依赖入参与调用前捕获的值。
type mutateFunc func(a *model.Attendance, exists bool) error

func (s *attendanceService) upsert(ctx context.Context, op, username string, now time.Time, mutate mutateFunc) (*model.Attendance, error) {
	day := clock.DateOf(now)

	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		exists := true
		a, err := s.repo.Attendance.GetByUserAndDate(ctx, username, day)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				s.logger.Error("查询考勤记录失败", zap.String("op", op), zap.String("username", username), zap.Error(err))
				return nil, newStorageError(op, err)
			}
			exists = false
			a = &model.Attendance{
				Username:       username,
				AttendanceDate: day,
				Status:         model.AttendanceStatusPresent,
			}
		}

		if err := mutate(a, exists); err != nil {
			return nil, err
		}
		if !exists {
			a.CreatedAt = now
		}
		a.UpdatedAt = now

		err = s.repo.Attendance.Save(ctx, a)
		if err == nil {
			return a, nil
		}
		if !pkgerrors.IsConflict(err) {
			s.logger.Error("保存考勤记录失败", zap.String("op", op), zap.String("username", username), zap.Error(err))
			return nil, newStorageError(op, err)
		}

		lastErr = err
		s.logger.Warn("考勤写入冲突，重新读取后合并",
			zap.String("op", op),
			zap.String("username", username),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	s.logger.Error("考勤写入冲突重试次数耗尽",
		zap.String("op", op),
		zap.String("username", username),
		zap.Int("max_retries", s.maxRetries),
	)
	return nil, newStorageError(op, lastErr)
}

// applyWorkingHours 按签到/签退时间重新计算工时；签退早于签到时按 0 计并在备注中标记，
// 时间更正后标记随之移除
func applyWorkingHours(a *model.Attendance) {
	hours, negative := numeric.HoursBetween(*a.CheckInTime, *a.CheckOutTime)
	notes := strings.TrimSpace(strings.ReplaceAll(a.Notes, negativeHoursNote, ""))
	if negative {
		hours = decimal.Zero
		notes = withNegativeHoursNote(notes)
	}
	a.Notes = notes
	a.WorkingHours = &hours
}

// withNegativeHoursNote 追加工时标记，必要时截断原备注以保证总长不超过备注列长度
func withNegativeHoursNote(notes string) string {
	if notes == "" {
		return negativeHoursNote
	}
	room := model.AttendanceNotesMaxLen - utf8.RuneCountInString(negativeHoursNote) - 1
	if utf8.RuneCountInString(notes) > room {
		notes = strings.TrimSpace(string([]rune(notes)[:room]))
	}
	return notes + " " + negativeHoursNote
}

// parseClockOnDay 解析 HH:mm:ss / HH:mm 并落在 day 当天；value 为 nil 或空串返回 nil
func parseClockOnDay(day time.Time, value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	raw := strings.TrimSpace(*value)
	for _, layout := range []string{dto.ClockLayout, "15:04"} {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		at := time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), t.Second(), 0, day.Location())
		return &at, nil
	}
	return nil, fmt.Errorf("时间格式应为 HH:mm:ss 或 HH:mm，实际: %q", raw)
}

// ── 响应转换 ──

func (s *attendanceService) toResponse(a *model.Attendance) *dto.AttendanceResponse {
	loc := s.clock.Now().Location()
	return &dto.AttendanceResponse{
		ID:             a.AttendanceID,
		Username:       a.Username,
		AttendanceDate: a.AttendanceDate.Format(dto.DateLayout),
		CheckInTime:    dto.FormatClock(a.CheckInTime, loc),
		CheckOutTime:   dto.FormatClock(a.CheckOutTime, loc),
		Status:         a.Status,
		WorkingHours:   dto.FormatAmountPtr(a.WorkingHours),
		Notes:          a.Notes,
		CreatedAt:      a.CreatedAt.Format(dto.TimestampLayout),
		UpdatedAt:      a.UpdatedAt.Format(dto.TimestampLayout),
	}
}

func (s *attendanceService) toResponses(list []model.Attendance) []dto.AttendanceResponse {
	result := make([]dto.AttendanceResponse, 0, len(list))
	for i := range list {
		result = append(result, *s.toResponse(&list[i]))
	}
	return result
}
