package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"staff-payroll/backend/internal/dto"
	"staff-payroll/backend/internal/model"
	"staff-payroll/backend/internal/repository"
	"staff-payroll/backend/pkg/clock"
	pkgerrors "staff-payroll/backend/pkg/errors"
)

// ── 测试辅助 ──

var cst = time.FixedZone("CST", 8*3600)

func setupTestAttendanceService(maxRetries int) (AttendanceService, *mockAttendanceRepo, *clock.Fixed) {
	attRepo := newMockAttendanceRepo()
	repo := &repository.Repository{
		Employee:   newMockEmployeeRepo(),
		Attendance: attRepo,
		Salary:     newMockSalaryRepo(),
	}
	clk := &clock.Fixed{T: time.Date(2026, 10, 15, 9, 0, 0, 0, cst)}
	svc := NewAttendanceService(repo, clk, maxRetries, zap.NewNop())
	return svc, attRepo, clk
}

func today() time.Time {
	return time.Date(2026, 10, 15, 0, 0, 0, 0, cst)
}

// ── CheckIn 测试 ──

func TestAttendanceService_CheckIn_CreatesRecord(t *testing.T) {
	svc, attRepo, _ := setupTestAttendanceService(3)

	result, err := svc.CheckIn(context.Background(), "alice")
	if err != nil {
		t.Fatalf("CheckIn 应成功: %v", err)
	}
	if result.Status != model.AttendanceStatusPresent {
		t.Errorf("期望 status=PRESENT，实际=%s", result.Status)
	}
	if result.CheckInTime != "09:00:00" {
		t.Errorf("期望 check_in_time=09:00:00，实际=%s", result.CheckInTime)
	}
	if result.AttendanceDate != "2026-10-15" {
		t.Errorf("期望 attendance_date=2026-10-15，实际=%s", result.AttendanceDate)
	}
	if attRepo.count() != 1 {
		t.Errorf("期望 1 条记录，实际 %d 条", attRepo.count())
	}
}

func TestAttendanceService_CheckIn_Twice(t *testing.T) {
	svc, _, clk := setupTestAttendanceService(3)
	ctx := context.Background()

	if _, err := svc.CheckIn(ctx, "alice"); err != nil {
		t.Fatalf("第一次 CheckIn 应成功: %v", err)
	}
	clk.Advance(10 * time.Minute)

	_, err := svc.CheckIn(ctx, "alice")
	if !errors.Is(err, ErrAlreadyCheckedIn) {
		t.Fatalf("期望 ErrAlreadyCheckedIn，实际: %v", err)
	}
	var already *AlreadyCheckedInError
	if !errors.As(err, &already) {
		t.Fatalf("期望 *AlreadyCheckedInError，实际: %T", err)
	}
	if already.At.Hour() != 9 || already.At.Minute() != 0 {
		t.Errorf("应携带原签到时间 09:00，实际 %v", already.At)
	}
}

func TestAttendanceService_CheckIn_FillsManualRecord(t *testing.T) {
	svc, attRepo, _ := setupTestAttendanceService(3)
	rec := seedAttendance("alice", today(), model.AttendanceStatusAbsent)
	rec.Notes = "预登记"
	attRepo.insert(rec)

	result, err := svc.CheckIn(context.Background(), "alice")
	if err != nil {
		t.Fatalf("已有记录但未签到时 CheckIn 应成功: %v", err)
	}
	if result.Status != model.AttendanceStatusPresent {
		t.Errorf("期望 status=PRESENT，实际=%s", result.Status)
	}
	if result.Notes != "预登记" {
		t.Errorf("备注应保留，实际=%q", result.Notes)
	}
	if attRepo.count() != 1 {
		t.Errorf("期望 1 条记录，实际 %d 条", attRepo.count())
	}
}

func TestAttendanceService_CheckIn_BlankUsername(t *testing.T) {
	svc, _, _ := setupTestAttendanceService(3)

	_, err := svc.CheckIn(context.Background(), "  ")
	if !errors.Is(err, ErrValidation) {
		t.Errorf("期望 ErrValidation，实际: %v", err)
	}
}

// ── CheckOut 测试 ──

func TestAttendanceService_CheckOut_NotCheckedIn(t *testing.T) {
	svc, _, _ := setupTestAttendanceService(3)

	_, err := svc.CheckOut(context.Background(), "alice")
	if !errors.Is(err, ErrNotCheckedIn) {
		t.Errorf("期望 ErrNotCheckedIn，实际: %v", err)
	}
}

func TestAttendanceService_CheckOut_RecordWithoutCheckIn(t *testing.T) {
	svc, attRepo, _ := setupTestAttendanceService(3)
	attRepo.insert(seedAttendance("alice", today(), model.AttendanceStatusLeave))

	_, err := svc.CheckOut(context.Background(), "alice")
	if !errors.Is(err, ErrNotCheckedIn) {
		t.Errorf("期望 ErrNotCheckedIn，实际: %v", err)
	}
}

func TestAttendanceService_CheckOut_WorkingHours(t *testing.T) {
	svc, _, clk := setupTestAttendanceService(3)
	ctx := context.Background()

	if _, err := svc.CheckIn(ctx, "alice"); err != nil {
		t.Fatalf("CheckIn 应成功: %v", err)
	}
	clk.Advance(8*time.Hour + 30*time.Minute)

	result, err := svc.CheckOut(ctx, "alice")
	if err != nil {
		t.Fatalf("CheckOut 应成功: %v", err)
	}
	if result.WorkingHours != "8.50" {
		t.Errorf("期望 working_hours=8.50，实际=%s", result.WorkingHours)
	}
	if result.CheckOutTime != "17:30:00" {
		t.Errorf("期望 check_out_time=17:30:00，实际=%s", result.CheckOutTime)
	}
}

func TestAttendanceService_CheckOut_Twice(t *testing.T) {
	svc, _, clk := setupTestAttendanceService(3)
	ctx := context.Background()

	_, _ = svc.CheckIn(ctx, "alice")
	clk.Advance(time.Hour)
	if _, err := svc.CheckOut(ctx, "alice"); err != nil {
		t.Fatalf("第一次 CheckOut 应成功: %v", err)
	}

	_, err := svc.CheckOut(ctx, "alice")
	if !errors.Is(err, ErrAlreadyCheckedOut) {
		t.Fatalf("期望 ErrAlreadyCheckedOut，实际: %v", err)
	}
	var already *AlreadyCheckedOutError
	if !errors.As(err, &already) || already.At.Hour() != 10 {
		t.Errorf("应携带原签退时间 10:00，实际: %v", err)
	}
}

// ── MarkManual 测试 ──

func TestAttendanceService_MarkManual_Validation(t *testing.T) {
	svc, _, _ := setupTestAttendanceService(3)
	ctx := context.Background()

	cases := []struct {
		name  string
		req   dto.ManualAttendanceRequest
		field string
	}{
		{"缺少员工", dto.ManualAttendanceRequest{Status: "PRESENT"}, "username"},
		{"缺少状态", dto.ManualAttendanceRequest{Username: "alice"}, "status"},
		{"非法状态", dto.ManualAttendanceRequest{Username: "alice", Status: "LATE"}, "status"},
		{"签到时间格式错误", dto.ManualAttendanceRequest{Username: "alice", Status: "PRESENT", CheckInTime: strPtr("9点")}, "check_in_time"},
		{"签退时间格式错误", dto.ManualAttendanceRequest{Username: "alice", Status: "PRESENT", CheckOutTime: strPtr("25:00")}, "check_out_time"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := c.req
			_, err := svc.MarkManual(ctx, &req)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("期望 ValidationError，实际: %v", err)
			}
			if ve.Field != c.field {
				t.Errorf("期望 field=%s，实际=%s", c.field, ve.Field)
			}
		})
	}
}

func TestAttendanceService_MarkManual_CreatesWithHours(t *testing.T) {
	svc, attRepo, _ := setupTestAttendanceService(3)

	result, err := svc.MarkManual(context.Background(), &dto.ManualAttendanceRequest{
		Username:     "alice",
		CheckInTime:  strPtr("09:00"),
		CheckOutTime: strPtr("17:30:00"),
		Status:       model.AttendanceStatusPresent,
		Notes:        strPtr("补录"),
	})
	if err != nil {
		t.Fatalf("MarkManual 应成功: %v", err)
	}
	if result.WorkingHours != "8.50" {
		t.Errorf("期望 working_hours=8.50，实际=%s", result.WorkingHours)
	}
	if result.Notes != "补录" {
		t.Errorf("期望 notes=补录，实际=%q", result.Notes)
	}
	if attRepo.count() != 1 {
		t.Errorf("期望 1 条记录，实际 %d 条", attRepo.count())
	}
}

func TestAttendanceService_MarkManual_MergesFields(t *testing.T) {
	svc, _, _ := setupTestAttendanceService(3)
	ctx := context.Background()

	if _, err := svc.CheckIn(ctx, "alice"); err != nil {
		t.Fatalf("CheckIn 应成功: %v", err)
	}

	// 只传状态与签退时间，签到时间应保留，并据此计算工时
	result, err := svc.MarkManual(ctx, &dto.ManualAttendanceRequest{
		Username:     "alice",
		CheckOutTime: strPtr("13:00"),
		Status:       model.AttendanceStatusHalfDay,
	})
	if err != nil {
		t.Fatalf("MarkManual 应成功: %v", err)
	}
	if result.CheckInTime != "09:00:00" {
		t.Errorf("签到时间应保留 09:00:00，实际=%s", result.CheckInTime)
	}
	if result.Status != model.AttendanceStatusHalfDay {
		t.Errorf("期望 status=HALF_DAY，实际=%s", result.Status)
	}
	if result.WorkingHours != "4.00" {
		t.Errorf("期望 working_hours=4.00，实际=%s", result.WorkingHours)
	}
}

func TestAttendanceService_MarkManual_CheckOutBeforeCheckIn(t *testing.T) {
	svc, _, _ := setupTestAttendanceService(3)

	result, err := svc.MarkManual(context.Background(), &dto.ManualAttendanceRequest{
		Username:     "alice",
		CheckInTime:  strPtr("18:00"),
		CheckOutTime: strPtr("09:00"),
		Status:       model.AttendanceStatusPresent,
	})
	if err != nil {
		t.Fatalf("MarkManual 应成功: %v", err)
	}
	if result.WorkingHours != "0.00" {
		t.Errorf("签退早于签到时工时应为 0.00，实际=%s", result.WorkingHours)
	}
	if !strings.Contains(result.Notes, negativeHoursNote) {
		t.Errorf("备注中应标记异常，实际=%q", result.Notes)
	}
}

func TestAttendanceService_MarkManual_CorrectionClearsNegativeFlag(t *testing.T) {
	svc, _, _ := setupTestAttendanceService(3)
	ctx := context.Background()

	if _, err := svc.MarkManual(ctx, &dto.ManualAttendanceRequest{
		Username:     "alice",
		CheckInTime:  strPtr("18:00"),
		CheckOutTime: strPtr("09:00"),
		Status:       model.AttendanceStatusPresent,
		Notes:        strPtr("外勤"),
	}); err != nil {
		t.Fatalf("MarkManual 应成功: %v", err)
	}

	// 更正签到时间
	result, err := svc.MarkManual(ctx, &dto.ManualAttendanceRequest{
		Username:    "alice",
		CheckInTime: strPtr("08:00"),
		Status:      model.AttendanceStatusPresent,
	})
	if err != nil {
		t.Fatalf("MarkManual 应成功: %v", err)
	}
	if result.WorkingHours != "1.00" {
		t.Errorf("期望工时 1.00，实际=%s", result.WorkingHours)
	}
	if result.Notes != "外勤" {
		t.Errorf("更正后应移除异常标记并保留原备注，实际=%q", result.Notes)
	}
}

func TestAttendanceService_MarkManual_LongNotesKeepFlagWithinLimit(t *testing.T) {
	svc, _, _ := setupTestAttendanceService(3)

	result, err := svc.MarkManual(context.Background(), &dto.ManualAttendanceRequest{
		Username:     "alice",
		CheckInTime:  strPtr("18:00"),
		CheckOutTime: strPtr("09:00"),
		Status:       model.AttendanceStatusPresent,
		Notes:        strPtr(strings.Repeat("备", model.AttendanceNotesMaxLen)),
	})
	if err != nil {
		t.Fatalf("MarkManual 应成功: %v", err)
	}
	if n := utf8.RuneCountInString(result.Notes); n > model.AttendanceNotesMaxLen {
		t.Errorf("备注长度应不超过 %d，实际 %d", model.AttendanceNotesMaxLen, n)
	}
	if !strings.HasSuffix(result.Notes, negativeHoursNote) {
		t.Errorf("截断后仍应保留异常标记，实际=%q", result.Notes)
	}
	if !strings.HasPrefix(result.Notes, "备备备") {
		t.Errorf("应保留原备注前部，实际=%q", result.Notes)
	}
}

func TestAttendanceService_CheckIn_AfterManualCheckOutComputesHours(t *testing.T) {
	svc, _, _ := setupTestAttendanceService(3)
	ctx := context.Background()

	if _, err := svc.MarkManual(ctx, &dto.ManualAttendanceRequest{
		Username:     "alice",
		CheckOutTime: strPtr("17:30"),
		Status:       model.AttendanceStatusLeave,
	}); err != nil {
		t.Fatalf("MarkManual 应成功: %v", err)
	}

	result, err := svc.CheckIn(ctx, "alice")
	if err != nil {
		t.Fatalf("CheckIn 应成功: %v", err)
	}
	if result.CheckInTime != "09:00:00" || result.CheckOutTime != "17:30:00" {
		t.Errorf("期望 09:00:00 / 17:30:00，实际 %s / %s", result.CheckInTime, result.CheckOutTime)
	}
	if result.WorkingHours != "8.50" {
		t.Errorf("签到后应算出工时 8.50，实际=%q", result.WorkingHours)
	}
}

// ── 并发与冲突重试 ──

func TestAttendanceService_CheckIn_RetriesAfterConcurrentInsert(t *testing.T) {
	svc, attRepo, _ := setupTestAttendanceService(3)

	// 第一次保存前，另一请求抢先插入了当天的请假记录
	injected := false
	attRepo.beforeSave = func(a *model.Attendance) {
		if injected {
			return
		}
		injected = true
		rec := seedAttendance("alice", today(), model.AttendanceStatusLeave)
		rec.Notes = "半天假"
		attRepo.insert(rec)
	}

	result, err := svc.CheckIn(context.Background(), "alice")
	if err != nil {
		t.Fatalf("冲突后应重读合并成功: %v", err)
	}
	if result.Status != model.AttendanceStatusPresent || result.CheckInTime != "09:00:00" {
		t.Errorf("合并结果不符: %+v", result)
	}
	if result.Notes != "半天假" {
		t.Errorf("先到的写入字段应保留，实际 notes=%q", result.Notes)
	}
	if attRepo.count() != 1 {
		t.Errorf("期望 1 条记录，实际 %d 条", attRepo.count())
	}
}

func TestAttendanceService_CheckIn_ConcurrentCheckInLosesWithAlreadyCheckedIn(t *testing.T) {
	svc, attRepo, _ := setupTestAttendanceService(3)

	injected := false
	attRepo.beforeSave = func(a *model.Attendance) {
		if injected {
			return
		}
		injected = true
		rec := seedAttendance("alice", today(), model.AttendanceStatusPresent)
		in := time.Date(2026, 10, 15, 8, 59, 0, 0, cst)
		rec.CheckInTime = &in
		attRepo.insert(rec)
	}

	_, err := svc.CheckIn(context.Background(), "alice")
	if !errors.Is(err, ErrAlreadyCheckedIn) {
		t.Errorf("竞争失败的签到应返回 ErrAlreadyCheckedIn，实际: %v", err)
	}
}

func TestAttendanceService_Upsert_RetriesExhausted(t *testing.T) {
	svc, attRepo, _ := setupTestAttendanceService(4)
	attRepo.saveErr = pkgerrors.ErrOptimisticLock

	_, err := svc.CheckIn(context.Background(), "alice")
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("重试耗尽应返回 ErrStorage，实际: %v", err)
	}
	if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("应能解包出最后一次冲突错误，实际: %v", err)
	}
	if attRepo.saveCalls != 4 {
		t.Errorf("期望保存 4 次，实际 %d 次", attRepo.saveCalls)
	}
}

func TestAttendanceService_Upsert_StorageErrorNotRetried(t *testing.T) {
	svc, attRepo, _ := setupTestAttendanceService(4)
	attRepo.saveErr = errStorageDown

	_, err := svc.CheckIn(context.Background(), "alice")
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("期望 ErrStorage，实际: %v", err)
	}
	if attRepo.saveCalls != 1 {
		t.Errorf("非冲突错误不应重试，实际保存 %d 次", attRepo.saveCalls)
	}
}

func TestAttendanceService_ConcurrentWrites_OneRecordPerDay(t *testing.T) {
	svc, attRepo, _ := setupTestAttendanceService(100)
	ctx := context.Background()

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		checkedIn int
		errs      []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = svc.CheckIn(ctx, "alice")
			} else {
				_, err = svc.MarkManual(ctx, &dto.ManualAttendanceRequest{
					Username: "alice",
					Status:   model.AttendanceStatusPresent,
					Notes:    strPtr("补录"),
				})
			}
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && i%2 == 0:
				checkedIn++
			case err == nil:
			case errors.Is(err, ErrAlreadyCheckedIn):
			default:
				errs = append(errs, err)
			}
		}(i)
	}
	wg.Wait()

	if len(errs) > 0 {
		t.Fatalf("出现非预期错误: %v", errs)
	}
	if checkedIn != 1 {
		t.Errorf("期望恰好 1 次签到成功，实际 %d 次", checkedIn)
	}
	if attRepo.count() != 1 {
		t.Errorf("期望 1 条记录，实际 %d 条", attRepo.count())
	}

	rec, _ := attRepo.GetByUserAndDate(ctx, "alice", today())
	if rec.CheckInTime == nil {
		t.Error("手工补录不应覆盖掉签到时间")
	}
}

// ── 查询测试 ──

func TestAttendanceService_GetToday_None(t *testing.T) {
	svc, _, _ := setupTestAttendanceService(3)

	result, err := svc.GetToday(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetToday 不应出错: %v", err)
	}
	if result != nil {
		t.Errorf("无记录时期望 nil，实际 %+v", result)
	}
}

func TestAttendanceService_GetHistory_Order(t *testing.T) {
	svc, attRepo, _ := setupTestAttendanceService(3)
	for _, d := range []int{10, 14, 12} {
		attRepo.insert(seedAttendance("alice", time.Date(2026, 10, d, 0, 0, 0, 0, cst), model.AttendanceStatusPresent))
	}

	list, err := svc.GetHistory(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetHistory 应成功: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("期望 3 条，实际 %d 条", len(list))
	}
	if list[0].AttendanceDate != "2026-10-14" || list[2].AttendanceDate != "2026-10-10" {
		t.Errorf("期望按日期倒序，实际 %s ... %s", list[0].AttendanceDate, list[2].AttendanceDate)
	}

	empty, err := svc.GetHistory(context.Background(), "nobody")
	if err != nil || len(empty) != 0 {
		t.Errorf("无记录时期望空列表，实际 %v, err=%v", empty, err)
	}
}

func TestAttendanceService_GetByMonth(t *testing.T) {
	svc, attRepo, _ := setupTestAttendanceService(3)
	attRepo.insert(seedAttendance("alice", time.Date(2026, 9, 30, 0, 0, 0, 0, cst), model.AttendanceStatusPresent))
	attRepo.insert(seedAttendance("alice", time.Date(2026, 10, 1, 0, 0, 0, 0, cst), model.AttendanceStatusLeave))

	list, err := svc.GetByMonth(context.Background(), "alice", 2026, time.October)
	if err != nil {
		t.Fatalf("GetByMonth 应成功: %v", err)
	}
	if len(list) != 1 || list[0].Status != model.AttendanceStatusLeave {
		t.Errorf("期望只返回 10 月记录，实际 %+v", list)
	}

	if _, err := svc.GetByMonth(context.Background(), "alice", 2026, time.Month(13)); !errors.Is(err, ErrValidation) {
		t.Errorf("非法月份期望 ErrValidation，实际: %v", err)
	}
}

func TestAttendanceService_GetByDate_OrderedByUsername(t *testing.T) {
	svc, attRepo, _ := setupTestAttendanceService(3)
	for _, u := range []string{"sam", "alice", "henry"} {
		attRepo.insert(seedAttendance(u, today(), model.AttendanceStatusPresent))
	}

	list, err := svc.GetByDate(context.Background(), today())
	if err != nil {
		t.Fatalf("GetByDate 应成功: %v", err)
	}
	got := []string{list[0].Username, list[1].Username, list[2].Username}
	if !reflect.DeepEqual(got, []string{"alice", "henry", "sam"}) {
		t.Errorf("期望按员工账号升序，实际 %v", got)
	}
}

func TestAttendanceService_GetStats(t *testing.T) {
	svc, attRepo, _ := setupTestAttendanceService(3)
	statuses := []string{
		model.AttendanceStatusPresent,
		model.AttendanceStatusPresent,
		model.AttendanceStatusAbsent,
		model.AttendanceStatusHalfDay,
		model.AttendanceStatusLeave,
		model.AttendanceStatusPresent,
	}
	for i, st := range statuses {
		attRepo.insert(seedAttendance("alice", time.Date(2026, 10, i+1, 0, 0, 0, 0, cst), st))
	}

	first, err := svc.GetStats(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetStats 应成功: %v", err)
	}
	if first.TotalDays != 6 || first.PresentDays != 3 || first.AbsentDays != 1 || first.HalfDays != 1 || first.LeaveDays != 1 {
		t.Errorf("统计不符: %+v", first)
	}
	if first.AttendancePercentage != "50.00" {
		t.Errorf("期望出勤率 50.00，实际=%s", first.AttendancePercentage)
	}

	second, _ := svc.GetStats(context.Background(), "alice")
	if !reflect.DeepEqual(first, second) {
		t.Errorf("无写入时两次统计应一致: %+v vs %+v", first, second)
	}
}

func TestAttendanceService_GetStats_Empty(t *testing.T) {
	svc, _, _ := setupTestAttendanceService(3)

	stats, err := svc.GetStats(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetStats 应成功: %v", err)
	}
	if stats.TotalDays != 0 || stats.AttendancePercentage != "0.00" {
		t.Errorf("无记录时期望 0 / 0.00，实际 %+v", stats)
	}
}
