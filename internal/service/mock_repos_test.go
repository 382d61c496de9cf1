package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"staff-payroll/backend/internal/dto"
	"staff-payroll/backend/internal/model"
	"staff-payroll/backend/internal/repository"
	pkgerrors "staff-payroll/backend/pkg/errors"
)

// ── Mock EmployeeRepository ──

type mockEmployeeRepo struct {
	mu        sync.Mutex
	employees map[string]*model.Employee
	err       error
}

func newMockEmployeeRepo() *mockEmployeeRepo {
	return &mockEmployeeRepo{employees: map[string]*model.Employee{
		"alice": {
			Username:          "alice",
			Name:              "Alice",
			Department:        "Engineering",
			Designation:       "Software Developer",
			BankAccountNumber: "6222000011110001",
		},
		"henry": {
			Username:          "henry",
			Name:              "Henry",
			Department:        "HR",
			Designation:       "hr manager",
			BankAccountNumber: "6222000011110002",
		},
		"sam": {
			Username:    "sam",
			Name:        "Sam",
			Department:  "Support",
			Designation: "Intern",
		},
	}}
}

func (m *mockEmployeeRepo) GetByUsername(_ context.Context, username string) (*model.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if e, ok := m.employees[username]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEmployeeRepo) remove(username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.employees, username)
}

func (m *mockEmployeeRepo) setBankAccount(username, account string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[username].BankAccountNumber = account
}

// ── 内存版员工缓存 ──

type memoryEmployeeCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryEmployeeCache() *memoryEmployeeCache {
	return &memoryEmployeeCache{data: make(map[string][]byte)}
}

func (c *memoryEmployeeCache) GetJSON(_ context.Context, key string, dst interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *memoryEmployeeCache) SetJSON(_ context.Context, key string, v interface{}, _ time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	return nil
}

// ── Mock AttendanceRepository ──
// 以 (username, date) 模拟唯一约束，以 version 模拟乐观锁

type mockAttendanceRepo struct {
	mu      sync.Mutex
	records map[string]*model.Attendance
	nextID  uint64

	// beforeSave 在 Save 加锁前调用，用于注入并发写
	beforeSave func(a *model.Attendance)
	// saveErr 非 nil 时 Save 直接返回该错误
	saveErr   error
	saveCalls int
}

func newMockAttendanceRepo() *mockAttendanceRepo {
	return &mockAttendanceRepo{records: make(map[string]*model.Attendance)}
}

func attendanceKey(username string, date time.Time) string {
	return username + "|" + date.Format(repository.DateLayout)
}

func (m *mockAttendanceRepo) GetByUserAndDate(_ context.Context, username string, date time.Time) (*model.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.records[attendanceKey(username, date)]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) ListByUser(_ context.Context, username string) ([]model.Attendance, error) {
	return m.filter(func(a *model.Attendance) bool { return a.Username == username }, byDateDesc), nil
}

func (m *mockAttendanceRepo) ListByUserAndMonth(_ context.Context, username string, year int, month time.Month) ([]model.Attendance, error) {
	return m.filter(func(a *model.Attendance) bool {
		return a.Username == username && a.AttendanceDate.Year() == year && a.AttendanceDate.Month() == month
	}, byDateDesc), nil
}

func (m *mockAttendanceRepo) ListByDate(_ context.Context, date time.Time) ([]model.Attendance, error) {
	day := date.Format(repository.DateLayout)
	return m.filter(func(a *model.Attendance) bool {
		return a.AttendanceDate.Format(repository.DateLayout) == day
	}, func(list []model.Attendance) func(i, j int) bool {
		return func(i, j int) bool { return list[i].Username < list[j].Username }
	}), nil
}

func (m *mockAttendanceRepo) Save(_ context.Context, a *model.Attendance) error {
	if m.beforeSave != nil {
		m.beforeSave(a)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}

	key := attendanceKey(a.Username, a.AttendanceDate)
	if a.AttendanceID == 0 {
		if _, exists := m.records[key]; exists {
			return pkgerrors.ErrDuplicateKey
		}
		m.nextID++
		a.AttendanceID = m.nextID
		a.Version = 1
		cp := *a
		m.records[key] = &cp
		return nil
	}

	current, ok := m.records[key]
	if !ok || current.AttendanceID != a.AttendanceID || current.Version != a.Version {
		return pkgerrors.ErrOptimisticLock
	}
	a.Version++
	cp := *a
	m.records[key] = &cp
	return nil
}

// insert 绕过 Service 直接写入，模拟另一请求先完成插入
func (m *mockAttendanceRepo) insert(a model.Attendance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a.AttendanceID = m.nextID
	a.Version = 1
	m.records[attendanceKey(a.Username, a.AttendanceDate)] = &a
}

func (m *mockAttendanceRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func byDateDesc(list []model.Attendance) func(i, j int) bool {
	return func(i, j int) bool { return list[i].AttendanceDate.After(list[j].AttendanceDate) }
}

func (m *mockAttendanceRepo) filter(keep func(a *model.Attendance) bool, less func([]model.Attendance) func(i, j int) bool) []model.Attendance {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Attendance
	for _, a := range m.records {
		if keep(a) {
			result = append(result, *a)
		}
	}
	sort.Slice(result, less(result))
	return result
}

// ── Mock SalaryRepository ──
// 以 (username, salary_month) 模拟唯一约束

type mockSalaryRepo struct {
	mu       sync.Mutex
	salaries map[uint64]*model.Salary
	nextID   uint64

	// existsOverride 非 nil 时 ExistsByUserAndMonth 返回该值，用于模拟检查与插入之间的竞争
	existsOverride *bool
}

func newMockSalaryRepo() *mockSalaryRepo {
	return &mockSalaryRepo{salaries: make(map[uint64]*model.Salary)}
}

func (m *mockSalaryRepo) Create(_ context.Context, s *model.Salary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.salaries {
		if existing.Username == s.Username && existing.SalaryMonth == s.SalaryMonth {
			return pkgerrors.ErrDuplicateKey
		}
	}
	m.nextID++
	s.SalaryID = m.nextID
	s.Version = 1
	cp := *s
	m.salaries[s.SalaryID] = &cp
	return nil
}

func (m *mockSalaryRepo) GetByID(_ context.Context, id uint64) (*model.Salary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.salaries[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSalaryRepo) GetByUserAndMonth(_ context.Context, username, month string) (*model.Salary, error) {
	list := m.filter(func(s *model.Salary) bool { return s.Username == username && s.SalaryMonth == month })
	if len(list) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &list[0], nil
}

func (m *mockSalaryRepo) ExistsByUserAndMonth(ctx context.Context, username, month string) (bool, error) {
	if m.existsOverride != nil {
		return *m.existsOverride, nil
	}
	_, err := m.GetByUserAndMonth(ctx, username, month)
	return err == nil, nil
}

func (m *mockSalaryRepo) GetLatestByUser(ctx context.Context, username string) (*model.Salary, error) {
	list, _ := m.ListByUser(ctx, username)
	if len(list) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &list[0], nil
}

func (m *mockSalaryRepo) ListByUser(_ context.Context, username string) ([]model.Salary, error) {
	list := m.filter(func(s *model.Salary) bool { return s.Username == username })
	sort.Slice(list, func(i, j int) bool { return list[i].SalaryMonth > list[j].SalaryMonth })
	return list, nil
}

func (m *mockSalaryRepo) ListByMonth(_ context.Context, month string) ([]model.Salary, error) {
	list := m.filter(func(s *model.Salary) bool { return s.SalaryMonth == month })
	sort.Slice(list, func(i, j int) bool { return list[i].Username < list[j].Username })
	return list, nil
}

func (m *mockSalaryRepo) ListByStatus(_ context.Context, status string) ([]model.Salary, error) {
	list := m.filter(func(s *model.Salary) bool { return s.PaymentStatus == status })
	sort.Slice(list, func(i, j int) bool {
		if list[i].SalaryMonth != list[j].SalaryMonth {
			return list[i].SalaryMonth > list[j].SalaryMonth
		}
		return list[i].Username < list[j].Username
	})
	return list, nil
}

func (m *mockSalaryRepo) UpdateStatus(_ context.Context, s *model.Salary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.salaries[s.SalaryID]
	if !ok || current.Version != s.Version {
		return pkgerrors.ErrOptimisticLock
	}
	current.PaymentStatus = s.PaymentStatus
	current.PaymentDate = s.PaymentDate
	current.UpdatedAt = s.UpdatedAt
	current.Version++
	s.Version = current.Version
	return nil
}

func (m *mockSalaryRepo) filter(keep func(s *model.Salary) bool) []model.Salary {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Salary
	for _, s := range m.salaries {
		if keep(s) {
			result = append(result, *s)
		}
	}
	return result
}

// ── 测试辅助 ──

var errStorageDown = errors.New("connection reset by peer")

func strPtr(s string) *string { return &s }

// seedAttendance 构造某天的考勤记录
func seedAttendance(username string, day time.Time, status string) model.Attendance {
	return model.Attendance{Username: username, AttendanceDate: day, Status: status}
}

// newCalcRequest 构造薪资计算请求
func newCalcRequest(username, month string) *dto.CalculateSalaryRequest {
	return &dto.CalculateSalaryRequest{Username: username, SalaryMonth: month}
}
