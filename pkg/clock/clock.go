package clock

import "time"

// Clock 可注入的时间源，业务层不直接调用 time.Now
type Clock interface {
	Now() time.Time
}

type systemClock struct {
	loc *time.Location
}

// System 返回指定时区的系统时钟；loc 为 nil 时使用 time.Local
func System(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time { return time.Now().In(c.loc) }

// Fixed 固定时间的时钟，测试用
type Fixed struct {
	T time.Time
}

func (f *Fixed) Now() time.Time { return f.T }

// Advance 向前拨动时钟
func (f *Fixed) Advance(d time.Duration) { f.T = f.T.Add(d) }

// Today 返回 t 所在时区当天零点
func Today(c Clock) time.Time {
	return DateOf(c.Now())
}

// DateOf 截断到 t 所在时区的当天零点
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
