package model

// Employee 员工表 — 对应 employees
// 由外部用户管理模块维护，考勤与薪资模块只读
type Employee struct {
	Username          string `gorm:"type:varchar(50);primaryKey"          json:"username"`
	Name              string `gorm:"type:varchar(100);not null;default:''" json:"name"`
	Department        string `gorm:"type:varchar(100);not null;default:''" json:"department"`
	Designation       string `gorm:"type:varchar(100);not null;default:''" json:"designation"`
	BankAccountNumber string `gorm:"type:varchar(50);not null;default:''"  json:"bank_account_number"`
	BaseModel
}

// TableName 指定表名
func (Employee) TableName() string { return "employees" }
