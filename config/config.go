package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"db"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Log        LogConfig        `mapstructure:"log"`
	Attendance AttendanceConfig `mapstructure:"attendance"`
	Payroll    PayrollConfig    `mapstructure:"payroll"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port           int        `mapstructure:"port"`
	BaseURL        string     `mapstructure:"base_url"`
	BodyLimitBytes int64      `mapstructure:"body_limit_bytes"`
	CORS           CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置（员工缓存 + 打卡限流）
type RedisConfig struct {
	Addr             string        `mapstructure:"addr"`
	Password         string        `mapstructure:"password"`
	DB               int           `mapstructure:"db"`
	EmployeeCacheTTL time.Duration `mapstructure:"employee_cache_ttl"`
	RateLimit        int           `mapstructure:"rate_limit"`
	RateWindow       time.Duration `mapstructure:"rate_window"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AttendanceConfig 考勤配置
type AttendanceConfig struct {
	Timezone         string `mapstructure:"timezone"`
	MaxUpsertRetries int    `mapstructure:"max_upsert_retries"`
}

// Location 解析考勤时区
func (c *AttendanceConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// PayrollConfig 薪资策略配置，金额与比例均以字符串保存，由 service.NewSalaryPolicy 解析为定点小数
type PayrollConfig struct {
	DesignationSalaries map[string]string `mapstructure:"designation_salaries"`
	DefaultBasicSalary  string            `mapstructure:"default_basic_salary"`
	HRARate             string            `mapstructure:"hra_rate"`
	TravelAllowance     string            `mapstructure:"travel_allowance"`
	MedicalAllowance    string            `mapstructure:"medical_allowance"`
	OvertimeRate        string            `mapstructure:"overtime_rate"`
	PFRate              string            `mapstructure:"pf_rate"`
	TaxAnnualThreshold  string            `mapstructure:"tax_annual_threshold"`
	TaxRate             string            `mapstructure:"tax_rate"`
}

// DefaultPayrollConfig 默认薪资策略
func DefaultPayrollConfig() PayrollConfig {
	return PayrollConfig{
		DesignationSalaries: map[string]string{
			"hr manager":         "60000.00",
			"senior developer":   "55000.00",
			"software developer": "45000.00",
			"accountant":         "40000.00",
			"sales manager":      "50000.00",
			"marketing manager":  "48000.00",
		},
		DefaultBasicSalary: "35000.00",
		HRARate:            "0.40",
		TravelAllowance:    "1600.00",
		MedicalAllowance:   "1250.00",
		OvertimeRate:       "200.00",
		PFRate:             "0.12",
		TaxAnnualThreshold: "500000.00",
		TaxRate:            "0.05",
	}
}

// Load 从 .env、配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	// .env 可选，不存在时忽略
	_ = godotenv.Load()

	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.body_limit_bytes", 1<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "staff_payroll")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Shanghai")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)  // 60分钟
	v.SetDefault("db.conn_max_idle_time", 30) // 30分钟

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.employee_cache_ttl", "5m")
	v.SetDefault("redis.rate_limit", 10)
	v.SetDefault("redis.rate_window", "1m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("attendance.timezone", "Asia/Shanghai")
	v.SetDefault("attendance.max_upsert_retries", 3)

	def := DefaultPayrollConfig()
	v.SetDefault("payroll.designation_salaries", def.DesignationSalaries)
	v.SetDefault("payroll.default_basic_salary", def.DefaultBasicSalary)
	v.SetDefault("payroll.hra_rate", def.HRARate)
	v.SetDefault("payroll.travel_allowance", def.TravelAllowance)
	v.SetDefault("payroll.medical_allowance", def.MedicalAllowance)
	v.SetDefault("payroll.overtime_rate", def.OvertimeRate)
	v.SetDefault("payroll.pf_rate", def.PFRate)
	v.SetDefault("payroll.tax_annual_threshold", def.TaxAnnualThreshold)
	v.SetDefault("payroll.tax_rate", def.TaxRate)

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("STAFFPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Attendance.MaxUpsertRetries <= 0 {
		return fmt.Errorf("配置校验失败: attendance.max_upsert_retries 必须大于 0")
	}
	if _, err := c.Attendance.Location(); err != nil {
		return fmt.Errorf("配置校验失败: attendance.timezone 无效: %w", err)
	}
	if c.Payroll.DefaultBasicSalary == "" {
		return fmt.Errorf("配置校验失败: payroll.default_basic_salary 不能为空")
	}
	return nil
}
