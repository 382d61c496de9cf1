package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	pkgerrors "staff-payroll/backend/pkg/errors"
)

// pgUniqueViolation PostgreSQL 唯一约束冲突错误码
const pgUniqueViolation = "23505"

// translateWriteError 将驱动层唯一约束冲突统一转换为 pkgerrors.ErrDuplicateKey
// 未开启 TranslateError 的连接也能识别（直接检查 pgconn 错误码）
func translateWriteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return pkgerrors.ErrDuplicateKey
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pkgerrors.ErrDuplicateKey
	}
	return err
}
