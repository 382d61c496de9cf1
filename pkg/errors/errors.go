package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrDuplicateKey 唯一约束冲突：同一业务键的记录已存在
var ErrDuplicateKey = errors.New("记录已存在（唯一约束冲突）")

// IsConflict 是否为可通过重读合并解决的写冲突
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateKey) || errors.Is(err, ErrOptimisticLock)
}
