package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsConflict(t *testing.T) {
	if !IsConflict(fmt.Errorf("insert attendance: %w", ErrDuplicateKey)) {
		t.Error("包装后的 ErrDuplicateKey 应视为冲突")
	}
	if !IsConflict(ErrOptimisticLock) {
		t.Error("ErrOptimisticLock 应视为冲突")
	}
	if IsConflict(errors.New("connection refused")) {
		t.Error("普通错误不应视为冲突")
	}
	if IsConflict(nil) {
		t.Error("nil 不应视为冲突")
	}
}
