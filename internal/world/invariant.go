package world

import (
	"fmt"

	"github.com/annel0/voxel-world/internal/logging"
)

// invariant проверяет условие. В сборке с тегом debugassert нарушение
// приводит к панике, иначе пишется предупреждение и операция пропускается.
func invariant(cond bool, format string, args ...interface{}) bool {
	if cond {
		return true
	}
	msg := fmt.Sprintf(format, args...)
	if debugAssertions {
		panic("нарушен инвариант: " + msg)
	}
	logging.GetWorldLogger().Warn("⚠️ Нарушен инвариант: %s", msg)
	return false
}
