package outbox_test

import (
	"testing"

	"go.uber.org/goleak"
)

// relay не должен оставлять горутин после отмены контекста
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
