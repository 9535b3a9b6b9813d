package pool

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/engine/logger"
	"go.uber.org/zap"
)

// ViolationKind classifies a misuse of a pool handle.
type ViolationKind uint8

const (
	// ViolationNullHandle is reported when the zero handle is used.
	ViolationNullHandle ViolationKind = iota + 1

	// ViolationOutOfRange is reported when a handle addresses a slot the pool never allocated.
	ViolationOutOfRange

	// ViolationStale is reported when a handle outlived the slot it was issued for.
	ViolationStale

	// ViolationDoubleFree is reported when a free slot is freed again.
	ViolationDoubleFree

	// ViolationTypeMismatch is reported when a handle from one pool is used with another.
	ViolationTypeMismatch
)

func (k ViolationKind) String() string {
	switch k {
	case ViolationNullHandle:
		return "null handle"
	case ViolationOutOfRange:
		return "out of range"
	case ViolationStale:
		return "stale handle"
	case ViolationDoubleFree:
		return "double free"
	case ViolationTypeMismatch:
		return "type mismatch"
	default:
		return "unknown"
	}
}

// Violation describes one contract violation detected by a pool.
type Violation struct {
	Kind   ViolationKind
	Pool   Type
	Handle Handle
	Op     string
}

func (v Violation) Error() string {
	return fmt.Sprintf("pool: %s on %s pool during %s (handle %s)", v.Kind, v.Pool, v.Op, v.Handle)
}

// ViolationHandler receives violations detected by pools.
type ViolationHandler func(Violation)

// LogViolation is the default ViolationHandler; it logs a warning and lets the caller continue with a zero value.
func LogViolation(v Violation) {
	logger.Logger().Warn("pool contract violation",
		zap.String("kind", v.Kind.String()),
		zap.String("pool", v.Pool.String()),
		zap.String("op", v.Op),
		zap.Uint64("handle", uint64(v.Handle)),
	)
}

// PanicViolation is a ViolationHandler that turns violations into panics.
func PanicViolation(v Violation) {
	panic(v)
}
