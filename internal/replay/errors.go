package replay

import (
	"errors"
	"fmt"

	"github.com/lowermost/defir/internal/op"
)

// EncodingError reports a placeholder-encoding inconsistency: the
// recorded graph does not match this engine's expectations, which means
// the recorder and replayer are mispaired. The engine panics with this
// error rather than returning it; a malformed input graph is a contract
// violation, not a runtime condition.
type EncodingError struct {
	// Code identifies the inconsistency category.
	Code EncodingErrorCode

	// Decl names the offending declaration, when known.
	Decl string

	// Opcode is the offending opcode, for ErrCodeUnknownOpcode.
	Opcode op.Opcode
}

// EncodingErrorCode categorizes encoding inconsistencies.
type EncodingErrorCode string

const (
	// ErrCodeMissingTag: a declaration carries the reserved call prefix
	// but no opcode tag.
	ErrCodeMissingTag EncodingErrorCode = "MISSING_OPCODE_TAG"

	// ErrCodeUnknownOpcode: the sentinel or an unrecognized opcode
	// reached dispatch.
	ErrCodeUnknownOpcode EncodingErrorCode = "UNKNOWN_OPCODE"
)

// Error implements the error interface.
func (e *EncodingError) Error() string {
	switch e.Code {
	case ErrCodeMissingTag:
		return fmt.Sprintf("%s: declaration %q has the reserved prefix %q but no %q tag",
			e.Code, e.Decl, op.CallPrefix, op.TagKey)
	case ErrCodeUnknownOpcode:
		return fmt.Sprintf("%s: opcode %s (%d) must never be dispatched (declaration %q)",
			e.Code, e.Opcode, int64(e.Opcode), e.Decl)
	default:
		return fmt.Sprintf("%s: declaration %q", e.Code, e.Decl)
	}
}

// IsEncodingError reports whether err (or a wrapped cause) is an
// encoding inconsistency.
func IsEncodingError(err error) bool {
	var ee *EncodingError
	return errors.As(err, &ee)
}
