package program

import "errors"

// Every error returned by Process wraps exactly one of the following. On any
// of them the account is left byte-for-byte unchanged.
var (
	ErrIncorrectOwner = errors.New("account is not owned by the program")
	ErrDecode         = errors.New("failed to decode")
	ErrInvalidOption  = errors.New("invalid voting option")
	ErrBufferTooSmall = errors.New("account data too small for tally record")
	ErrOverflow       = errors.New("vote count overflow")
)

// Code returns a short stable name for the failure an error carries, for use
// as a metric label. A nil error is "ok" and unrecognised errors are "error".
func Code(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrIncorrectOwner):
		return "incorrect_owner"
	case errors.Is(err, ErrDecode):
		return "decode_error"
	case errors.Is(err, ErrInvalidOption):
		return "invalid_option"
	case errors.Is(err, ErrBufferTooSmall):
		return "buffer_too_small"
	case errors.Is(err, ErrOverflow):
		return "overflow"
	default:
		return "error"
	}
}
