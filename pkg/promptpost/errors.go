package promptpost

import (
	"errors"
	"fmt"
)

// ErrMessageTooLong is wrapped by LengthExceededError.
var ErrMessageTooLong = errors.New("message exceeds maximum length")

// LengthExceededError aborts a build under the error length strategy.
type LengthExceededError struct {
	Index  int
	Length int
	Max    int
}

func (e *LengthExceededError) Error() string {
	return fmt.Sprintf("message %d is %d characters long (max %d)", e.Index, e.Length, e.Max)
}

func (e *LengthExceededError) Unwrap() error {
	return ErrMessageTooLong
}
