package domain

import "errors"

const MaxDisplayNameLen = 36

var (
	ErrNameEmpty   = errors.New("display name empty")
	ErrNameTooLong = errors.New("display name too long")
)

// DisplayName identifies a participant inside a room. Uniqueness is not
// enforced; two connections may carry the same name.
type DisplayName string

func ValidateDisplayName(name DisplayName) error {
	if len(name) == 0 {
		return ErrNameEmpty
	}
	if len(name) > MaxDisplayNameLen {
		return ErrNameTooLong
	}
	return nil
}
