package binformat

import "errors"

// Parse/semantic error kinds, per §4.4.5 and §7.
var (
	ErrIoTruncated         = errors.New("binformat: truncated")
	ErrBadMagic            = errors.New("binformat: bad magic")
	ErrUnsupportedVersion  = errors.New("binformat: unsupported version")
	ErrUnknownTag          = errors.New("binformat: unknown tag")
	ErrByteSizeMismatch    = errors.New("binformat: byte size mismatch")
	ErrDuplicateEntry      = errors.New("binformat: duplicate entry")
	ErrInvalidPayload      = errors.New("binformat: invalid payload")
	ErrUnresolvedPatchBase = errors.New("binformat: unresolved patch base")
)
