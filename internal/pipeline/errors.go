package pipeline

// ErrKind classifies terminal failures of a task. The zero value means "no
// error".
type ErrKind uint8

const (
	KindNone ErrKind = iota
	// KindUnsupportedFormat: the input or output extension is not recognized.
	// Detected before any I/O.
	KindUnsupportedFormat
	// KindInvalidPattern: a custom validation pattern failed to compile.
	// Patterns compile before tasks are queued, so a running pipeline never
	// produces this kind itself; it exists for event consumers (history
	// rows, UIs) that classify submission-time pattern failures with the
	// same taxonomy.
	KindInvalidPattern
	// KindIO: read/write/permission failure.
	KindIO
	// KindDecode: malformed encoding or structure in the input.
	KindDecode
)

func (k ErrKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindUnsupportedFormat:
		return "unsupported_format"
	case KindInvalidPattern:
		return "invalid_pattern"
	case KindIO:
		return "io_error"
	case KindDecode:
		return "decode_error"
	default:
		return "unknown"
	}
}
