package ad2cp

import "errors"

var (
	// ErrNegativeRange indicates a negative from/to/by scan parameter.
	ErrNegativeRange = errors.New("scan range parameters must be non-negative")
	// ErrNoSyncMarker indicates the stream holds no 0xA5 byte at all.
	ErrNoSyncMarker = errors.New("no sync marker found")
	// ErrBadSyncByte indicates a record boundary that does not start with 0xA5.
	ErrBadSyncByte = errors.New("bad sync byte")
	// ErrImpossibleHeaderSize indicates a header size below the fixed prefix.
	ErrImpossibleHeaderSize = errors.New("impossible header size")
	// ErrUnsupportedHeaderSize indicates a header size other than 10 or 12.
	ErrUnsupportedHeaderSize = errors.New("header size must be 10 or 12")
	// ErrTruncatedHeader indicates the stream ended inside a record header.
	ErrTruncatedHeader = errors.New("truncated header")
)
