package pe

import "errors"

// Structural failures. Each one aborts Parse; no model is returned.
var (
	ErrFileSize           = errors.New("file size out of bounds")
	ErrDOSSignature       = errors.New("invalid DOS signature")
	ErrHeaderOffset       = errors.New("invalid PE header offset")
	ErrNTSignature        = errors.New("invalid PE signature")
	ErrOptionalHeaderSize = errors.New("missing optional header")
	ErrOptionalMagic      = errors.New("invalid optional header magic")
	ErrTruncated          = errors.New("truncated header")
)

// Address translation failures.
var (
	ErrRVAUnmapped    = errors.New("rva not inside any section")
	ErrRVAVirtualOnly = errors.New("rva not backed by file data")
)

// Section data failures.
var (
	ErrNoSection    = errors.New("no such section")
	ErrSectionRange = errors.New("section raw data outside the file")
)
