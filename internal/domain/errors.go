package domain

import "errors"

// Error kinds. Packages wrap these so the top-level handler can pick an exit code.
var (
	ErrConfig     = errors.New("configuration error")
	ErrFetch      = errors.New("price fetch error")
	ErrStateWrite = errors.New("state write error")
	ErrOutput     = errors.New("output write error")
)
