package tabs

import "errors"

var (
	// ErrTabNotFound is returned when an operation names an unknown tab id.
	ErrTabNotFound = errors.New("tabs: tab not found")

	// ErrLastTab is returned by Close when it would leave the coordinator
	// with zero tabs; §4.7 forbids closing the last tab.
	ErrLastTab = errors.New("tabs: cannot close the last remaining tab")
)
