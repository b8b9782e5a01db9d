package isignalrepo

import "context"

// ISignalRepository keeps the processed markers of payment references.
type ISignalRepository interface {
	// TryMark atomically marks the reference and reports whether this call
	// set the marker. False means the reference was already marked.
	TryMark(ctx context.Context, reference string) (bool, error)
	// Unmark removes the marker so the reference can be processed again.
	Unmark(ctx context.Context, reference string) error
}
