package tempstore

import (
	"fmt"

	"github.com/pingcap/errors"
)

// ErrOidNotFound is returned when reading an oid that has no staged state, either because it was never stored
// or because the buffer was reset since.
type ErrOidNotFound struct {
	Oid Oid
}

func (e *ErrOidNotFound) Error() string {
	return fmt.Sprintf("oid %d is not staged", e.Oid)
}

// ErrStorageCorruption is returned when the ledger cannot give back the bytes a record points at. The staged
// data is inconsistent and the transaction must be aborted.
type ErrStorageCorruption struct {
	Start  uint64
	End    uint64
	Got    int
	Reason string
}

func (e *ErrStorageCorruption) Error() string {
	return fmt.Sprintf("staging ledger corrupted: %s, range [%d, %d), got %d bytes", e.Reason, e.Start, e.End, e.Got)
}

var (
	// ErrUseAfterClose is returned by every operation on a closed buffer or ledger.
	ErrUseAfterClose = errors.New("staging buffer is closed")
	// ErrStaleIterator is returned by an iterator whose buffer was modified after the iterator was created.
	ErrStaleIterator = errors.New("staging buffer changed during iteration")
	ErrPoolClosed    = errors.New("staging buffer pool is closed")
	// ErrHandleReleased is returned when a pool handle is released twice.
	ErrHandleReleased = errors.New("staging buffer handle already released")
)

func IsOidNotFound(err error) bool {
	_, ok := errors.Cause(err).(*ErrOidNotFound)
	return ok
}

func IsStorageCorruption(err error) bool {
	_, ok := errors.Cause(err).(*ErrStorageCorruption)
	return ok
}

func IsUseAfterClose(err error) bool {
	return errors.Cause(err) == ErrUseAfterClose
}
