package tempstore

import (
	"github.com/dgryski/go-farm"
	"github.com/ngaut/log"
	"github.com/pingcap-incubator/tempstore/kv/config"
)

// Buffer stages the serialized states of the objects a transaction modifies until the transaction gets its
// final tid and the states can be written out. States are appended to a Ledger and located through an Index.
//
// A Buffer is meant to be reused: Reset it between transactions instead of making a new one. Close releases
// the spill file for good, after which every operation fails with ErrUseAfterClose.
//
// Buffer has no locking of its own; one owner drives it at a time (see Pool).
type Buffer struct {
	ledger *Ledger
	index  *Index

	verifyChecksum bool
	// generation changes on every mutation so iterators can detect they are stale.
	generation uint64
	closed     bool
}

func NewBuffer(conf *config.Config) *Buffer {
	return &Buffer{
		ledger:         NewLedger(conf.SpillDir(), uint64(conf.SpillThreshold)),
		index:          NewIndex(),
		verifyChecksum: conf.VerifyChecksum,
	}
}

// StoreTemp stages state for oid. Storing the same oid again replaces the earlier state.
func (b *Buffer) StoreTemp(oid Oid, state []byte, prevTid Tid) error {
	if b.closed {
		return ErrUseAfterClose
	}
	start, end, err := b.ledger.Append(state)
	if err != nil {
		return err
	}
	rec := Record{Oid: oid, Start: start, End: end, PrevTid: prevTid}
	if b.verifyChecksum {
		rec.Checksum = farm.Fingerprint32(state)
	}
	b.index.Record(rec)
	b.generation++
	stagedObjectsCounter.Inc()
	stagedBytesCounter.Add(float64(len(state)))
	return nil
}

// ReadTemp returns the state staged for oid.
func (b *Buffer) ReadTemp(oid Oid) ([]byte, error) {
	if b.closed {
		return nil, ErrUseAfterClose
	}
	rec, err := b.index.Lookup(oid)
	if err != nil {
		return nil, err
	}
	return b.readRecord(&rec)
}

func (b *Buffer) readRecord(rec *Record) ([]byte, error) {
	state, err := b.ledger.Read(rec.Start, rec.End)
	if err != nil {
		return nil, err
	}
	if b.verifyChecksum && farm.Fingerprint32(state) != rec.Checksum {
		corruptionCounter.Inc()
		log.Errorf("staged state of oid %d fails checksum, range [%d, %d)", rec.Oid, rec.Start, rec.End)
		return nil, &ErrStorageCorruption{Start: rec.Start, End: rec.End, Got: len(state), Reason: "checksum mismatch"}
	}
	return state, nil
}

// Len returns the number of distinct oids staged.
func (b *Buffer) Len() int {
	if b.closed {
		return 0
	}
	return b.index.Len()
}

// StoredOids returns a read-only view of the staged oids. The view follows later changes to the buffer.
func (b *Buffer) StoredOids() OidView {
	return OidView{index: b.index}
}

// MaxStoredOid returns the largest staged oid. ok is false when nothing is staged.
func (b *Buffer) MaxStoredOid() (oid Oid, ok bool) {
	return b.index.MaxOid()
}

// Reset discards everything staged and makes the buffer ready for the next transaction.
func (b *Buffer) Reset() error {
	if b.closed {
		return ErrUseAfterClose
	}
	b.index.Clear()
	b.generation++
	return b.ledger.Reset()
}

// Close discards everything staged and releases the ledger.
func (b *Buffer) Close() error {
	if b.closed {
		return ErrUseAfterClose
	}
	b.closed = true
	b.generation++
	b.index.Clear()
	return b.ledger.Close()
}

// IterForOids returns an iterator over the staged objects in ledger order, restricted to filter unless it is
// nil. The order is fixed when the iterator is created; modifying the buffer afterwards invalidates it.
func (b *Buffer) IterForOids(filter OidSet) (*Iterator, error) {
	if b.closed {
		return nil, ErrUseAfterClose
	}
	return newIterator(b, b.index.OrderedEntries(filter)), nil
}

// ForEach calls fn for every staged object in ledger order, restricted to filter unless it is nil. It stops at
// the first error.
func (b *Buffer) ForEach(filter OidSet, fn func(obj StagedObject) error) error {
	it, err := b.IterForOids(filter)
	if err != nil {
		return err
	}
	for ; it.Valid(); it.Next() {
		if err := fn(it.Item()); err != nil {
			return err
		}
	}
	return it.Err()
}

// LedgerSize returns the number of ledger bytes used by the current transaction, superseded states included.
func (b *Buffer) LedgerSize() uint64 {
	return b.ledger.Size()
}

// Spilled reports whether the buffer's ledger has moved to disk.
func (b *Buffer) Spilled() bool {
	return b.ledger.Spilled()
}

// OidView is a read-only view of the oids staged in a Buffer.
type OidView struct {
	index *Index
}

func (v OidView) Contains(oid Oid) bool {
	return v.index.Contains(oid)
}

func (v OidView) Len() int {
	return v.index.Len()
}

// Oids returns the staged oids in ascending order.
func (v OidView) Oids() []Oid {
	return v.index.Oids()
}
