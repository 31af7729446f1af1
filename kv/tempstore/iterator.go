package tempstore

// StagedObject is one staged state as produced by an Iterator.
type StagedObject struct {
	State   []byte
	Oid     Oid
	PrevTid Tid
}

// Iterator walks staged objects in ascending ledger offset, so a spilled ledger is read front to back. The
// records to visit are captured on creation and each state is read when the iterator reaches it.
//
//	for it, _ := buf.IterForOids(nil); it.Valid(); it.Next() {
//		obj := it.Item()
//	}
//
// Check Err after the loop. An iterator cannot be rewound.
type Iterator struct {
	buf        *Buffer
	entries    []Record
	generation uint64

	pos  int
	item StagedObject
	err  error
}

func newIterator(buf *Buffer, entries []Record) *Iterator {
	it := &Iterator{
		buf:        buf,
		entries:    entries,
		generation: buf.generation,
		pos:        -1,
	}
	it.Next()
	return it
}

func (it *Iterator) Valid() bool {
	return it.err == nil && it.pos < len(it.entries)
}

func (it *Iterator) Next() {
	if it.err != nil || it.pos >= len(it.entries) {
		return
	}
	it.pos++
	it.item = StagedObject{}
	if it.pos == len(it.entries) {
		return
	}
	if it.buf.generation != it.generation {
		it.err = ErrStaleIterator
		return
	}
	rec := &it.entries[it.pos]
	state, err := it.buf.readRecord(rec)
	if err != nil {
		it.err = err
		return
	}
	it.item = StagedObject{State: state, Oid: rec.Oid, PrevTid: rec.PrevTid}
}

// Item returns the current object. Only meaningful while Valid.
func (it *Iterator) Item() StagedObject {
	return it.item
}

// Err returns the error that stopped the iteration, if any.
func (it *Iterator) Err() error {
	return it.err
}

// Len returns the number of objects the iterator visits when nothing goes wrong.
func (it *Iterator) Len() int {
	return len(it.entries)
}
