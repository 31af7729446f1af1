package tempstore

import (
	"github.com/google/btree"
)

// Record locates the staged state of one object in the ledger.
type Record struct {
	Oid   Oid
	Start uint64
	End   uint64
	// PrevTid is the transaction the staged state was based on, ZeroTid for a new object.
	PrevTid Tid
	// Checksum is the farm fingerprint of the state, zero when checksums are disabled.
	Checksum uint32
}

// Len returns the payload length.
func (r *Record) Len() uint64 {
	return r.End - r.Start
}

// offsetItem orders records by ledger offset. Zero-length states can share a Start with their successor, so
// End and Oid break ties.
type offsetItem struct {
	rec *Record
}

func (i offsetItem) Less(than btree.Item) bool {
	a, b := i.rec, than.(offsetItem).rec
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	if a.End != b.End {
		return a.End < b.End
	}
	return a.Oid < b.Oid
}

const indexBtreeDegree = 32

// Index maps each staged oid to its latest record. Besides the map it keeps the live records in a btree
// ordered by ledger offset, so that OrderedEntries is a plain walk.
type Index struct {
	records  map[Oid]*Record
	byOffset *btree.BTree

	maxOid Oid
	hasMax bool
}

func NewIndex() *Index {
	return &Index{
		records:  make(map[Oid]*Record),
		byOffset: btree.New(indexBtreeDegree),
	}
}

// Record inserts rec, replacing any previous record of the same oid. The bytes of the replaced record stay in
// the ledger, unreachable.
func (idx *Index) Record(rec Record) {
	if old, ok := idx.records[rec.Oid]; ok {
		idx.byOffset.Delete(offsetItem{old})
	}
	r := new(Record)
	*r = rec
	idx.records[rec.Oid] = r
	idx.byOffset.ReplaceOrInsert(offsetItem{r})
	if !idx.hasMax || rec.Oid > idx.maxOid {
		idx.maxOid = rec.Oid
		idx.hasMax = true
	}
}

func (idx *Index) Lookup(oid Oid) (Record, error) {
	rec, ok := idx.records[oid]
	if !ok {
		return Record{}, &ErrOidNotFound{Oid: oid}
	}
	return *rec, nil
}

func (idx *Index) Contains(oid Oid) bool {
	_, ok := idx.records[oid]
	return ok
}

func (idx *Index) Len() int {
	return len(idx.records)
}

// MaxOid returns the largest staged oid. ok is false when nothing is staged.
func (idx *Index) MaxOid() (oid Oid, ok bool) {
	return idx.maxOid, idx.hasMax
}

// Clear drops every record. Tree nodes go back to the btree freelist for the next transaction.
func (idx *Index) Clear() {
	for oid := range idx.records {
		delete(idx.records, oid)
	}
	idx.byOffset.Clear(true)
	idx.maxOid = 0
	idx.hasMax = false
}

// OrderedEntries returns the live records in ascending ledger offset. If filter is not nil only records whose
// oid is in filter are returned; their relative order is unchanged.
func (idx *Index) OrderedEntries(filter OidSet) []Record {
	n := idx.Len()
	if filter != nil && len(filter) < n {
		n = len(filter)
	}
	entries := make([]Record, 0, n)
	idx.byOffset.Ascend(func(i btree.Item) bool {
		rec := i.(offsetItem).rec
		if filter == nil || filter.Contains(rec.Oid) {
			entries = append(entries, *rec)
		}
		return true
	})
	return entries
}

// Oids returns the staged oids in ascending order.
func (idx *Index) Oids() []Oid {
	oids := make([]Oid, 0, len(idx.records))
	for oid := range idx.records {
		oids = append(oids, oid)
	}
	sortOids(oids)
	return oids
}
