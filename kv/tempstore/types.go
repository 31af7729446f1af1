package tempstore

import "sort"

// Oid identifies an object. It is the key under which a state is staged.
type Oid uint64

// Tid identifies a transaction.
type Tid uint64

// ZeroTid is the prevTid of an object that has no committed state yet.
const ZeroTid Tid = 0

// OidSet is a set of object ids, used to restrict an iteration to a subset of the staged objects.
// A nil OidSet means no restriction.
type OidSet map[Oid]struct{}

func NewOidSet(oids ...Oid) OidSet {
	s := make(OidSet, len(oids))
	for _, oid := range oids {
		s[oid] = struct{}{}
	}
	return s
}

func (s OidSet) Add(oid Oid) {
	s[oid] = struct{}{}
}

func (s OidSet) Contains(oid Oid) bool {
	_, ok := s[oid]
	return ok
}

func sortOids(oids []Oid) {
	sort.Slice(oids, func(i, j int) bool { return oids[i] < oids[j] })
}
