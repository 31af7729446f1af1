package codec

import (
	"encoding/binary"

	"github.com/pingcap/errors"
)

const (
	oidLen = 8
	tidLen = 8

	// ObjectKeyLen is the length of a key produced by EncodeObjectKey.
	ObjectKeyLen = oidLen + tidLen
)

// EncodeObjectKey encodes an object id and the transaction id a revision of it was committed at.
// Keys are sorted first by oid (ascending), then by tid (descending), so a forward scan from
// EncodeObjectKey(oid, tid) finds the newest revision visible at tid first.
func EncodeObjectKey(oid, tid uint64) []byte {
	key := make([]byte, oidLen, ObjectKeyLen)
	binary.BigEndian.PutUint64(key, oid)
	return AppendTid(key, tid)
}

// AppendTid appends the transaction id to an encoded oid. We invert the tid so that when sorted, they are in
// descending order.
func AppendTid(encodedOid []byte, tid uint64) []byte {
	newKey := append(encodedOid, make([]byte, tidLen)...)
	binary.BigEndian.PutUint64(newKey[len(newKey)-tidLen:], ^tid)
	return newKey
}

// DecodeObjectKey splits a key produced by EncodeObjectKey.
func DecodeObjectKey(key []byte) (oid uint64, tid uint64, err error) {
	if len(key) != ObjectKeyLen {
		return 0, 0, errors.Errorf("invalid object key length %d", len(key))
	}
	oid = binary.BigEndian.Uint64(key[:oidLen])
	tid = ^binary.BigEndian.Uint64(key[oidLen:])
	return oid, tid, nil
}

// EncodeTid encodes a transaction id as a plain big endian value.
func EncodeTid(tid uint64) []byte {
	b := make([]byte, tidLen)
	binary.BigEndian.PutUint64(b, tid)
	return b
}

func DecodeTid(b []byte) (uint64, error) {
	if len(b) != tidLen {
		return 0, errors.New("insufficient bytes to decode tid")
	}
	return binary.BigEndian.Uint64(b), nil
}
