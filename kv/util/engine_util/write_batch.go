package engine_util

import (
	"github.com/Connor1996/badger"
	"github.com/pingcap/errors"
)

type WriteBatch struct {
	entries       []*badger.Entry
	// deletes[i] marks entries[i] as a deletion, so an empty value is still written as a put.
	deletes       []bool
	size          int
	safePoint     int
	safePointSize int
}

const (
	// CfDefault holds object states, keyed by oid and commit tid.
	CfDefault string = "default"
	// CfWrite holds, under the same keys, the tid each committed state was based on.
	CfWrite string = "write"
)

var CFs [2]string = [2]string{CfDefault, CfWrite}

func (wb *WriteBatch) Len() int {
	return len(wb.entries)
}

// Size returns the number of key and value bytes in the batch.
func (wb *WriteBatch) Size() int {
	return wb.size
}

func (wb *WriteBatch) SetCF(cf string, key, val []byte) {
	wb.entries = append(wb.entries, &badger.Entry{
		Key:   KeyWithCF(cf, key),
		Value: val,
	})
	wb.deletes = append(wb.deletes, false)
	wb.size += len(key) + len(val)
}

func (wb *WriteBatch) DeleteCF(cf string, key []byte) {
	wb.entries = append(wb.entries, &badger.Entry{
		Key: KeyWithCF(cf, key),
	})
	wb.deletes = append(wb.deletes, true)
	wb.size += len(key)
}

func (wb *WriteBatch) SetSafePoint() {
	wb.safePoint = len(wb.entries)
	wb.safePointSize = wb.size
}

func (wb *WriteBatch) RollbackToSafePoint() {
	wb.entries = wb.entries[:wb.safePoint]
	wb.deletes = wb.deletes[:wb.safePoint]
	wb.size = wb.safePointSize
}

func (wb *WriteBatch) WriteToDB(db *badger.DB) error {
	if len(wb.entries) > 0 {
		err := db.Update(func(txn *badger.Txn) error {
			for i, entry := range wb.entries {
				var err1 error
				if wb.deletes[i] {
					err1 = txn.Delete(entry.Key)
				} else {
					err1 = txn.SetEntry(entry)
				}
				if err1 != nil {
					return err1
				}
			}
			return nil
		})
		if err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func (wb *WriteBatch) Reset() {
	wb.entries = wb.entries[:0]
	wb.deletes = wb.deletes[:0]
	wb.size = 0
	wb.safePoint = 0
	wb.safePointSize = 0
}
