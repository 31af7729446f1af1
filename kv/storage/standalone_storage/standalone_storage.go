package standalone_storage

import (
	"context"

	"github.com/Connor1996/badger"
	"github.com/ngaut/log"
	"github.com/pingcap-incubator/tempstore/kv/config"
	"github.com/pingcap-incubator/tempstore/kv/storage"
	"github.com/pingcap-incubator/tempstore/kv/util/engine_util"
	"github.com/pingcap/errors"
)

// StandAloneStorage is a Storage kept in a local badger instance at conf.DBPath.
type StandAloneStorage struct {
	db   *badger.DB
	path string
}

func NewStandAloneStorage(conf *config.Config) (*StandAloneStorage, error) {
	db, err := engine_util.CreateDB(conf.DBPath)
	if err != nil {
		return nil, err
	}
	log.Infof("standalone storage opened at %s", conf.DBPath)
	return &StandAloneStorage{db: db, path: conf.DBPath}, nil
}

func (s *StandAloneStorage) Stop() error {
	if err := s.db.Close(); err != nil {
		return errors.WithStack(err)
	}
	log.Infof("standalone storage at %s closed", s.path)
	return nil
}

func (s *StandAloneStorage) Reader() (storage.StorageReader, error) {
	return &badgerReader{txn: s.db.NewTransaction(false)}, nil
}

func (s *StandAloneStorage) Write(ctx context.Context, batch []storage.Modify) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	wb := new(engine_util.WriteBatch)
	for _, m := range batch {
		switch data := m.Data.(type) {
		case storage.Put:
			wb.SetCF(data.Cf, data.Key, data.Value)
		case storage.Delete:
			wb.DeleteCF(data.Cf, data.Key)
		}
	}
	return wb.WriteToDB(s.db)
}

type badgerReader struct {
	txn *badger.Txn
}

func (r *badgerReader) GetCF(cf string, key []byte) ([]byte, error) {
	val, err := engine_util.GetCFFromTxn(r.txn, cf, key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	return val, err
}

func (r *badgerReader) Close() {
	r.txn.Discard()
}
