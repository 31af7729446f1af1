package storage

import "context"

// Storage is the permanent home of committed object states. A flush writes each staged state, under its final
// tid, through Write.
type Storage interface {
	Write(ctx context.Context, batch []Modify) error
	Reader() (StorageReader, error)
	Stop() error
}

type StorageReader interface {
	// GetCF returns nil, nil when the key does not exist.
	GetCF(cf string, key []byte) ([]byte, error)
	Close()
}
