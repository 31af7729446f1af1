package tempstore

import (
	"io"
	"os"

	"github.com/docker/go-units"
	"github.com/ngaut/log"
	"github.com/pingcap-incubator/tempstore/kv/util"
	"github.com/pingcap/errors"
	"github.com/shirou/gopsutil/disk"
)

const spillFilePrefix = "tempstore-"

// Ledger is an append-only byte store. Bytes are always appended at the end and read back by range. It lives
// in memory until appending would grow it past the spill threshold, then moves to a temp file in dir; callers
// can't tell the difference. Once spilled it stays on disk, Reset reuses the file and Close removes it.
//
// Ledger is not safe for concurrent use.
type Ledger struct {
	dir       string
	threshold uint64

	mem  []byte
	file *os.File
	// size is the write cursor. Bytes past it, in mem's capacity or in the file, are garbage.
	size   uint64
	closed bool
}

func NewLedger(dir string, threshold uint64) *Ledger {
	return &Ledger{dir: dir, threshold: threshold}
}

// Append writes data at the end of the ledger and returns the range it occupies.
func (l *Ledger) Append(data []byte) (start, end uint64, err error) {
	if l.closed {
		return 0, 0, ErrUseAfterClose
	}
	start = l.size
	end = start + uint64(len(data))
	if l.file == nil && end > l.threshold {
		if err = l.spill(end); err != nil {
			return 0, 0, err
		}
	}
	if l.file != nil {
		if _, err = l.file.WriteAt(data, int64(start)); err != nil {
			return 0, 0, errors.WithStack(err)
		}
	} else {
		l.mem = append(l.mem[:start], data...)
	}
	l.size = end
	return start, end, nil
}

// Read returns a copy of the bytes in [start, end).
func (l *Ledger) Read(start, end uint64) ([]byte, error) {
	if l.closed {
		return nil, ErrUseAfterClose
	}
	if start > end {
		return nil, errors.Errorf("invalid ledger range [%d, %d)", start, end)
	}
	if end > l.size {
		return nil, l.corrupted(start, end, 0, "range beyond ledger end")
	}
	buf := make([]byte, end-start)
	var n int
	if l.file != nil {
		var err error
		n, err = l.file.ReadAt(buf, int64(start))
		if err != nil && err != io.EOF {
			return nil, errors.WithStack(err)
		}
	} else if start <= uint64(len(l.mem)) {
		n = copy(buf, l.mem[start:])
	}
	if n != len(buf) {
		return nil, l.corrupted(start, end, n, "short read")
	}
	return buf, nil
}

func (l *Ledger) corrupted(start, end uint64, got int, reason string) error {
	corruptionCounter.Inc()
	log.Errorf("staging ledger %s: %s, range [%d, %d), got %d bytes, ledger size %d",
		l.where(), reason, start, end, got, l.size)
	return &ErrStorageCorruption{Start: start, End: end, Got: got, Reason: reason}
}

// Reset rewinds the write cursor. The memory or file backing the ledger is kept for the next transaction.
func (l *Ledger) Reset() error {
	if l.closed {
		return ErrUseAfterClose
	}
	l.size = 0
	if l.mem != nil {
		l.mem = l.mem[:0]
	}
	return nil
}

// Close releases the backing memory and removes the spill file.
func (l *Ledger) Close() error {
	if l.closed {
		return ErrUseAfterClose
	}
	l.closed = true
	l.mem = nil
	l.size = 0
	if l.file == nil {
		return nil
	}
	name := l.file.Name()
	err := l.file.Close()
	l.file = nil
	if _, rmErr := util.DeleteFileIfExists(name); rmErr != nil && err == nil {
		err = rmErr
	}
	if err != nil {
		return errors.WithStack(err)
	}
	log.Debugf("staging ledger %s removed", name)
	return nil
}

// Size returns the number of bytes appended since the last reset, orphaned ones included.
func (l *Ledger) Size() uint64 {
	return l.size
}

// Spilled reports whether the ledger lives in a temp file.
func (l *Ledger) Spilled() bool {
	return l.file != nil
}

// Path returns the spill file, or "" while the ledger is in memory.
func (l *Ledger) Path() string {
	if l.file == nil {
		return ""
	}
	return l.file.Name()
}

func (l *Ledger) where() string {
	if l.file != nil {
		return l.file.Name()
	}
	return "(memory)"
}

func (l *Ledger) spill(need uint64) error {
	f, err := util.CreateTempFile(l.dir, spillFilePrefix)
	if err != nil {
		return err
	}
	if _, err = f.WriteAt(l.mem[:l.size], 0); err != nil {
		f.Close()
		util.DeleteFileIfExists(f.Name())
		return errors.WithStack(err)
	}
	spillCounter.Inc()
	log.Infof("staging ledger spilled to %s, size %s, threshold %s",
		f.Name(), units.BytesSize(float64(l.size)), units.BytesSize(float64(l.threshold)))
	checkSpillSpace(l.dir, need)
	l.file = f
	l.mem = nil
	return nil
}

// checkSpillSpace warns when the spill dir is about to run out of room. Spilling goes ahead regardless and
// a failed write is reported by Append.
func checkSpillSpace(dir string, need uint64) {
	stat, err := disk.Usage(dir)
	if err != nil {
		log.Warnf("stat spill dir %s failed: %v", dir, err)
		return
	}
	if stat.Free < need {
		log.Warnf("spill dir %s has %s free, staging ledger needs %s",
			dir, units.BytesSize(float64(stat.Free)), units.BytesSize(float64(need)))
	}
}
