package tempstore

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"math/rand"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pingcap-incubator/tempstore/kv/config"
	"github.com/pingcap-incubator/tempstore/kv/util"
	"github.com/pingcap-incubator/tempstore/kv/util/typeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bufferMode struct {
	name      string
	threshold uint64
}

// Every buffer test runs once with the ledger in memory and once with it spilled on the first append.
var bufferModes = []bufferMode{
	{name: "memory", threshold: 1 << 30},
	{name: "spilled", threshold: 0},
}

func newTestConfig(t *testing.T, threshold uint64) (*config.Config, func()) {
	dir, err := ioutil.TempDir("", "tempstore")
	require.Nil(t, err)
	conf := config.NewTestConfig()
	conf.TempDir = dir
	conf.SpillThreshold = typeutil.ByteSize(threshold)
	return conf, func() { os.RemoveAll(dir) }
}

func newTestBuffer(t *testing.T, threshold uint64) (*Buffer, func()) {
	conf, clean := newTestConfig(t, threshold)
	buf := NewBuffer(conf)
	return buf, func() {
		if !buf.closed {
			buf.Close()
		}
		clean()
	}
}

func runModes(t *testing.T, f func(t *testing.T, buf *Buffer)) {
	for _, mode := range bufferModes {
		mode := mode
		t.Run(mode.name, func(t *testing.T) {
			buf, clean := newTestBuffer(t, mode.threshold)
			defer clean()
			f(t, buf)
		})
	}
}

func mustStore(t *testing.T, buf *Buffer, oid Oid, state string, prevTid Tid) {
	require.Nil(t, buf.StoreTemp(oid, []byte(state), prevTid))
}

func collect(t *testing.T, buf *Buffer, filter OidSet) []StagedObject {
	var objs []StagedObject
	require.Nil(t, buf.ForEach(filter, func(obj StagedObject) error {
		objs = append(objs, obj)
		return nil
	}))
	return objs
}

func TestStoreAndRead(t *testing.T) {
	runModes(t, func(t *testing.T, buf *Buffer) {
		mustStore(t, buf, 42, "hello", 7)

		state, err := buf.ReadTemp(42)
		require.Nil(t, err)
		assert.Equal(t, []byte("hello"), state)
		assert.Equal(t, 1, buf.Len())
		max, ok := buf.MaxStoredOid()
		assert.True(t, ok)
		assert.Equal(t, Oid(42), max)

		objs := collect(t, buf, nil)
		require.Len(t, objs, 1)
		assert.Equal(t, Tid(7), objs[0].PrevTid)
	})
}

func TestRoundTrip(t *testing.T) {
	runModes(t, func(t *testing.T, buf *Buffer) {
		r := rand.New(rand.NewSource(1))
		expected := make(map[Oid][]byte)
		for i := 0; i < 200; i++ {
			oid := Oid(r.Intn(1 << 20))
			state := make([]byte, r.Intn(512))
			r.Read(state)
			require.Nil(t, buf.StoreTemp(oid, state, Tid(r.Int63())))
			expected[oid] = state
		}
		for oid, state := range expected {
			got, err := buf.ReadTemp(oid)
			require.Nil(t, err)
			assert.True(t, bytes.Equal(state, got), "oid %d", oid)
		}
		assert.Equal(t, len(expected), buf.Len())
	})
}

func TestEmptyState(t *testing.T) {
	runModes(t, func(t *testing.T, buf *Buffer) {
		mustStore(t, buf, 1, "", ZeroTid)
		mustStore(t, buf, 2, "x", ZeroTid)

		state, err := buf.ReadTemp(1)
		require.Nil(t, err)
		assert.Len(t, state, 0)

		objs := collect(t, buf, nil)
		require.Len(t, objs, 2)
		assert.Equal(t, Oid(1), objs[0].Oid)
		assert.Equal(t, Oid(2), objs[1].Oid)
	})
}

func TestOverwrite(t *testing.T) {
	runModes(t, func(t *testing.T, buf *Buffer) {
		mustStore(t, buf, 1, "AAAA", ZeroTid)
		mustStore(t, buf, 2, "BB", ZeroTid)
		mustStore(t, buf, 1, "CCCCCC", ZeroTid)

		state, err := buf.ReadTemp(1)
		require.Nil(t, err)
		assert.Equal(t, "CCCCCC", string(state))
		assert.Equal(t, 2, buf.Len())
		// orphaned bytes are not reclaimed
		assert.Equal(t, uint64(12), buf.LedgerSize())

		expected := []StagedObject{
			{State: []byte("BB"), Oid: 2, PrevTid: 0},
			{State: []byte("CCCCCC"), Oid: 1, PrevTid: 0},
		}
		if diff := cmp.Diff(expected, collect(t, buf, nil)); diff != "" {
			t.Errorf("iteration mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestIterationFollowsLedgerOrder(t *testing.T) {
	runModes(t, func(t *testing.T, buf *Buffer) {
		oids := []Oid{50, 3, 99, 1, 27, 8}
		for _, oid := range oids {
			mustStore(t, buf, oid, fmt.Sprintf("state-%d", oid), Tid(oid+1))
		}

		objs := collect(t, buf, nil)
		require.Len(t, objs, len(oids))
		for i, obj := range objs {
			assert.Equal(t, oids[i], obj.Oid)
			assert.Equal(t, fmt.Sprintf("state-%d", oids[i]), string(obj.State))
			assert.Equal(t, Tid(oids[i]+1), obj.PrevTid)
		}
	})
}

func TestIterationFilter(t *testing.T) {
	runModes(t, func(t *testing.T, buf *Buffer) {
		for _, oid := range []Oid{50, 3, 99, 1, 27, 8} {
			mustStore(t, buf, oid, fmt.Sprintf("state-%d", oid), ZeroTid)
		}

		var got []Oid
		for _, obj := range collect(t, buf, NewOidSet(1, 99, 50, 12345)) {
			got = append(got, obj.Oid)
		}
		assert.Equal(t, []Oid{50, 99, 1}, got)

		assert.Empty(t, collect(t, buf, NewOidSet(12345)))
		assert.Empty(t, collect(t, buf, NewOidSet()))
	})
}

func TestReset(t *testing.T) {
	runModes(t, func(t *testing.T, buf *Buffer) {
		mustStore(t, buf, 1, "AAAA", ZeroTid)
		mustStore(t, buf, 2, "BB", 4)
		require.Nil(t, buf.Reset())

		assert.Equal(t, 0, buf.Len())
		assert.Equal(t, 0, buf.StoredOids().Len())
		assert.False(t, buf.StoredOids().Contains(1))
		_, ok := buf.MaxStoredOid()
		assert.False(t, ok)
		_, err := buf.ReadTemp(1)
		assert.True(t, IsOidNotFound(err))
		assert.Empty(t, collect(t, buf, nil))

		mustStore(t, buf, 3, "fresh", 1)
		state, err := buf.ReadTemp(3)
		require.Nil(t, err)
		assert.Equal(t, "fresh", string(state))
		assert.Equal(t, uint64(5), buf.LedgerSize())
		_, err = buf.ReadTemp(2)
		assert.True(t, IsOidNotFound(err))

		// reset is repeatable
		require.Nil(t, buf.Reset())
		require.Nil(t, buf.Reset())
		assert.Equal(t, 0, buf.Len())
	})
}

func TestResetKeepsSpillFile(t *testing.T) {
	buf, clean := newTestBuffer(t, 0)
	defer clean()

	mustStore(t, buf, 1, "AAAA", ZeroTid)
	path := buf.ledger.Path()
	require.NotEqual(t, "", path)
	require.Nil(t, buf.Reset())
	assert.True(t, buf.Spilled())
	assert.Equal(t, path, buf.ledger.Path())
	require.Nil(t, buf.Close())
	assert.False(t, util.FileExists(path))
}

func TestUseAfterClose(t *testing.T) {
	runModes(t, func(t *testing.T, buf *Buffer) {
		mustStore(t, buf, 1, "AAAA", ZeroTid)
		require.Nil(t, buf.Close())

		assert.Equal(t, ErrUseAfterClose, buf.StoreTemp(2, []byte("x"), ZeroTid))
		_, err := buf.ReadTemp(1)
		assert.Equal(t, ErrUseAfterClose, err)
		_, err = buf.IterForOids(nil)
		assert.Equal(t, ErrUseAfterClose, err)
		assert.True(t, IsUseAfterClose(buf.Reset()))
		assert.True(t, IsUseAfterClose(buf.Close()))
		assert.True(t, IsUseAfterClose(buf.Dump(ioutil.Discard)))
		assert.Equal(t, 0, buf.Len())
	})
}

func TestStoredOids(t *testing.T) {
	runModes(t, func(t *testing.T, buf *Buffer) {
		view := buf.StoredOids()
		assert.Equal(t, 0, view.Len())

		for _, oid := range []Oid{9, 2, 5} {
			mustStore(t, buf, oid, "x", ZeroTid)
		}
		mustStore(t, buf, 2, "yy", ZeroTid)

		assert.Equal(t, 3, view.Len())
		assert.True(t, view.Contains(5))
		assert.False(t, view.Contains(6))
		assert.Equal(t, []Oid{2, 5, 9}, view.Oids())
	})
}

func TestCorruptionDetected(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		buf, clean := newTestBuffer(t, 1<<30)
		defer clean()
		mustStore(t, buf, 1, "hello", ZeroTid)
		buf.ledger.mem = buf.ledger.mem[:2]

		_, err := buf.ReadTemp(1)
		assert.True(t, IsStorageCorruption(err))
	})
	t.Run("spilled", func(t *testing.T) {
		buf, clean := newTestBuffer(t, 0)
		defer clean()
		mustStore(t, buf, 1, "hello", ZeroTid)
		mustStore(t, buf, 2, "world", ZeroTid)
		require.Nil(t, os.Truncate(buf.ledger.Path(), 7))

		state, err := buf.ReadTemp(1)
		require.Nil(t, err)
		assert.Equal(t, "hello", string(state))
		_, err = buf.ReadTemp(2)
		assert.True(t, IsStorageCorruption(err))

		it, err := buf.IterForOids(nil)
		require.Nil(t, err)
		for ; it.Valid(); it.Next() {
		}
		assert.True(t, IsStorageCorruption(it.Err()))
	})
}

func TestChecksumMismatch(t *testing.T) {
	buf, clean := newTestBuffer(t, 0)
	defer clean()

	mustStore(t, buf, 1, "hello", ZeroTid)
	_, err := buf.ledger.file.WriteAt([]byte("j"), 0)
	require.Nil(t, err)

	_, err = buf.ReadTemp(1)
	require.True(t, IsStorageCorruption(err))
	assert.Equal(t, "checksum mismatch", err.(*ErrStorageCorruption).Reason)
}

func TestChecksumDisabled(t *testing.T) {
	conf, clean := newTestConfig(t, 0)
	defer clean()
	conf.VerifyChecksum = false
	buf := NewBuffer(conf)
	defer buf.Close()

	mustStore(t, buf, 1, "hello", ZeroTid)
	_, err := buf.ledger.file.WriteAt([]byte("j"), 0)
	require.Nil(t, err)

	state, err := buf.ReadTemp(1)
	require.Nil(t, err)
	assert.Equal(t, "jello", string(state))
}

func TestStaleIterator(t *testing.T) {
	runModes(t, func(t *testing.T, buf *Buffer) {
		mustStore(t, buf, 1, "a", ZeroTid)
		mustStore(t, buf, 2, "b", ZeroTid)
		mustStore(t, buf, 3, "c", ZeroTid)

		it, err := buf.IterForOids(nil)
		require.Nil(t, err)
		assert.Equal(t, 3, it.Len())
		require.True(t, it.Valid())
		assert.Equal(t, Oid(1), it.Item().Oid)

		mustStore(t, buf, 4, "d", ZeroTid)
		it.Next()
		assert.False(t, it.Valid())
		assert.Equal(t, ErrStaleIterator, it.Err())

		// a new iterator sees the new state
		assert.Len(t, collect(t, buf, nil), 4)

		it, err = buf.IterForOids(nil)
		require.Nil(t, err)
		require.Nil(t, buf.Reset())
		it.Next()
		assert.Equal(t, ErrStaleIterator, it.Err())
	})
}

func TestForEachStopsOnError(t *testing.T) {
	buf, clean := newTestBuffer(t, 1<<30)
	defer clean()
	for oid := Oid(1); oid <= 5; oid++ {
		mustStore(t, buf, oid, "x", ZeroTid)
	}

	stop := fmt.Errorf("stop")
	var seen int
	err := buf.ForEach(nil, func(obj StagedObject) error {
		seen++
		if obj.Oid == 3 {
			return stop
		}
		return nil
	})
	assert.Equal(t, stop, err)
	assert.Equal(t, 3, seen)
}

func TestManySmallObjects(t *testing.T) {
	for _, mode := range []bufferMode{{"memory", 1 << 30}, {"spill midway", 16 * 1024}} {
		t.Run(mode.name, func(t *testing.T) {
			buf, clean := newTestBuffer(t, mode.threshold)
			defer clean()

			r := rand.New(rand.NewSource(5000))
			expected := make(map[Oid]string)
			for _, i := range r.Perm(5000) {
				oid := Oid(i)
				state := strings.Repeat(string('a'+rune(i%26)), i%17+1)
				mustStore(t, buf, oid, state, ZeroTid)
				expected[oid] = state
			}
			// replace every tenth object so the ledger holds orphaned bytes
			for i := 0; i < 5000; i += 10 {
				state := fmt.Sprintf("replacement-%d", i)
				mustStore(t, buf, Oid(i), state, Tid(i))
				expected[Oid(i)] = state
			}
			assert.Equal(t, 5000, buf.Len())

			var lastStart uint64
			for i, rec := range buf.index.OrderedEntries(nil) {
				if i > 0 {
					require.True(t, rec.Start > lastStart)
				}
				lastStart = rec.Start
			}

			var total, want int
			for _, state := range expected {
				want += len(state)
			}
			for _, obj := range collect(t, buf, nil) {
				require.Equal(t, expected[obj.Oid], string(obj.State))
				total += len(obj.State)
			}
			assert.Equal(t, want, total)
			assert.True(t, buf.LedgerSize() > uint64(want))
			if mode.threshold < uint64(want) {
				assert.True(t, buf.Spilled())
			}
		})
	}
}

func TestDump(t *testing.T) {
	runModes(t, func(t *testing.T, buf *Buffer) {
		var out bytes.Buffer
		require.Nil(t, buf.Dump(&out))
		assert.Contains(t, out.String(), "OID")
		assert.Contains(t, out.String(), "0 objects")

		mustStore(t, buf, 42, "hello", 7)
		mustStore(t, buf, 3, "hi", ZeroTid)
		out.Reset()
		require.Nil(t, buf.Dump(&out))
		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 4)
		assert.Equal(t, []string{"3", "2", "0"}, strings.Fields(lines[1]))
		assert.Equal(t, []string{"42", "5", "7"}, strings.Fields(lines[2]))
		assert.Contains(t, lines[3], "2 objects")
		assert.Equal(t, out.String(), buf.String())
	})
}
