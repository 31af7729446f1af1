package flush

import (
	"context"
	"time"

	"github.com/ngaut/log"
	"github.com/pingcap-incubator/tempstore/kv/config"
	"github.com/pingcap-incubator/tempstore/kv/storage"
	"github.com/pingcap-incubator/tempstore/kv/tempstore"
	"github.com/pingcap-incubator/tempstore/kv/util/codec"
	"github.com/pingcap-incubator/tempstore/kv/util/engine_util"
	"github.com/pingcap/errors"
)

// FlushStats describes one finished flush.
type FlushStats struct {
	Objects  int
	Bytes    uint64
	Batches  int
	Duration time.Duration
}

// Flusher writes the objects staged in a Buffer to permanent storage once their transaction has a tid.
//
// Every object becomes two keys, both encoded from (oid, tid): the state in CfDefault, and in CfWrite the tid
// the state was based on.
type Flusher struct {
	store     storage.Storage
	batchSize int
	limiter   *byteLimiter
}

func NewFlusher(store storage.Storage, conf *config.Config) *Flusher {
	return &Flusher{
		store:     store,
		batchSize: conf.FlushBatchSize,
		limiter:   newByteLimiter(int(conf.FlushRateLimit)),
	}
}

// Flush writes the objects staged in buf, restricted to filter unless it is nil, under tid. Objects go out in
// ledger order, FlushBatchSize of them per storage write. A failed flush may leave earlier batches written.
func (f *Flusher) Flush(ctx context.Context, buf *tempstore.Buffer, filter tempstore.OidSet, tid tempstore.Tid) (FlushStats, error) {
	var stats FlushStats
	start := time.Now()
	it, err := buf.IterForOids(filter)
	if err != nil {
		return stats, err
	}

	batch := make([]storage.Modify, 0, 2*f.batchSize)
	var batchBytes int
	write := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := waitBytes(ctx, f.limiter, batchBytes); err != nil {
			return errors.Trace(err)
		}
		if err := f.store.Write(ctx, batch); err != nil {
			return errors.Annotatef(err, "flush batch %d of tid %d", stats.Batches, tid)
		}
		stats.Batches++
		stats.Bytes += uint64(batchBytes)
		flushBytesCounter.Add(float64(batchBytes))
		batch = batch[:0]
		batchBytes = 0
		return nil
	}

	for ; it.Valid(); it.Next() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		obj := it.Item()
		key := codec.EncodeObjectKey(uint64(obj.Oid), uint64(tid))
		batch = append(batch,
			storage.Modify{Data: storage.Put{Cf: engine_util.CfDefault, Key: key, Value: obj.State}},
			storage.Modify{Data: storage.Put{Cf: engine_util.CfWrite, Key: key, Value: codec.EncodeTid(uint64(obj.PrevTid))}},
		)
		batchBytes += len(obj.State)
		stats.Objects++
		if len(batch) >= 2*f.batchSize {
			if err := write(); err != nil {
				return stats, err
			}
		}
	}
	if err := it.Err(); err != nil {
		return stats, err
	}
	if err := write(); err != nil {
		return stats, err
	}

	stats.Duration = time.Since(start)
	flushDuration.Observe(stats.Duration.Seconds())
	log.Debugf("flushed %d objects, %d bytes in %d batches for tid %d, takes %v",
		stats.Objects, stats.Bytes, stats.Batches, tid, stats.Duration)
	return stats, nil
}
