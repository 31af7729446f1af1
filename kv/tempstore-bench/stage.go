package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/ngaut/log"
	"github.com/pingcap-incubator/tempstore/kv/config"
	"github.com/pingcap-incubator/tempstore/kv/flush"
	"github.com/pingcap-incubator/tempstore/kv/storage"
	"github.com/pingcap-incubator/tempstore/kv/storage/standalone_storage"
	"github.com/pingcap-incubator/tempstore/kv/tempstore"
	"github.com/pingcap-incubator/tempstore/kv/util/typeutil"
	"github.com/pingcap/errors"
	"github.com/spf13/cobra"
)

var (
	configPath   string
	objectCount  int
	objectSize   string
	threshold    string
	dbPath       string
	txnCount     int
	dumpAfterRun bool
)

func newStageCommand() *cobra.Command {
	m := &cobra.Command{
		Use:   "stage",
		Short: "Stage objects in a buffer and flush them to storage",
		RunE:  runStageCommandFunc,
	}
	m.Flags().StringVar(&configPath, "config", "", "config file path")
	m.Flags().IntVar(&objectCount, "count", 1000, "objects staged per transaction")
	m.Flags().StringVar(&objectSize, "size", "1KB", "size of each staged state")
	m.Flags().StringVar(&threshold, "threshold", "", "spill threshold, overrides the config")
	m.Flags().StringVar(&dbPath, "db", "", "badger directory to flush to, in memory when empty")
	m.Flags().IntVar(&txnCount, "txns", 1, "number of transactions to run")
	m.Flags().BoolVar(&dumpAfterRun, "dump", false, "print the buffer table before the last flush")
	return m
}

func loadConfig() (*config.Config, error) {
	conf := config.NewDefaultConfig()
	if configPath != "" {
		var err error
		if conf, err = config.LoadFile(configPath); err != nil {
			return nil, err
		}
	}
	if threshold != "" {
		if err := conf.SpillThreshold.UnmarshalText([]byte(threshold)); err != nil {
			return nil, errors.Annotate(err, "--threshold")
		}
	}
	if dbPath != "" {
		conf.DBPath = dbPath
	}
	return conf, conf.Validate()
}

func newStorage(conf *config.Config) (storage.Storage, error) {
	if dbPath == "" {
		return storage.NewMemStorage(), nil
	}
	return standalone_storage.NewStandAloneStorage(conf)
}

func runStageCommandFunc(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig()
	if err != nil {
		return err
	}
	log.SetLevelByString(conf.LogLevel)
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	var size typeutil.ByteSize
	if err := size.UnmarshalText([]byte(objectSize)); err != nil {
		return errors.Annotate(err, "--size")
	}
	tempstore.RegisterMetrics()
	flush.RegisterMetrics()

	store, err := newStorage(conf)
	if err != nil {
		return err
	}
	defer store.Stop()

	pool := tempstore.NewPool(conf)
	defer pool.Close()
	flusher := flush.NewFlusher(store, conf)

	state := make([]byte, int(size))
	latencies := make(stats.Float64Data, 0, objectCount*txnCount)
	var flushed flush.FlushStats
	start := time.Now()
	for txn := 0; txn < txnCount; txn++ {
		h, err := pool.Get()
		if err != nil {
			return err
		}
		buf := h.Buffer()
		for i := 0; i < objectCount; i++ {
			rand.Read(state)
			oid := tempstore.Oid(rand.Int63n(int64(objectCount) * 2))
			begin := time.Now()
			if err := buf.StoreTemp(oid, state, tempstore.Tid(txn)); err != nil {
				h.Release()
				return err
			}
			latencies = append(latencies, float64(time.Since(begin))/float64(time.Microsecond))
		}
		if dumpAfterRun && txn == txnCount-1 {
			if err := buf.Dump(os.Stdout); err != nil {
				h.Release()
				return err
			}
		}
		s, err := flusher.Flush(globalContext, buf, nil, tempstore.Tid(txn+1))
		if err != nil {
			h.Release()
			return err
		}
		flushed.Objects += s.Objects
		flushed.Bytes += s.Bytes
		flushed.Batches += s.Batches
		flushed.Duration += s.Duration
		if err := h.Release(); err != nil {
			return err
		}
	}

	mean, err := stats.Mean(latencies)
	if err != nil {
		return errors.WithStack(err)
	}
	p99, err := stats.Percentile(latencies, 99)
	if err != nil {
		return errors.WithStack(err)
	}
	poolStats := pool.Stats()
	fmt.Printf("Run finished, takes %s\n", time.Since(start))
	fmt.Printf("STORE - Count: %d, Avg(us): %.1f, 99th(us): %.1f\n", len(latencies), mean, p99)
	fmt.Printf("FLUSH - Objects: %d, Bytes: %s, Batches: %d, Takes: %s\n",
		flushed.Objects, typeutil.ByteSize(flushed.Bytes), flushed.Batches, flushed.Duration)
	fmt.Printf("POOL - Created: %d, Reused: %d\n", poolStats.Created, poolStats.Reused)
	return nil
}
