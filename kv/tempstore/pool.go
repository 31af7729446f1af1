package tempstore

import (
	"sync"

	"github.com/ngaut/log"
	"github.com/pingcap-incubator/tempstore/kv/config"
	"go.uber.org/atomic"
)

// Pool lends out staging buffers so that transactions reuse a buffer, and its spill file, instead of
// allocating a new one each time. A borrowed buffer belongs to the holder of its Handle alone; releasing the
// handle resets the buffer and puts it back.
type Pool struct {
	conf *config.Config

	mu     sync.Mutex
	idle   []*Buffer
	closed bool

	created  *atomic.Int64
	reused   *atomic.Int64
	borrowed *atomic.Int64
}

type PoolStats struct {
	Created  int64
	Reused   int64
	Borrowed int64
	Idle     int
}

func NewPool(conf *config.Config) *Pool {
	return &Pool{
		conf:     conf,
		created:  atomic.NewInt64(0),
		reused:   atomic.NewInt64(0),
		borrowed: atomic.NewInt64(0),
	}
}

// Get borrows a buffer, making a new one if none is idle.
func (p *Pool) Get() (*Handle, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	var buf *Buffer
	if n := len(p.idle); n > 0 {
		buf = p.idle[n-1]
		p.idle[n-1] = nil
		p.idle = p.idle[:n-1]
	}
	poolIdleGauge.Set(float64(len(p.idle)))
	p.mu.Unlock()

	if buf == nil {
		buf = NewBuffer(p.conf)
		p.created.Inc()
	} else {
		p.reused.Inc()
	}
	p.borrowed.Inc()
	return &Handle{pool: p, buf: buf}, nil
}

func (p *Pool) put(buf *Buffer) error {
	if err := buf.Reset(); err != nil {
		log.Warnf("dropping staging buffer that failed to reset: %v", err)
		if !IsUseAfterClose(err) {
			buf.Close()
		}
		return err
	}
	p.mu.Lock()
	if p.closed || len(p.idle) >= p.conf.PoolCapacity {
		p.mu.Unlock()
		return buf.Close()
	}
	p.idle = append(p.idle, buf)
	poolIdleGauge.Set(float64(len(p.idle)))
	p.mu.Unlock()
	return nil
}

// Close closes the idle buffers. Buffers still borrowed are closed when their handles are released.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	idle := p.idle
	p.idle = nil
	p.closed = true
	poolIdleGauge.Set(0)
	p.mu.Unlock()

	var firstErr error
	for _, buf := range idle {
		if err := buf.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	idle := len(p.idle)
	p.mu.Unlock()
	return PoolStats{
		Created:  p.created.Load(),
		Reused:   p.reused.Load(),
		Borrowed: p.borrowed.Load(),
		Idle:     idle,
	}
}

// Handle is the exclusive right to use a borrowed buffer until Release.
type Handle struct {
	pool *Pool
	buf  *Buffer
}

// Buffer returns the borrowed buffer, or nil once the handle is released.
func (h *Handle) Buffer() *Buffer {
	return h.buf
}

// Release resets the buffer and gives it back to the pool. The buffer must not be used afterwards.
func (h *Handle) Release() error {
	if h.buf == nil {
		return ErrHandleReleased
	}
	buf := h.buf
	h.buf = nil
	h.pool.borrowed.Dec()
	return h.pool.put(buf)
}
