package audit

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ceyewan/anchor/clog"
	"github.com/ceyewan/anchor/correlation"
	"github.com/ceyewan/anchor/metrics"
	"github.com/ceyewan/anchor/xerrors"
)

// recorder Recorder 接口实现（非导出）
type recorder struct {
	sink   Sink
	cfg    *Config
	logger clog.Logger

	mu      sync.Mutex
	queue   []Entry
	closed  bool
	stopCh  chan struct{}
	drained sync.WaitGroup

	recorded metrics.Counter
	dropped  metrics.Counter
	flushed  metrics.Counter
}

func newRecorder(sink Sink, cfg *Config, logger clog.Logger, meter metrics.Meter) *recorder {
	r := &recorder{
		sink:   sink,
		cfg:    cfg,
		logger: logger,
		queue:  make([]Entry, 0, cfg.Capacity),
		stopCh: make(chan struct{}),
	}
	r.recorded, _ = meter.Counter(MetricRecorded, "Audit entries recorded")
	r.dropped, _ = meter.Counter(MetricDropped, "Audit entries dropped on full queue")
	r.flushed, _ = meter.Counter(MetricFlushed, "Audit entries flushed to sink")

	r.drained.Add(1)
	go r.drainLoop()
	return r
}

// Record 非阻塞入队一条审计事件
func (r *recorder) Record(ctx context.Context, kind string, fields map[string]string) error {
	if kind == "" {
		return ErrKindEmpty
	}

	entry := Entry{
		ID:            uuid.NewString(),
		Kind:          kind,
		CorrelationID: correlation.ID(ctx),
		At:            time.Now(),
		Fields:        fields,
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRecorderClosed
	}
	if len(r.queue) >= r.cfg.Capacity {
		r.mu.Unlock()
		r.dropped.Inc(ctx, metrics.L(LabelKind, kind))
		r.logger.WarnContext(ctx, "audit queue full, dropping entry",
			clog.String("kind", kind))
		return ErrQueueFull
	}
	r.queue = append(r.queue, entry)
	r.mu.Unlock()

	r.recorded.Inc(ctx, metrics.L(LabelKind, kind))
	return nil
}

// drainLoop 周期性把队列排空到 Sink
func (r *recorder) drainLoop() {
	defer r.drained.Done()

	ticker := time.NewTicker(r.cfg.DrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := r.drainBatch(context.Background()); err != nil {
				r.logger.Warn("audit drain failed, batch retained", clog.Error(err))
			}
		case <-r.stopCh:
			return
		}
	}
}

// drainBatch 取一批事件写入 Sink，失败时放回队首
func (r *recorder) drainBatch(ctx context.Context) error {
	r.mu.Lock()
	if len(r.queue) == 0 {
		r.mu.Unlock()
		return nil
	}
	n := len(r.queue)
	if n > r.cfg.BatchSize {
		n = r.cfg.BatchSize
	}
	batch := make([]Entry, n)
	copy(batch, r.queue[:n])
	r.queue = r.queue[n:]
	r.mu.Unlock()

	if err := r.sink.Write(ctx, batch); err != nil {
		r.mu.Lock()
		r.queue = append(batch, r.queue...)
		r.mu.Unlock()
		return xerrors.Wrap(err, "audit: sink write")
	}

	r.flushed.Add(ctx, float64(len(batch)))
	return nil
}

// Flush 同步排空队列到 Sink
func (r *recorder) Flush(ctx context.Context) error {
	for {
		r.mu.Lock()
		remaining := len(r.queue)
		r.mu.Unlock()
		if remaining == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.drainBatch(ctx); err != nil {
			return err
		}
	}
}

// Restore 读取兜底文件并重新入队
func (r *recorder) Restore(ctx context.Context) error {
	data, err := os.ReadFile(r.cfg.BufferPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return xerrors.Wrap(err, "audit: read spill file")
	}

	var entries []Entry
	if err := msgpack.Unmarshal(data, &entries); err != nil {
		return xerrors.Wrap(err, "audit: decode spill file")
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRecorderClosed
	}
	// 残留事件排在本次启动的新事件之前
	r.queue = append(entries, r.queue...)
	r.mu.Unlock()

	if err := os.Remove(r.cfg.BufferPath); err != nil {
		return xerrors.Wrap(err, "audit: remove spill file")
	}

	r.logger.InfoContext(ctx, "restored spilled audit entries",
		clog.Int("count", len(entries)),
		clog.String("path", r.cfg.BufferPath))
	return nil
}

// Close 停止后台排空并把未排空的事件写入兜底文件（幂等）
func (r *recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	close(r.stopCh)
	r.drained.Wait()

	// 最后一次机会直接交给 Sink
	flushCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for {
		if err := r.drainBatch(flushCtx); err != nil {
			break
		}
		r.mu.Lock()
		empty := len(r.queue) == 0
		r.mu.Unlock()
		if empty {
			return nil
		}
		if flushCtx.Err() != nil {
			break
		}
	}

	// Sink 不可用，落盘兜底
	r.mu.Lock()
	pending := make([]Entry, len(r.queue))
	copy(pending, r.queue)
	r.queue = nil
	r.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	data, err := msgpack.Marshal(pending)
	if err != nil {
		return xerrors.Wrap(err, "audit: encode spill file")
	}
	if err := os.WriteFile(r.cfg.BufferPath, data, 0o600); err != nil {
		return xerrors.Wrap(err, "audit: write spill file")
	}

	r.logger.Warn("spilled undrained audit entries to disk",
		clog.Int("count", len(pending)),
		clog.String("path", r.cfg.BufferPath))
	return nil
}
