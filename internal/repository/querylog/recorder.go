package querylog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragsearch/internal/domain"
	"github.com/kailas-cloud/ragsearch/internal/metrics"
)

// Defaults.
const (
	DefaultBuffer     = 256
	DefaultMaxEntries = 10000
	writeTimeout      = 2 * time.Second
)

// store is the consumer interface for the query log (ISP).
type store interface {
	StreamAppend(ctx context.Context, stream string, maxLen int64, fields map[string]string) (string, error)
}

// Config tunes the recorder.
type Config struct {
	Buffer     int
	MaxEntries int64
	Mask       func(string) string // applied to the query field
}

type entry struct {
	event  string
	fields map[string]string
}

// Recorder appends interaction events to capped streams from a background worker.
// Record never blocks: when the buffer is full the event is dropped and counted.
type Recorder struct {
	store   store
	cfg     Config
	logger  *zap.Logger
	entries chan entry

	closeOnce sync.Once
	done      chan struct{}
	flushed   chan struct{}
}

// New creates a recorder and starts its worker. Call Close to flush.
func New(s store, cfg Config, logger *zap.Logger) *Recorder {
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultBuffer
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.Mask == nil {
		cfg.Mask = func(s string) string { return s }
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Recorder{
		store:   s,
		cfg:     cfg,
		logger:  logger,
		entries: make(chan entry, cfg.Buffer),
		done:    make(chan struct{}),
		flushed: make(chan struct{}),
	}
	go r.run()
	return r
}

// StreamKey returns the stream an event is written to.
func StreamKey(event string) string {
	return domain.KeyPrefix + "querylog:" + event
}

// Record queues an event. Safe for concurrent use; a no-op after Close.
func (r *Recorder) Record(event string, fields map[string]any) {
	e := entry{event: event, fields: r.encode(fields)}

	select {
	case <-r.done:
		return
	default:
	}

	select {
	case r.entries <- e:
	default:
		metrics.QueryLogDroppedTotal.Inc()
	}
}

// Close stops accepting events and waits for queued ones to be written.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		close(r.done)
	})
	<-r.flushed
}

func (r *Recorder) run() {
	defer close(r.flushed)
	for {
		select {
		case e := <-r.entries:
			r.write(e)
		case <-r.done:
			for {
				select {
				case e := <-r.entries:
					r.write(e)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(e entry) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if _, err := r.store.StreamAppend(ctx, StreamKey(e.event), r.cfg.MaxEntries, e.fields); err != nil {
		r.logger.Warn("Failed to write query log", zap.String("event", e.event), zap.Error(err))
	}
}

// encode flattens fields into stream values. The query is masked and the
// client identity is hashed; raw values never reach the store.
func (r *Recorder) encode(fields map[string]any) map[string]string {
	out := make(map[string]string, len(fields)+2)
	out["id"] = uuid.NewString()
	out["ts"] = strconv.FormatInt(time.Now().UnixMilli(), 10)

	for k, v := range fields {
		switch k {
		case "query":
			out[k] = r.cfg.Mask(fmt.Sprint(v))
		case "client":
			out[k] = hashClient(fmt.Sprint(v))
		default:
			out[k] = stringify(v)
		}
	}
	return out
}

func hashClient(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:8])
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}
