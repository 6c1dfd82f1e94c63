package cache

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/electwix/db-mapper/internal/logging"
)

// Eviction selects the bounded-size strategy of a shared region.
type Eviction string

const (
	// EvictionLRU drops the least recently used key. The default.
	EvictionLRU Eviction = "lru"
	// EvictionFIFO drops keys in insertion order.
	EvictionFIFO Eviction = "fifo"
	// EvictionNone keeps the region unbounded.
	EvictionNone Eviction = "none"
)

// ParseEviction maps a configuration string to an Eviction. Empty selects
// the LRU default.
func ParseEviction(s string) (Eviction, error) {
	switch Eviction(s) {
	case "":
		return EvictionLRU, nil
	case EvictionLRU, EvictionFIFO, EvictionNone:
		return Eviction(s), nil
	default:
		return "", fmt.Errorf("cache: unknown eviction %q (want lru, fifo, or none)", s)
	}
}

// Options describes a shared cache region.
type Options struct {
	// ID names the region. Required.
	ID string
	// Eviction bounds the region; empty means EvictionLRU.
	Eviction Eviction
	// Capacity is the eviction bound; non-positive means DefaultCapacity.
	Capacity int
	// FlushInterval clears the region periodically when positive.
	FlushInterval time.Duration
	// ReadWrite stores encoded copies so readers get private row slices.
	// Without it, readers of the same key share one slice.
	ReadWrite bool
	// Blocking gates concurrent fetches of the same key.
	Blocking bool
	// BlockingTimeout bounds each wait on a held gate; zero waits
	// indefinitely. Ignored without Blocking.
	BlockingTimeout time.Duration
	// Logger receives hit-ratio debug output; nil keeps counters only.
	Logger *slog.Logger
}

// Build assembles a shared region in the fixed decorator order: blocking
// outermost, then synchronization, hit accounting, copy-on-read encoding,
// scheduled clearing, eviction, and the base store innermost. The order is
// part of the contract: the single mutex sits inside the blocking gates so
// waiters do not serialize unrelated keys, and eviction sits below the
// encoders so it sees every write.
func Build(opts Options) (Cache, error) {
	if opts.ID == "" {
		return nil, fmt.Errorf("cache: a shared region requires an id")
	}
	eviction, err := ParseEviction(string(opts.Eviction))
	if err != nil {
		return nil, err
	}

	var c Cache = NewPerpetual(opts.ID)
	switch eviction {
	case EvictionLRU:
		c = NewLRU(c, opts.Capacity)
	case EvictionFIFO:
		c = NewFIFO(c, opts.Capacity)
	}
	if opts.FlushInterval > 0 {
		c = NewScheduled(c, opts.FlushInterval)
	}
	if opts.ReadWrite {
		c = NewSerialized(c)
	}
	var log logging.Logger
	if opts.Logger != nil {
		log = logging.FromSlog(opts.Logger)
	}
	c = NewLogged(c, log)
	c = NewSynchronized(c)
	if opts.Blocking {
		c = NewBlocking(c, opts.BlockingTimeout)
	}
	return c, nil
}
