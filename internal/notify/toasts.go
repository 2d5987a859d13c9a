package notify

import (
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultToastTTL is how long a toast stays visible.
const DefaultToastTTL = 5 * time.Second

// Toast is an active notice.
type Toast struct {
	ID     string
	Notice Notice
	Shown  time.Time
	seq    uint64
}

// Toasts keeps notices visible for a fixed lifetime, then drops them.
type Toasts struct {
	cache *cache.Cache
	ttl   time.Duration
	seq   atomic.Uint64
	now   func() time.Time
}

// NewToasts creates a toast area. A non-positive ttl uses DefaultToastTTL.
func NewToasts(ttl time.Duration) *Toasts {
	if ttl <= 0 {
		ttl = DefaultToastTTL
	}
	return &Toasts{
		cache: cache.New(ttl, 2*ttl),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (t *Toasts) Notify(n Notice) {
	seq := t.seq.Add(1)
	toast := Toast{
		ID:     strconv.FormatUint(seq, 10),
		Notice: n,
		Shown:  t.now(),
		seq:    seq,
	}
	t.cache.Set(toast.ID, toast, cache.DefaultExpiration)
}

// Active lists unexpired toasts, newest first.
func (t *Toasts) Active() []Toast {
	items := t.cache.Items()
	out := make([]Toast, 0, len(items))
	for _, item := range items {
		if toast, ok := item.Object.(Toast); ok {
			out = append(out, toast)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq > out[j].seq })
	return out
}

// Dismiss closes a toast before it expires.
func (t *Toasts) Dismiss(id string) {
	t.cache.Delete(id)
}

// TTL returns the toast lifetime.
func (t *Toasts) TTL() time.Duration { return t.ttl }

var _ Sink = (*Toasts)(nil)
