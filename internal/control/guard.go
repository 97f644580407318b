package control

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jgivc/proxyctl/internal/common"
)

// Rank fixes the global acquisition order. A goroutine holding a guard may only
// acquire guards of a strictly higher rank.
type Rank int

const (
	RankSettings Rank = iota + 1
	RankProcess
	RankState
	RankDownloadStatus
	RankUpdateStatus
)

func (r Rank) String() string {
	switch r {
	case RankSettings:
		return "settings"
	case RankProcess:
		return "process"
	case RankState:
		return "state"
	case RankDownloadStatus:
		return "download_status"
	case RankUpdateStatus:
		return "update_status"
	default:
		return fmt.Sprintf("rank(%d)", int(r))
	}
}

// Lease is proof of the highest-ranked guard currently held. Nested acquisitions must
// pass the lease received by the enclosing critical section; top-level calls pass nil.
//
// The order check only sees the lease it is given. A nil lease passed from inside a
// critical section reads as "nothing held", so an out-of-order or re-entrant
// acquisition made that way is not reported and may deadlock. The same applies to
// the Runtime accessors that take no lease (Dirty, HomeDir, SettingsSnapshot and the
// status getters): call them only while holding no guard.
type Lease struct {
	held Rank
}

// Held returns the rank of the innermost guard, or zero for a nil lease.
func (l *Lease) Held() Rank {
	if l == nil {
		return 0
	}

	return l.held
}

// Guard is a shared handle to one aggregate. Copies of the pointer share the lock
// and the data.
type Guard[T any] struct {
	rank     Rank
	mu       sync.RWMutex
	poisoned atomic.Bool
	val      T
}

func NewGuard[T any](rank Rank, val T) *Guard[T] {
	return &Guard[T]{rank: rank, val: val}
}

func (g *Guard[T]) Rank() Rank {
	return g.rank
}

func (g *Guard[T]) Poisoned() bool {
	return g.poisoned.Load()
}

// Read runs fn under the shared lock. fn must not mutate v.
func (g *Guard[T]) Read(l *Lease, fn func(l *Lease, v *T) error) error {
	if err := g.check(l); err != nil {
		return err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.run(fn)
}

// Write runs fn under the exclusive lock.
func (g *Guard[T]) Write(l *Lease, fn func(l *Lease, v *T) error) error {
	if err := g.check(l); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	return g.run(fn)
}

func (g *Guard[T]) check(l *Lease) error {
	if held := l.Held(); held >= g.rank {
		return fmt.Errorf("cannot acquire %s while holding %s: %w", g.rank, held, common.ErrLockOrder)
	}
	if g.poisoned.Load() {
		return fmt.Errorf("cannot acquire %s: %w", g.rank, common.ErrLockPoisoned)
	}

	return nil
}

// run poisons the guard if fn panics; the panic is returned as an error.
func (g *Guard[T]) run(fn func(l *Lease, v *T) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			g.poisoned.Store(true)
			err = fmt.Errorf("panic while holding %s: %v: %w", g.rank, r, common.ErrLockPoisoned)
		}
	}()

	if g.poisoned.Load() {
		return fmt.Errorf("cannot acquire %s: %w", g.rank, common.ErrLockPoisoned)
	}

	return fn(&Lease{held: g.rank}, &g.val)
}
