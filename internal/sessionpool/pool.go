// Package sessionpool balances outbound scrape requests across a set of
// upstream exit proxies, weighting each exit by its recent latency and
// retiring exits that fail repeatedly.
package sessionpool

import (
	"context"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Exit is one upstream proxy the pool may route a scrape request through.
type Exit struct {
	URL      *url.URL
	weight   float64
	capacity int
	latency  int
	inFlight int
	limit    int
	positive int
	negative int
	m        sync.RWMutex
}

func (e *Exit) markPositive() {
	e.m.Lock()
	e.positive++
	e.m.Unlock()
}

func (e *Exit) registerStart() time.Time {
	e.m.Lock()
	e.inFlight++
	e.m.Unlock()
	return time.Now()
}

func (e *Exit) registerFinish(startedAt time.Time) {
	e.m.Lock()
	e.latency = int(time.Since(startedAt).Milliseconds())
	e.inFlight--
	e.m.Unlock()
}

// Pool holds the currently usable exits and round-robins requests across
// them, favouring low-latency exits while an exit's capacity credit lasts.
type Pool struct {
	mu       sync.RWMutex
	exits    []*Exit
	toggle   int32
	requests int
}

// NewPool builds a pool that will spread up to `requests` concurrent
// in-flight requests across whichever exits are currently alive.
func NewPool(requests int) *Pool {
	return &Pool{requests: requests}
}

// Set replaces the exit list wholesale, preserving per-exit counters for
// URLs that were already present (so a re-scrape of the same source list
// doesn't reset an exit's reputation).
func (p *Pool) Set(urls []*url.URL) {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := make([]*Exit, 0, len(urls))
	for _, u := range urls {
		isNew := true
		for _, cur := range p.exits {
			if cur.URL.String() == u.String() {
				next = append(next, cur)
				isNew = false
				break
			}
		}
		if isNew {
			next = append(next, &Exit{URL: u})
		}
	}
	p.exits = next
}

// Len reports how many exits are currently tracked.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.exits)
}

// Next selects the best available exit: alive exits are weighted by inverse
// latency, direction alternates each call so ties don't starve one end of
// the sorted list, and an exit is only offered while its computed capacity
// exceeds its current in-flight count.
func (p *Pool) Next() *Exit {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, e := range p.exits {
		e.m.Lock()
	}
	defer func() {
		for _, e := range p.exits {
			e.m.Unlock()
		}
	}()

	computeCapacity(p.requests, p.exits)
	sortByDirection(p.exits, atomic.AddInt32(&p.toggle, 1))

	for _, e := range p.exits {
		if e.capacity > e.inFlight {
			return e
		}
	}
	return nil
}

// Penalize records a failed request against an exit, evicting it from the
// pool once it has failed at least three times as often as it has
// succeeded (mirroring a 3:1 failure ratio as the retirement threshold).
func (p *Pool) Penalize(e *Exit) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e.m.Lock()
	defer e.m.Unlock()

	e.negative++

	retire := (e.positive == 0 && e.negative >= 3) ||
		(e.positive > 0 && e.negative/e.positive >= 3)

	if retire {
		for i, cur := range p.exits {
			if cur == e {
				p.exits = append(p.exits[:i], p.exits[i+1:]...)
				return
			}
		}
		return
	}

	if e.limit > 0 {
		e.limit--
	} else if e.inFlight > 0 {
		e.limit = e.inFlight - 1
	} else {
		e.limit = 0
	}
}

// Do performs target through whichever exit Next() selects, returning
// ok=false when the pool currently has no usable exit at all.
func (p *Pool) Do(ctx context.Context, fetchFn func(ctx context.Context, exitURL *url.URL) error) (ok bool, err error) {
	e := p.Next()
	if e == nil {
		return false, nil
	}

	startedAt := e.registerStart()
	err = fetchFn(ctx, e.URL)
	e.registerFinish(startedAt)

	if err != nil {
		p.Penalize(e)
	} else {
		e.markPositive()
	}
	return true, err
}

func sortByDirection(exits []*Exit, toggle int32) {
	if toggle%2 == 0 {
		sort.Slice(exits, func(i, j int) bool { return exits[i].weight < exits[j].weight })
	} else {
		sort.Slice(exits, func(i, j int) bool { return exits[i].weight > exits[j].weight })
	}
}

func computeWeight(exits []*Exit) float64 {
	total := 0.0
	for _, e := range exits {
		if e.latency > 0 {
			e.weight = 1.0 / float64(e.latency)
		} else {
			e.weight = 1.0
		}
		total += e.weight
	}
	return total
}

func computeCapacity(requests int, exits []*Exit) {
	total := computeWeight(exits)
	if total == 0 {
		return
	}

	for _, e := range exits {
		pct := e.weight / total
		if e.limit > 0 {
			e.capacity = e.limit
		} else {
			cap := int(pct * float64(requests))
			if cap < 1 {
				cap = 1
			}
			e.capacity = cap
		}
	}
}
