package arena

import (
	"sync"
	"weak"
)

const (
	defaultScratchSize = 1024 * 1024 // 1MB
	minScratchSize     = 4 * 1024
	scratchSizeWindow  = 50
)

// ScratchPool hands out linear arenas so that each worker owns one for the duration of a
// unit of work, then resets and recycles it. It is safe for concurrent use; the arenas it
// hands out are not.
//
// Idle arenas are held through weak pointers: the GC can reclaim them at any time, which
// lets the pool size itself to the current memory pressure. New arenas are sized from the
// average peak usage recorded for the key they were acquired with.
type ScratchPool struct {
	pool  []weak.Pointer[ScratchItem]
	sizes map[uint64]*scratchSize
	opts  []Option
	mu    sync.Mutex
}

// scratchSize tracks the peak usage across the last scratchSizeWindow arenas of a key
type scratchSize struct {
	count      int
	totalBytes int
}

// ScratchItem wraps a Linear arena lent out by a ScratchPool.
type ScratchItem struct {
	Arena *Linear
	Key   uint64
}

// NewScratchPool creates an empty pool. opts are applied to every arena it creates.
func NewScratchPool(opts ...Option) *ScratchPool {
	return &ScratchPool{
		sizes: make(map[uint64]*scratchSize),
		opts:  opts,
	}
}

// Acquire gets an arena from the pool or creates a new one if none large enough is available.
// The key identifies the use case so that arena sizes can be tuned per use case.
func (p *ScratchPool) Acquire(key uint64) (*ScratchItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	want := p.arenaSize(key)
	for len(p.pool) > 0 {
		lastIdx := len(p.pool) - 1
		wp := p.pool[lastIdx]
		p.pool = p.pool[:lastIdx]

		// nil means the GC already claimed it; too small ones are left for the GC
		if v := wp.Value(); v != nil && v.Arena.Size() >= want {
			v.Key = key
			return v, nil
		}
	}

	linear, err := NewLinear(make([]byte, want), p.opts...)
	if err != nil {
		return nil, err
	}
	return &ScratchItem{
		Arena: linear,
		Key:   key,
	}, nil
}

// Release resets item's arena and returns it to the pool.
// The arena's peak usage is recorded to size future arenas for the same key.
func (p *ScratchPool) Release(item *ScratchItem) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.recycle(item)
}

// ReleaseMany is Release for a batch of items under a single lock.
func (p *ScratchPool) ReleaseMany(items []*ScratchItem) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, item := range items {
		p.recycle(item)
	}
}

func (p *ScratchPool) recycle(item *ScratchItem) {
	peak := item.Arena.Peak()
	item.Arena.Reset()

	if size, ok := p.sizes[item.Key]; ok {
		if size.count == scratchSizeWindow {
			size.count = 1
			size.totalBytes = size.totalBytes / scratchSizeWindow
		}
		size.count++
		size.totalBytes += peak
	} else {
		p.sizes[item.Key] = &scratchSize{
			count:      1,
			totalBytes: peak,
		}
	}

	item.Key = 0
	p.pool = append(p.pool, weak.Make(item))
}

// arenaSize returns the arena size to create for a key, rounded up to whole pages.
// Keys without history get defaultScratchSize.
func (p *ScratchPool) arenaSize(key uint64) int {
	size, ok := p.sizes[key]
	if !ok {
		return defaultScratchSize
	}
	avg := size.totalBytes / size.count
	if avg < minScratchSize {
		return minScratchSize
	}
	return int(AlignUp(uintptr(avg), minScratchSize))
}
