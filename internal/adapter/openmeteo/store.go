package openmeteo

import (
	"container/list"
	"sync"

	"github.com/couchcryptid/region-colorizer/internal/domain"
)

// CacheKey identifies a memoized series. Coordinates compare by exact float
// value, so two centroids that differ in any digit never share an entry.
type CacheKey struct {
	Lat      float64
	Lng      float64
	DayStart string
	DayEnd   string
}

// String renders the key as lat_lng_start_end.
func (k CacheKey) String() string {
	return formatCoord(k.Lat) + "_" + formatCoord(k.Lng) + "_" + k.DayStart + "_" + k.DayEnd
}

// SeriesStore holds memoized series by key. Put reports how many older
// entries it evicted to make room.
type SeriesStore interface {
	Get(key CacheKey) (domain.Series, bool)
	Put(key CacheKey, series domain.Series) (evicted int)
	Len() int
}

// NewSeriesStore returns an unbounded store when maxEntries is 0 and an LRU
// store bounded to maxEntries otherwise.
func NewSeriesStore(maxEntries int) SeriesStore {
	if maxEntries <= 0 {
		return NewMapStore()
	}
	return NewLRUStore(maxEntries)
}

// MapStore keeps every series for the lifetime of the process. Memory grows
// with the number of distinct keys observed.
type MapStore struct {
	mu      sync.RWMutex
	entries map[CacheKey]domain.Series
}

// NewMapStore creates an empty unbounded store.
func NewMapStore() *MapStore {
	return &MapStore{entries: make(map[CacheKey]domain.Series)}
}

func (s *MapStore) Get(key CacheKey) (domain.Series, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	series, ok := s.entries[key]
	return series, ok
}

func (s *MapStore) Put(key CacheKey, series domain.Series) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = series
	return 0
}

func (s *MapStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// LRUStore bounds memory to maxEntries series, dropping the least recently
// read or written one first. Front of order is most recent.
type LRUStore struct {
	maxEntries int

	mu      sync.Mutex
	order   *list.List
	entries map[CacheKey]*list.Element
}

type lruEntry struct {
	key    CacheKey
	series domain.Series
}

// NewLRUStore creates an LRU store holding at most maxEntries series.
func NewLRUStore(maxEntries int) *LRUStore {
	return &LRUStore{
		maxEntries: max(1, maxEntries),
		order:      list.New(),
		entries:    make(map[CacheKey]*list.Element),
	}
}

func (c *LRUStore) Get(key CacheKey) (domain.Series, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return domain.Series{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*lruEntry).series, true
}

func (c *LRUStore) Put(key CacheKey, series domain.Series) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*lruEntry).series = series
		c.order.MoveToFront(el)
		return 0
	}
	c.entries[key] = c.order.PushFront(&lruEntry{key: key, series: series})

	evicted := 0
	for c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*lruEntry).key)
		evicted++
	}
	return evicted
}

func (c *LRUStore) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
