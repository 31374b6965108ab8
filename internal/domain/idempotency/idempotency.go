// Package idempotency remembers the outcome of client requests carrying an
// Idempotency-Key, so a retried bid submission is answered with the original
// response instead of being resolved twice.
package idempotency

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

const defaultSize = 100_000

// Response is a stored reply.
type Response struct {
	Status int
	Body   []byte
}

// State of a key.
type State int

const (
	// StateNew means the caller now owns the key and must Complete or Release it.
	StateNew State = iota
	// StatePending means another request with the same key is still running.
	StatePending
	// StateDone means a response is stored and returned.
	StateDone
)

type entry struct {
	done bool
	resp Response
}

// Cache is a bounded LRU of request outcomes.
type Cache struct {
	mu    sync.Mutex
	cache *lru.Cache
}

// New creates a cache holding at most size keys.
func New(size int) (*Cache, error) {
	if size <= 0 {
		size = defaultSize
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Cache{cache: c}, nil
}

// Begin claims key, or reports that it is pending or already answered.
func (c *Cache) Begin(key string) (State, Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.cache.Get(key); ok {
		e := v.(*entry)
		if e.done {
			return StateDone, e.resp
		}
		return StatePending, Response{}
	}
	c.cache.Add(key, &entry{})
	return StateNew, Response{}
}

// Complete stores the response for a claimed key.
func (c *Cache) Complete(key string, resp Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(key, &entry{done: true, resp: resp})
}

// Release forgets a claimed key so the request may be retried.
func (c *Cache) Release(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Remove(key)
}

// Len returns the number of tracked keys.
func (c *Cache) Len() int {
	return c.cache.Len()
}
