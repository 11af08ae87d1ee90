// SPDX-License-Identifier: Apache-2.0

package pgconn

import (
	"container/list"
	"hash/fnv"
	"sync"
)

// stmtCache is an LRU cache mapping SQL text to the server-side
// prepared-statement name it was parsed under, capped at a fixed
// capacity so long-lived connections don't accumulate unbounded
// Parse'd statements on the backend.
type stmtCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently used
	entries  map[string]*list.Element
}

type stmtCacheEntry struct {
	sql  string
	name string
}

func newStmtCache(capacity int) *stmtCache {
	return &stmtCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

// nameFor returns the prepared-statement name for sql, creating and
// evicting-as-needed if it is not already cached. ok is false when the
// statement must still be Parse'd on the wire by the caller.
func (c *stmtCache) nameFor(sql string) (name string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, found := c.entries[sql]; found {
		c.order.MoveToFront(el)
		return el.Value.(*stmtCacheEntry).name, true
	}

	name = "qail_" + fnv1aHex(sql)
	el := c.order.PushFront(&stmtCacheEntry{sql: sql, name: name})
	c.entries[sql] = el

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*stmtCacheEntry).sql)
		}
	}

	return name, false
}

func fnv1aHex(s string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	const hexDigits = "0123456789abcdef"
	sum := h.Sum64()
	buf := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		buf[i] = hexDigits[sum&0xf]
		sum >>= 4
	}
	return string(buf)
}
