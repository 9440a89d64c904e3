package sessionmgr

import (
	"container/heap"
	"time"
)

// heapItem is one scheduled expiry. version is compared against the live
// entry's version at pop time: if they differ the entry was refreshed (or
// removed) since this item was scheduled, and the item is dropped without
// being re-inserted or swapped for a corrected one — the lazy-invalidation
// trick that keeps reschedule O(log N) instead of O(N).
type heapItem struct {
	id        string
	version   uint64
	expiresAt time.Time
}

// expiryHeap is a min-heap on expiresAt, implementing container/heap.Interface.
type expiryHeap []*heapItem

func (h expiryHeap) Len() int           { return len(h) }
func (h expiryHeap) Less(i, j int) bool { return h[i].expiresAt.Before(h[j].expiresAt) }
func (h expiryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *expiryHeap) Push(x any)        { *h = append(*h, x.(*heapItem)) }

func (h *expiryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

func newExpiryHeap() *expiryHeap {
	h := &expiryHeap{}
	heap.Init(h)
	return h
}

func (h *expiryHeap) pushItem(item *heapItem) {
	heap.Push(h, item)
}

func (h *expiryHeap) peek() (*heapItem, bool) {
	if h.Len() == 0 {
		return nil, false
	}
	return (*h)[0], true
}

func (h *expiryHeap) popItem() *heapItem {
	return heap.Pop(h).(*heapItem)
}
