// Package list implements the zero-allocation intrusive doubly-linked list
// primitive used to queue tasks onto ready, timeout, deadline, wait, and RPC
// queues without ever allocating at runtime (spec §4.1).
package list

// Node is embedded (by value, as a field) in every queueable object. A Node
// is linked into at most one list at a time; re-linking a Node that is
// already in a list without first removing it is a bug: PushHead, PushTail
// and InsertSorted panic on it in every build, by checking Node.head.
type Node struct {
	next, prev *Node
	head       *Head // non-nil while linked; identifies the owning list
}

// Head is the sentinel of a circular doubly-linked list. The zero value is
// not ready for use; call Init.
type Head struct {
	Node
}

// Init prepares h as an empty list. Must be called before use.
func (h *Head) Init() {
	h.next = &h.Node
	h.prev = &h.Node
	h.head = &h.Node
}

// InitNode prepares n as an unlinked node. Safe to call repeatedly.
func InitNode(n *Node) {
	n.next = nil
	n.prev = nil
	n.head = nil
}

// IsEmpty reports whether h has no linked nodes.
func (h *Head) IsEmpty() bool {
	return h.next == &h.Node
}

// InList reports whether n is currently linked into any list.
func InList(n *Node) bool {
	return n.head != nil
}

// PushHead links n at the front of h. Panics if n is already linked.
func PushHead(h *Head, n *Node) {
	mustUnlinked(n)
	insertAfter(&h.Node, n)
	n.head = &h.Node
}

// PushTail links n at the back of h. Panics if n is already linked.
func PushTail(h *Head, n *Node) {
	mustUnlinked(n)
	insertAfter(h.Node.prev, n)
	n.head = &h.Node
}

// Remove unlinks n from whatever list it is in. A no-op if n is not linked.
func Remove(n *Node) {
	if n.head == nil {
		return
	}
	n.prev.next = n.next
	n.next.prev = n.prev
	n.next = nil
	n.prev = nil
	n.head = nil
}

// First returns the first node in h, or nil if h is empty.
func First(h *Head) *Node {
	if h.IsEmpty() {
		return nil
	}
	return h.next
}

// Last returns the last node in h, or nil if h is empty.
func Last(h *Head) *Node {
	if h.IsEmpty() {
		return nil
	}
	return h.prev
}

// Next returns the node following n in its list, or nil at the end.
func Next(h *Head, n *Node) *Node {
	if n.next == &h.Node {
		return nil
	}
	return n.next
}

// Prev returns the node preceding n in its list, or nil at the start.
func Prev(h *Head, n *Node) *Node {
	if n.prev == &h.Node {
		return nil
	}
	return n.prev
}

// Concat moves all nodes from src onto the back of dst, leaving src empty.
func Concat(dst, src *Head) {
	if src.IsEmpty() {
		return
	}
	first, last := src.next, src.prev
	for n := first; ; n = n.next {
		n.head = &dst.Node
		if n == last {
			break
		}
	}
	dst.prev.next = first
	first.prev = dst.prev
	last.next = &dst.Node
	dst.prev = last

	src.next = &src.Node
	src.prev = &src.Node
}

// Less reports whether a sorts before b. Implemented by list users for
// InsertSorted (e.g. ordering by expiry or deadline).
type Less func(a, b *Node) bool

// InsertSorted inserts n into h at the position satisfying less, i.e. the
// first position where less(n, existing) holds, or the tail if none do.
// O(n) in the number of queued nodes, per spec §4.1.
func InsertSorted(h *Head, n *Node, less Less) {
	mustUnlinked(n)
	for cur := h.next; cur != &h.Node; cur = cur.next {
		if less(n, cur) {
			insertAfter(cur.prev, n)
			n.head = &h.Node
			return
		}
	}
	PushTail(h, n)
}

func insertAfter(at, n *Node) {
	n.prev = at
	n.next = at.next
	at.next.prev = n
	at.next = n
}

func mustUnlinked(n *Node) {
	if n.head != nil {
		panic("list: node is already linked into a list")
	}
}
