// Package scope implements the ordered list of work items.
//
// The list is a doubly linked ring closed by a single sentinel node, so
// the list is empty exactly when the sentinel links to itself. Every
// insertion returns a *Node that stays valid until the node is popped
// or unlinked; callers cache it to reach the entry again in O(1).
package scope

import (
	"github.com/funvibe/wlcheck/internal/diagnostics"
)

// Node is a position in a List.
type Node[T any] struct {
	Value T

	prev, next *Node[T]
	list       *List[T]
}

// Linked reports whether the node is still part of a list.
func (n *Node[T]) Linked() bool { return n.list != nil }

// Prev returns the previous node, or nil at the front.
func (n *Node[T]) Prev() *Node[T] {
	if n.list == nil || n.prev == &n.list.sentinel {
		return nil
	}
	return n.prev
}

// Next returns the next node, or nil at the back.
func (n *Node[T]) Next() *Node[T] {
	if n.list == nil || n.next == &n.list.sentinel {
		return nil
	}
	return n.next
}

type List[T any] struct {
	sentinel Node[T]
	len      int
}

func New[T any]() *List[T] {
	l := &List[T]{}
	l.sentinel.prev = &l.sentinel
	l.sentinel.next = &l.sentinel
	return l
}

func (l *List[T]) Len() int { return l.len }

func (l *List[T]) Empty() bool { return l.sentinel.next == &l.sentinel }

// Front returns the first node, or nil if the list is empty.
func (l *List[T]) Front() *Node[T] {
	if l.Empty() {
		return nil
	}
	return l.sentinel.next
}

// Back returns the last node, or nil if the list is empty.
func (l *List[T]) Back() *Node[T] {
	if l.Empty() {
		return nil
	}
	return l.sentinel.prev
}

func (l *List[T]) link(v T, after *Node[T]) *Node[T] {
	n := &Node[T]{Value: v, list: l}
	n.prev = after
	n.next = after.next
	after.next.prev = n
	after.next = n
	l.len++
	return n
}

func (l *List[T]) PushBack(v T) *Node[T] {
	return l.link(v, l.sentinel.prev)
}

func (l *List[T]) PushFront(v T) *Node[T] {
	return l.link(v, &l.sentinel)
}

// InsertBefore links v immediately before pos.
func (l *List[T]) InsertBefore(pos *Node[T], v T) *Node[T] {
	l.mustOwn(pos, "insert before")
	return l.link(v, pos.prev)
}

// PopBack removes and returns the last value. ok is false on an empty list.
func (l *List[T]) PopBack() (v T, ok bool) {
	if l.Empty() {
		return v, false
	}
	n := l.sentinel.prev
	l.detach(n)
	return n.Value, true
}

// Unlink removes pos in O(1). Unlinking a node that was already popped
// or unlinked is an invariant violation.
func (l *List[T]) Unlink(pos *Node[T]) {
	l.mustOwn(pos, "unlink")
	l.detach(pos)
}

func (l *List[T]) mustOwn(pos *Node[T], op string) {
	if pos == nil || pos.list != l {
		panic(diagnostics.Invariant("%s: position is not linked in this list", op))
	}
}

func (l *List[T]) detach(n *Node[T]) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev, n.next, n.list = nil, nil, nil
	l.len--
}

// Each calls fn for every node front to back, stopping when fn returns false.
// fn may unlink the node it was handed.
func (l *List[T]) Each(fn func(*Node[T]) bool) {
	for n := l.sentinel.next; n != &l.sentinel; {
		next := n.next
		if !fn(n) {
			return
		}
		n = next
	}
}

// Values returns the values front to back.
func (l *List[T]) Values() []T {
	out := make([]T, 0, l.len)
	l.Each(func(n *Node[T]) bool {
		out = append(out, n.Value)
		return true
	})
	return out
}
