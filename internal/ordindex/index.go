// Package ordindex answers "is a left of b" over a dynamic sequence.
//
// The sequence is the in-order traversal of a splay tree; there are no
// keys. Every access splays the touched node towards the root, so
// repeated queries near the same declarations stay cheap.
package ordindex

import (
	"github.com/funvibe/wlcheck/internal/diagnostics"
)

type Direction uint8

const (
	Left Direction = iota
	Right
)

// Not returns the opposite direction.
func (d Direction) Not() Direction { return d ^ 1 }

func (d Direction) String() string {
	if d == Left {
		return "Left"
	}
	return "Right"
}

// Token is one element of the ordered set.
type Token struct {
	parent   *Token
	children [2]*Token
	index    *Index
}

// Live reports whether the token is still in an index.
func (t *Token) Live() bool { return t != nil && t.index != nil }

func (t *Token) child(d Direction) *Token { return t.children[d] }

func (t *Token) setChild(d Direction, c *Token) {
	t.children[d] = c
	if c != nil {
		c.parent = t
	}
}

// direction returns which child of its parent t is.
func (t *Token) direction() Direction {
	if t.parent.children[Left] == t {
		return Left
	}
	if t.parent.children[Right] == t {
		return Right
	}
	panic(diagnostics.Invariant("splay node is not a child of its parent"))
}

type Index struct {
	root *Token
	len  int
}

func New() *Index { return &Index{} }

func (ix *Index) Len() int { return ix.len }

// rotate promotes t above its parent, relinking the grandparent.
// The in-order sequence is unchanged.
func (ix *Index) rotate(t *Token) {
	parent := t.parent
	if parent == nil {
		panic(diagnostics.Invariant("rotated node has no parent"))
	}
	grandparent := parent.parent
	dir := t.direction()

	if grandparent != nil {
		grandparent.setChild(parent.direction(), t)
	} else {
		ix.root = t
		t.parent = nil
	}

	parent.setChild(dir, t.child(dir.Not()))
	t.setChild(dir.Not(), parent)
}

// splay rotates t upwards until its parent is goal (nil: until t is the root).
func (ix *Index) splay(t, goal *Token) {
	for t.parent != goal {
		parent := t.parent
		grandparent := parent.parent
		switch {
		case grandparent == goal:
			// zig
			ix.rotate(t)
		case t.direction() == parent.direction():
			// zig-zig
			ix.rotate(parent)
			ix.rotate(t)
		default:
			// zig-zag
			ix.rotate(t)
			ix.rotate(t)
		}
	}
}

func (ix *Index) own(t *Token, op string) {
	if t == nil || t.index != ix {
		panic(diagnostics.Invariant("ordindex: %s on a token not in this index", op))
	}
}

func (ix *Index) extreme(d Direction) *Token {
	t := ix.root
	if t == nil {
		return nil
	}
	for t.child(d) != nil {
		t = t.child(d)
	}
	return t
}

// First returns the leftmost token, or nil.
func (ix *Index) First() *Token { return ix.extreme(Left) }

// Last returns the rightmost token, or nil.
func (ix *Index) Last() *Token { return ix.extreme(Right) }

func (ix *Index) newToken() *Token {
	ix.len++
	return &Token{index: ix}
}

// InsertLast appends a token at the right end.
func (ix *Index) InsertLast() *Token {
	last := ix.Last()
	if last == nil {
		t := ix.newToken()
		ix.root = t
		return t
	}
	return ix.InsertAfter(last)
}

// InsertFirst prepends a token at the left end.
func (ix *Index) InsertFirst() *Token {
	first := ix.First()
	if first == nil {
		t := ix.newToken()
		ix.root = t
		return t
	}
	return ix.InsertBefore(first)
}

// InsertBefore adds a token immediately left of at.
func (ix *Index) InsertBefore(at *Token) *Token {
	return ix.insertBeside(at, Left)
}

// InsertAfter adds a token immediately right of at.
func (ix *Index) InsertAfter(at *Token) *Token {
	return ix.insertBeside(at, Right)
}

func (ix *Index) insertBeside(at *Token, d Direction) *Token {
	ix.own(at, "insert")
	ix.splay(at, nil)
	t := ix.newToken()
	// at is the root: t takes over at's d-subtree and becomes its d-child.
	t.setChild(d, at.child(d))
	at.setChild(d, t)
	return t
}

// InsertBetween adds a token between two adjacent tokens. Either side
// may be nil for the corresponding end of the sequence.
func (ix *Index) InsertBetween(before, after *Token) *Token {
	switch {
	case before != nil:
		return ix.InsertAfter(before)
	case after != nil:
		return ix.InsertBefore(after)
	default:
		return ix.InsertLast()
	}
}

// Compare reports on which side of b the token a lies: Left if a comes
// first. Comparing a token with itself is an invariant violation.
func (ix *Index) Compare(a, b *Token) Direction {
	ix.own(a, "compare")
	ix.own(b, "compare")
	if a == b {
		panic(diagnostics.Invariant("ordindex: token compared with itself"))
	}
	ix.splay(b, nil)
	ix.splay(a, b)
	return a.direction()
}

// Before reports whether a precedes b.
func (ix *Index) Before(a, b *Token) bool {
	return ix.Compare(a, b) == Left
}

// Remove deletes t from the order. Removing twice is an invariant violation.
func (ix *Index) Remove(t *Token) {
	ix.own(t, "remove")
	ix.splay(t, nil)

	left, right := t.children[Left], t.children[Right]
	if left != nil {
		left.parent = nil
	}
	if right != nil {
		right.parent = nil
	}
	t.children = [2]*Token{}
	t.index = nil
	ix.len--

	if left == nil {
		ix.root = right
		return
	}
	// Join: the maximum of the left tree has no right child once splayed.
	ix.root = left
	max := left
	for max.children[Right] != nil {
		max = max.children[Right]
	}
	ix.splay(max, nil)
	max.setChild(Right, right)
}

// Tokens returns the live tokens in order.
func (ix *Index) Tokens() []*Token {
	out := make([]*Token, 0, ix.len)
	var walk func(*Token)
	walk = func(t *Token) {
		if t == nil {
			return
		}
		walk(t.children[Left])
		out = append(out, t)
		walk(t.children[Right])
	}
	walk(ix.root)
	return out
}

// depth is used by tests to observe splaying.
func (ix *Index) depth(t *Token) int {
	d := 0
	for t.parent != nil {
		t = t.parent
		d++
	}
	return d
}
