// Package document maintains the partial JSON value under construction.
// The builder applies one structural token at a time and guarantees that
// the root is a valid (possibly incomplete) JSON value at every point.
package document

import (
	"fmt"

	"github.com/deepankarm/streamjson/pkg/internal/errs"
	"github.com/deepankarm/streamjson/pkg/internal/jsontoken"
)

// Builder owns the partial document. Two parallel stacks stay in sync: the
// container stack holds live object/array references, the path stack the
// key/index segments locating the current position. The root entry's path
// segment is empty.
type Builder struct {
	root    any
	hasRoot bool

	containers []any    // map[string]any or *[]any
	path       []string // parallel to containers

	pendingName string
	hasPending  bool
}

// New creates an empty builder.
func New() *Builder {
	return &Builder{}
}

// Reset discards the partial document and all stack state.
func (b *Builder) Reset() {
	b.root = nil
	b.hasRoot = false
	b.containers = b.containers[:0]
	b.path = b.path[:0]
	b.pendingName = ""
	b.hasPending = false
}

// Apply mutates the partial document with one token.
func (b *Builder) Apply(t jsontoken.Token) error {
	switch t.Kind {
	case jsontoken.ObjectStart:
		b.push(map[string]any{})
	case jsontoken.ArrayStart:
		b.push(&[]any{})
	case jsontoken.ObjectEnd, jsontoken.ArrayEnd:
		if len(b.containers) == 0 {
			return fmt.Errorf("%s token with no open container", t.Kind)
		}
		b.containers = b.containers[:len(b.containers)-1]
		b.path = b.path[:len(b.path)-1]
	case jsontoken.Property:
		b.pendingName = t.Name
		b.hasPending = true
	case jsontoken.Value:
		b.attach(t.Value)
	default:
		return fmt.Errorf("unknown token kind %d", t.Kind)
	}
	return nil
}

// push creates a container, attaches it to its parent, and pushes it onto
// both stacks with the path segment that locates it.
func (b *Builder) push(c any) {
	seg := b.attach(c)
	b.containers = append(b.containers, c)
	b.path = append(b.path, seg)
}

// attach places a value in the current container (or as the root) and
// returns the path segment it landed at.
func (b *Builder) attach(v any) string {
	if len(b.containers) == 0 {
		if !b.hasRoot {
			b.root = v
			b.hasRoot = true
		}
		return ""
	}
	switch parent := b.containers[len(b.containers)-1].(type) {
	case map[string]any:
		name := b.pendingName
		b.pendingName = ""
		b.hasPending = false
		parent[name] = v
		return name
	case *[]any:
		*parent = append(*parent, v)
		return errs.IndexSegment(len(*parent) - 1)
	}
	return ""
}

// Snapshot returns an independent copy of the partial document. The copy
// never aliases live builder state, so callers can hold it across
// subsequent tokens.
func (b *Builder) Snapshot() any {
	return copyValue(b.root)
}

// Path returns the key/index sequence locating the current (innermost
// open) container, excluding the root's empty segment.
func (b *Builder) Path() []string {
	if len(b.path) == 0 {
		return nil
	}
	out := make([]string, 0, len(b.path)-1)
	for i, seg := range b.path {
		if i == 0 {
			continue // root marker
		}
		out = append(out, seg)
	}
	return out
}

// Depth returns the number of open containers.
func (b *Builder) Depth() int {
	return len(b.containers)
}

// Balanced reports whether a root value exists and every opened container
// has been closed again.
func (b *Builder) Balanced() bool {
	return b.hasRoot && len(b.containers) == 0
}

// HasRoot reports whether any value has been attached yet.
func (b *Builder) HasRoot() bool {
	return b.hasRoot
}

// PendingName returns the property name awaiting its value, if any.
func (b *Builder) PendingName() (string, bool) {
	return b.pendingName, b.hasPending
}

// NextValueLoc returns the absolute path the next value token would land
// at: the current container path plus the pending property name (objects)
// or the next index (arrays).
func (b *Builder) NextValueLoc() []string {
	loc := b.Path()
	if len(b.containers) == 0 {
		return loc
	}
	if arr, ok := b.containers[len(b.containers)-1].(*[]any); ok {
		loc = append(loc, errs.IndexSegment(len(*arr)))
	} else if b.hasPending {
		loc = append(loc, b.pendingName)
	}
	return loc
}

// StackLens exposes both stack lengths. They are equal at every
// observation point; tests assert this invariant.
func (b *Builder) StackLens() (containers, path int) {
	return len(b.containers), len(b.path)
}

// SetAt forces a value at an absolute path, creating nothing: every
// container along the path must already exist. Used to apply advisory
// recovery tokens after the document has left the builder's cursor, e.g.
// once the stream completed. Returns false if the path does not resolve
// to a settable location.
func (b *Builder) SetAt(path []string, v any) bool {
	if len(path) == 0 {
		b.root = v
		b.hasRoot = true
		return true
	}
	cur := b.root
	for i := 0; i < len(path)-1; i++ {
		next, ok := childValue(cur, path[i])
		if !ok {
			return false
		}
		cur = next
	}
	last := path[len(path)-1]
	switch c := cur.(type) {
	case map[string]any:
		c[last] = v
		return true
	case *[]any:
		if i, ok := parseIndex(last); ok && i >= 0 && i < len(*c) {
			(*c)[i] = v
			return true
		}
	}
	return false
}

// ValueAt resolves a value in the live document by absolute path.
func (b *Builder) ValueAt(path []string) (any, bool) {
	cur := b.root
	if !b.hasRoot {
		return nil, false
	}
	for _, seg := range path {
		next, ok := childValue(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return copyValue(cur), true
}

func childValue(v any, seg string) (any, bool) {
	switch c := v.(type) {
	case map[string]any:
		child, ok := c[seg]
		return child, ok
	case *[]any:
		if i, ok := parseIndex(seg); ok && i >= 0 && i < len(*c) {
			return (*c)[i], true
		}
	}
	return nil, false
}

func parseIndex(seg string) (int, bool) {
	if len(seg) < 3 || seg[0] != '[' || seg[len(seg)-1] != ']' {
		return 0, false
	}
	n := 0
	for _, c := range seg[1 : len(seg)-1] {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// copyValue deep-copies the partial tree, dereferencing the internal
// *[]any array representation into plain []any.
func copyValue(v any) any {
	switch c := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(c))
		for k, child := range c {
			out[k] = copyValue(child)
		}
		return out
	case *[]any:
		out := make([]any, len(*c))
		for i, child := range *c {
			out[i] = copyValue(child)
		}
		return out
	default:
		return v
	}
}
