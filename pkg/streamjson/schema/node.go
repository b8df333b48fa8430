package schema

import "strings"

// maxCompileDepth bounds tree expansion so recursive schema definitions
// terminate. Validation below the bound still runs through the deepest
// node's definition.
const maxCompileDepth = 64

// Node is one entry of the compiled schema tree. Nodes mirror the
// schema's own nesting and are immutable after Compile. Parent is a
// non-owning back-reference used for lookup only.
type Node struct {
	Path     []string
	Def      Definition
	Required bool
	Children map[string]*Node // object definitions only
	Items    *Node            // array definitions only
	Parent   *Node
}

// Tree is the compiled lookup structure, built once per stream. The arena
// keeps every node alive through a single slice so parent pointers never
// drive ownership.
type Tree struct {
	root  *Node
	arena []*Node
}

// Compile builds the lookup tree for a definition. Cost is proportional
// to the schema size.
func Compile(def Definition) *Tree {
	if def == nil {
		return nil
	}
	t := &Tree{}
	t.root = t.build(def, nil, nil, false, 0)
	return t
}

func (t *Tree) build(def Definition, path []string, parent *Node, required bool, depth int) *Node {
	n := &Node{
		Path:     append([]string(nil), path...),
		Def:      def,
		Required: required,
		Parent:   parent,
	}
	t.arena = append(t.arena, n)
	if depth >= maxCompileDepth {
		return n
	}

	switch def.Kind() {
	case KindObject:
		props := def.Properties()
		if len(props) > 0 {
			n.Children = make(map[string]*Node, len(props))
		}
		for _, name := range props {
			child, ok := def.Property(name)
			if !ok {
				continue
			}
			n.Children[name] = t.build(child, append(path, name), n, def.IsRequired(name), depth+1)
		}
	case KindArray:
		if items := def.Items(); items != nil {
			n.Items = t.build(items, append(path, "[]"), n, false, depth+1)
		}
	}
	return n
}

// Root returns the root node.
func (t *Tree) Root() *Node {
	if t == nil {
		return nil
	}
	return t.root
}

// Len returns the number of compiled nodes.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.arena)
}

// Find walks the tree by path segments. Array indices like "[3]" map to
// the items node. When a segment has no matching child the nearest
// ancestor found so far is returned instead of failing; validation for
// schema-less sub-paths then degrades to the ancestor's granularity.
func (t *Tree) Find(path []string) *Node {
	if t == nil {
		return nil
	}
	n := t.root
	for _, seg := range path {
		if strings.HasPrefix(seg, "[") {
			if n.Items == nil {
				return n
			}
			n = n.Items
			continue
		}
		child, ok := n.Children[seg]
		if !ok {
			return n
		}
		n = child
	}
	return n
}
