package syntax

import "errors"

// ErrReleased is returned when a body is materialized after its tree was
// released.
var ErrReleased = errors.New("syntax tree released")

// BodyParser fills an unparsed body of a declaration with its nodes.
type BodyParser interface {
	MaterializeBody(t *Tree, id NodeID) error
}

// Materialize parses the body of declaration id if it has one that is not
// yet parsed.
func (t *Tree) Materialize(p BodyParser, id NodeID) error {
	b := t.Nodes[id].Body
	if b == nil || b.State != Unparsed {
		return nil
	}
	if b.Handle == nil {
		return ErrReleased
	}
	if err := p.MaterializeBody(t, id); err != nil {
		return err
	}
	b.State = Materialized
	return nil
}

// Purge excludes a materialized body from binding. Its nodes stay in the
// tree.
func (t *Tree) Purge(id NodeID) {
	if b := t.Nodes[id].Body; b != nil && b.State == Materialized {
		b.State = Purged
	}
}

// Bodies returns every declaration with a body, in pre-order.
func (t *Tree) Bodies() []NodeID {
	var out []NodeID
	t.Walk(Root, func(id NodeID, n *Node) bool {
		if n.Body != nil {
			out = append(out, id)
		}
		return true
	})
	return out
}
