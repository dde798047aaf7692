// internal/filter/node.go
package filter

// Kind identifies a PredicateNode variant.
type Kind int

const (
	KindEquals Kind = iota + 1
	KindLike
	KindGreaterThan
	KindLessThan
	KindBBox
	KindFeatureID
	KindAnd
	KindOr
	// KindRaw carries a caller-supplied fragment verbatim.
	KindRaw
)

func (k Kind) String() string {
	switch k {
	case KindEquals:
		return "Equals"
	case KindLike:
		return "Like"
	case KindGreaterThan:
		return "GreaterThan"
	case KindLessThan:
		return "LessThan"
	case KindBBox:
		return "BBoxIntersects"
	case KindFeatureID:
		return "FeatureIdIn"
	case KindAnd:
		return "And"
	case KindOr:
		return "Or"
	case KindRaw:
		return "Raw"
	default:
		return "Unknown"
	}
}

// Node is a predicate tree. Leaves use Property/Value/MatchCase (and Date for
// comparisons rendered through dateParse), BBox nodes use Box and Property,
// FeatureID nodes use IDs and Prefix, combinators use Children.
type Node struct {
	Kind      Kind
	Property  string
	Value     string
	MatchCase MatchCase
	Date      bool
	Box       *BBox
	IDs       []string
	Prefix    string
	Children  []*Node
}

func EqualTo(path, value string, matchCase MatchCase) *Node {
	return &Node{Kind: KindEquals, Property: path, Value: value, MatchCase: matchCase}
}

func Like(path, value string) *Node {
	return &Node{Kind: KindLike, Property: path, Value: value}
}

func GreaterThan(path, value string, matchCase MatchCase) *Node {
	return &Node{Kind: KindGreaterThan, Property: path, Value: value, MatchCase: matchCase}
}

func LessThan(path, value string, matchCase MatchCase) *Node {
	return &Node{Kind: KindLessThan, Property: path, Value: value, MatchCase: matchCase}
}

// DateAfter and DateBefore compare path against a DateTimeLayout timestamp.
func DateAfter(path, timestamp string) *Node {
	return &Node{Kind: KindGreaterThan, Property: path, Value: timestamp, MatchCase: CaseInsensitive, Date: true}
}

func DateBefore(path, timestamp string) *Node {
	return &Node{Kind: KindLessThan, Property: path, Value: timestamp, MatchCase: CaseInsensitive, Date: true}
}

func Intersects(box *BBox, path string) *Node {
	return &Node{Kind: KindBBox, Property: path, Box: box}
}

func FeatureIDs(ids []string, prefix string) *Node {
	return &Node{Kind: KindFeatureID, IDs: ids, Prefix: prefix}
}

func Raw(fragment string) *Node {
	return &Node{Kind: KindRaw, Value: fragment}
}

// All builds an And combinator. Nil children are dropped.
func All(children ...*Node) *Node {
	return &Node{Kind: KindAnd, Children: compact(children)}
}

// Any builds an Or combinator. Nil children are dropped.
func Any(children ...*Node) *Node {
	return &Node{Kind: KindOr, Children: compact(children)}
}

func compact(nodes []*Node) []*Node {
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Render renders the tree to a wire fragment. Combinators whose children all
// render empty are elided, single-child combinators render as the child.
func Render(n *Node) string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case KindEquals:
		return PropertyIsEqual(n.Property, n.Value, n.MatchCase)
	case KindLike:
		return PropertyIsLike(n.Property, n.Value)
	case KindGreaterThan:
		if n.Date {
			return DateGreaterThan(n.Property, n.Value, n.MatchCase)
		}
		return PropertyGreaterThan(n.Property, n.Value, n.MatchCase)
	case KindLessThan:
		if n.Date {
			return DateLessThan(n.Property, n.Value, n.MatchCase)
		}
		return PropertyLessThan(n.Property, n.Value, n.MatchCase)
	case KindBBox:
		return BBoxIntersects(n.Box, n.Property)
	case KindFeatureID:
		return FeatureIDIn(n.IDs, n.Prefix)
	case KindRaw:
		return n.Value
	case KindAnd:
		return And(renderAll(n.Children)...)
	case KindOr:
		return Or(renderAll(n.Children)...)
	}
	return ""
}

func renderAll(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, c := range nodes {
		out[i] = Render(c)
	}
	return out
}
