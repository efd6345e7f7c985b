package pos

import "strings"

// NodeResolver maps a classifier's symbolic location label onto a concrete
// node in the floor-graph collection. Classifier labels are not guaranteed
// to equal node ids verbatim, so resolution is forgiving: an optional
// override table first, then exact, suffix, and substring passes, all
// case-insensitive. Pass order matters and determines ties.
type NodeResolver struct {
	overrides map[string]string // lowercased label -> node id
}

// NewNodeResolver creates a resolver. The override table handles names that
// are not structurally derivable from node ids (historical room aliases);
// it may be nil.
func NewNodeResolver(overrides map[string]string) *NodeResolver {
	lowered := make(map[string]string, len(overrides))
	for label, nodeID := range overrides {
		lowered[strings.ToLower(strings.TrimSpace(label))] = nodeID
	}
	return &NodeResolver{overrides: lowered}
}

// Resolve returns the first node matching the label, or nil when no graph
// contains a match. Callers must treat nil as "location unknown", never as a
// default node.
func (r *NodeResolver) Resolve(label string, graphs []*FloorGraph) *ResolvedLocation {
	needle := strings.ToLower(strings.TrimSpace(label))
	if needle == "" {
		return nil
	}

	if nodeID, ok := r.overrides[needle]; ok {
		if loc := findExact(strings.ToLower(nodeID), graphs); loc != nil {
			return loc
		}
	}

	if loc := findExact(needle, graphs); loc != nil {
		return loc
	}
	if loc := findMatch(graphs, func(id string) bool { return strings.HasSuffix(id, needle) }); loc != nil {
		return loc
	}
	return findMatch(graphs, func(id string) bool { return strings.Contains(id, needle) })
}

func findExact(needle string, graphs []*FloorGraph) *ResolvedLocation {
	return findMatch(graphs, func(id string) bool { return id == needle })
}

func findMatch(graphs []*FloorGraph, match func(loweredID string) bool) *ResolvedLocation {
	for _, g := range graphs {
		for i := range g.Nodes {
			if match(strings.ToLower(g.Nodes[i].ID)) {
				return &ResolvedLocation{Graph: g, Node: &g.Nodes[i]}
			}
		}
	}
	return nil
}
