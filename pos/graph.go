package pos

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Node is one labeled point (room, corridor, corner) on a floor graph.
type Node struct {
	ID       string            `json:"id"`
	Label    string            `json:"label,omitempty"`
	X        float64           `json:"x"`
	Y        float64           `json:"y"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Point returns the node position as an orb point.
func (n *Node) Point() orb.Point {
	return orb.Point{n.X, n.Y}
}

// Edge connects two nodes. Weight is optional; when absent the planar
// distance between the endpoints is used.
type Edge struct {
	From   string   `json:"from"`
	To     string   `json:"to"`
	Weight *float64 `json:"weight,omitempty"`
}

// FloorGraph is the node graph for one building floor. It is validated at
// load time and read-only thereafter.
type FloorGraph struct {
	BuildingID string  `json:"buildingId"`
	FloorID    string  `json:"floorId"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Nodes      []Node  `json:"nodes"`
	Edges      []Edge  `json:"edges"`

	index map[string]*Node
}

// Node looks up a node by exact id.
func (g *FloorGraph) Node(id string) (*Node, bool) {
	n, ok := g.index[id]
	return n, ok
}

// Key identifies the graph within a collection.
func (g *FloorGraph) Key() string {
	return g.BuildingID + "/" + g.FloorID
}

// EdgeWeight returns an edge's effective weight: the explicit weight when
// set, the planar distance between the endpoints otherwise.
func (g *FloorGraph) EdgeWeight(e Edge) float64 {
	if e.Weight != nil {
		return *e.Weight
	}
	from := g.index[e.From]
	to := g.index[e.To]
	return planar.Distance(from.Point(), to.Point())
}

// NearestNode returns the node closest to p, or nil for an empty graph.
func (g *FloorGraph) NearestNode(p orb.Point) *Node {
	var best *Node
	bestDist := math.Inf(1)
	for i := range g.Nodes {
		d := planar.DistanceSquared(g.Nodes[i].Point(), p)
		if d < bestDist {
			bestDist = d
			best = &g.Nodes[i]
		}
	}
	return best
}

// Route computes the shortest path between two nodes over the graph's
// edges, treated as undirected. It returns the node sequence including both
// endpoints and the total path weight.
func (g *FloorGraph) Route(fromID, toID string) ([]*Node, float64, error) {
	if _, ok := g.index[fromID]; !ok {
		return nil, 0, fmt.Errorf("route: unknown node %q", fromID)
	}
	if _, ok := g.index[toID]; !ok {
		return nil, 0, fmt.Errorf("route: unknown node %q", toID)
	}

	adj := make(map[string][]Edge, len(g.Nodes))
	for _, e := range g.Edges {
		adj[e.From] = append(adj[e.From], e)
		adj[e.To] = append(adj[e.To], Edge{From: e.To, To: e.From, Weight: e.Weight})
	}

	dist := map[string]float64{fromID: 0}
	prev := map[string]string{}
	visited := map[string]bool{}

	for {
		// Linear scan is fine at floor-graph scale (tens of nodes).
		current := ""
		best := math.Inf(1)
		for id, d := range dist {
			if !visited[id] && d < best {
				best = d
				current = id
			}
		}
		if current == "" {
			break
		}
		if current == toID {
			break
		}
		visited[current] = true

		for _, e := range adj[current] {
			alt := dist[current] + g.EdgeWeight(Edge{From: e.From, To: e.To, Weight: e.Weight})
			if d, seen := dist[e.To]; !seen || alt < d {
				dist[e.To] = alt
				prev[e.To] = current
			}
		}
	}

	total, ok := dist[toID]
	if !ok {
		return nil, 0, fmt.Errorf("route: no path from %q to %q", fromID, toID)
	}

	var path []*Node
	for id := toID; ; {
		path = append([]*Node{g.index[id]}, path...)
		if id == fromID {
			break
		}
		id = prev[id]
	}
	return path, total, nil
}

// ParseFloorGraph parses and validates one floor graph JSON document.
// Duplicate node ids and edges referencing missing nodes are integrity
// errors that reject the whole graph.
func ParseFloorGraph(data []byte) (*FloorGraph, error) {
	var g FloorGraph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parsing floor graph JSON: %w", err)
	}

	g.index = make(map[string]*Node, len(g.Nodes))
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.ID == "" {
			return nil, fmt.Errorf("floor graph %s: node %d has empty id", g.Key(), i)
		}
		if _, dup := g.index[n.ID]; dup {
			return nil, fmt.Errorf("floor graph %s: duplicate node id %q", g.Key(), n.ID)
		}
		g.index[n.ID] = n
	}
	for i, e := range g.Edges {
		if _, ok := g.index[e.From]; !ok {
			return nil, fmt.Errorf("floor graph %s: edge %d references missing node %q", g.Key(), i, e.From)
		}
		if _, ok := g.index[e.To]; !ok {
			return nil, fmt.Errorf("floor graph %s: edge %d references missing node %q", g.Key(), i, e.To)
		}
	}
	return &g, nil
}

// ParseFloorGraphFile reads and validates a floor graph from disk.
func ParseFloorGraphFile(path string) (*FloorGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading floor graph: %w", err)
	}
	return ParseFloorGraph(data)
}

// LoadFloorGraphs loads every *.json floor graph under dir. A graph failing
// integrity validation is excluded with a logged warning; the rest remain
// usable. The returned collection is in a fixed, stable order
// (building id, then floor id) so resolution order is deterministic.
func LoadFloorGraphs(dir string) ([]*FloorGraph, error) {
	pattern := filepath.Join(dir, "*.json")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("listing floor graphs: %w", err)
	}

	var graphs []*FloorGraph
	for _, file := range files {
		g, err := ParseFloorGraphFile(file)
		if err != nil {
			log.Printf("Warning: excluding floor graph %s: %v", file, err)
			continue
		}
		graphs = append(graphs, g)
	}

	sort.Slice(graphs, func(a, b int) bool {
		return graphs[a].Key() < graphs[b].Key()
	})
	return graphs, nil
}
