package partition

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

//go:embed departments.toml
var defaultGraph []byte

// Graph is the static visiting order of partitions and, for each partition,
// its ordered list of neighbors.
type Graph struct {
	order     []string
	neighbors map[string][]string
	known     map[string]bool
}

type graphFile struct {
	Order     []string            `toml:"order"`
	Neighbors map[string][]string `toml:"neighbors"`
}

// DefaultGraph returns the embedded French department graph.
func DefaultGraph() *Graph {
	g, err := ParseGraph(defaultGraph)
	if err != nil {
		panic(fmt.Sprintf("embedded partition graph: %v", err))
	}
	return g
}

// LoadGraph reads a graph from a TOML file, or returns the embedded graph
// when path is empty.
func LoadGraph(path string) (*Graph, error) {
	if path == "" {
		return DefaultGraph(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read partition graph %s: %w", path, err)
	}
	g, err := ParseGraph(data)
	if err != nil {
		return nil, fmt.Errorf("parse partition graph %s: %w", path, err)
	}
	return g, nil
}

// ParseGraph decodes a TOML graph definition.
func ParseGraph(data []byte) (*Graph, error) {
	var f graphFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if len(f.Order) == 0 {
		return nil, fmt.Errorf("partition graph has an empty order")
	}

	g := &Graph{
		order:     f.Order,
		neighbors: f.Neighbors,
		known:     make(map[string]bool, len(f.Order)),
	}
	if g.neighbors == nil {
		g.neighbors = map[string][]string{}
	}
	for _, code := range f.Order {
		if g.known[code] {
			return nil, fmt.Errorf("partition %q listed twice in order", code)
		}
		g.known[code] = true
	}
	for code, ns := range g.neighbors {
		for _, n := range ns {
			if n == code {
				return nil, fmt.Errorf("partition %q lists itself as a neighbor", code)
			}
		}
	}
	return g, nil
}

// Order returns the fixed visiting order.
func (g *Graph) Order() []string {
	return append([]string(nil), g.order...)
}

// Contains reports whether code is part of the visiting order.
func (g *Graph) Contains(code string) bool {
	return g.known[code]
}

// Neighbors returns up to limit neighbors of code in graph order.
// A limit <= 0 returns all of them.
func (g *Graph) Neighbors(code string, limit int) []string {
	ns := g.neighbors[code]
	if limit > 0 && len(ns) > limit {
		ns = ns[:limit]
	}
	return append([]string(nil), ns...)
}

// Plan orders the partitions present in codes: first the ones in the graph's
// order, then unknown ones sorted. The second return value lists the unknown
// codes so callers can report them.
func (g *Graph) Plan(codes []string) (plan []string, unknown []string) {
	present := make(map[string]bool, len(codes))
	for _, c := range codes {
		present[c] = true
	}
	for _, c := range g.order {
		if present[c] {
			plan = append(plan, c)
		}
	}
	for c := range present {
		if !g.known[c] {
			unknown = append(unknown, c)
		}
	}
	sort.Strings(unknown)
	return append(plan, unknown...), unknown
}
