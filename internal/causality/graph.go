// Package causality implements the scale-aware impact engine: the causal
// graph over narrative events, the pure impact-scoring functions, and the
// per-session scale manager that materializes events, maintains causal
// chains, and detects and resolves scale conflicts.
package causality

import "sort"

// Graph is a directed adjacency-set graph over narrative-event ids with
// weighted "causes" edges. It should stay acyclic; cycles are consistency
// issues to be broken, not tolerated.
type Graph struct {
	out map[string]map[string]float64
	in  map[string]map[string]struct{}
}

func NewGraph() *Graph {
	return &Graph{
		out: make(map[string]map[string]float64),
		in:  make(map[string]map[string]struct{}),
	}
}

// AddEdge inserts a cause→effect edge. Re-inserting keeps the higher weight.
// Self-edges are rejected.
func (g *Graph) AddEdge(cause, effect string, weight float64) bool {
	if cause == "" || effect == "" || cause == effect {
		return false
	}
	if g.out[cause] == nil {
		g.out[cause] = make(map[string]float64)
	}
	if existing, ok := g.out[cause][effect]; ok {
		if weight > existing {
			g.out[cause][effect] = weight
		}
		return false
	}
	g.out[cause][effect] = weight
	if g.in[effect] == nil {
		g.in[effect] = make(map[string]struct{})
	}
	g.in[effect][cause] = struct{}{}
	return true
}

func (g *Graph) HasEdge(cause, effect string) bool {
	_, ok := g.out[cause][effect]
	return ok
}

func (g *Graph) EdgeWeight(cause, effect string) (float64, bool) {
	w, ok := g.out[cause][effect]
	return w, ok
}

func (g *Graph) RemoveEdge(cause, effect string) {
	delete(g.out[cause], effect)
	delete(g.in[effect], cause)
}

// RemoveNode drops an event and every edge touching it.
func (g *Graph) RemoveNode(id string) {
	for effect := range g.out[id] {
		delete(g.in[effect], id)
	}
	for cause := range g.in[id] {
		delete(g.out[cause], id)
	}
	delete(g.out, id)
	delete(g.in, id)
}

// Effects returns the ids this event causes, sorted for deterministic walks.
func (g *Graph) Effects(cause string) []string {
	effects := make([]string, 0, len(g.out[cause]))
	for effect := range g.out[cause] {
		effects = append(effects, effect)
	}
	sort.Strings(effects)
	return effects
}

// Causes returns the ids recorded as causes of the given event, sorted.
func (g *Graph) Causes(effect string) []string {
	causes := make([]string, 0, len(g.in[effect]))
	for cause := range g.in[effect] {
		causes = append(causes, cause)
	}
	sort.Strings(causes)
	return causes
}

func (g *Graph) EdgeCount() int {
	n := 0
	for _, effects := range g.out {
		n += len(effects)
	}
	return n
}

// Nodes returns every id that participates in at least one edge, sorted.
func (g *Graph) Nodes() []string {
	seen := make(map[string]struct{})
	for cause, effects := range g.out {
		seen[cause] = struct{}{}
		for effect := range effects {
			seen[effect] = struct{}{}
		}
	}
	nodes := make([]string, 0, len(seen))
	for id := range seen {
		nodes = append(nodes, id)
	}
	sort.Strings(nodes)
	return nodes
}

// Cycles finds directed cycles via depth-first search. Each cycle is returned
// as the sequence of ids along the back edge, starting and ending implicitly
// at the first element. Only one cycle is reported per back edge.
func (g *Graph) Cycles() [][]string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make(map[string]int)
	var cycles [][]string
	var stack []string

	var visit func(id string)
	visit = func(id string) {
		color[id] = gray
		stack = append(stack, id)
		for _, effect := range g.Effects(id) {
			switch color[effect] {
			case white:
				visit(effect)
			case gray:
				// Back edge: the cycle is the stack suffix from effect to id.
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == effect {
						cycle := append([]string(nil), stack[i:]...)
						cycles = append(cycles, cycle)
						break
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
	}

	for _, id := range g.Nodes() {
		if color[id] == white {
			visit(id)
		}
	}
	return cycles
}

// WeakestEdge returns the lowest-weight edge along a cycle. Breaking a cycle
// removes this edge, on the heuristic that the weakest link is the least
// established causal claim.
func (g *Graph) WeakestEdge(cycle []string) (cause, effect string, ok bool) {
	if len(cycle) < 2 {
		return "", "", false
	}
	best := -1.0
	for i := range cycle {
		from := cycle[i]
		to := cycle[(i+1)%len(cycle)]
		w, exists := g.EdgeWeight(from, to)
		if !exists {
			continue
		}
		if best < 0 || w < best {
			best = w
			cause, effect = from, to
			ok = true
		}
	}
	return cause, effect, ok
}
