package cycles

import (
	"gonum.org/v1/gonum/graph"
)

// TarjanSCC finds all strongly connected components using Tarjan's algorithm.
// The walk keeps an explicit frame stack so long parent chains do not grow the goroutine stack.
type TarjanSCC struct {
	graph   graph.Directed
	index   int
	stack   []int64
	onStack map[int64]bool
	indices map[int64]int
	lowLink map[int64]int
	sccs    [][]int64
}

// frame is one suspended strongConnect call: the node and its remaining successors.
type frame struct {
	nodeID     int64
	successors []int64
	next       int
}

// NewTarjanSCC creates a new Tarjan SCC finder
func NewTarjanSCC(g graph.Directed) *TarjanSCC {
	return &TarjanSCC{
		graph:   g,
		stack:   make([]int64, 0),
		onStack: make(map[int64]bool),
		indices: make(map[int64]int),
		lowLink: make(map[int64]int),
		sccs:    make([][]int64, 0),
	}
}

// FindSCCs returns the strongly connected components with more than one node.
func (t *TarjanSCC) FindSCCs() [][]int64 {
	nodes := t.graph.Nodes()
	for nodes.Next() {
		node := nodes.Node()
		if _, visited := t.indices[node.ID()]; !visited {
			t.strongConnect(node.ID())
		}
	}
	return t.sccs
}

func (t *TarjanSCC) visit(nodeID int64) *frame {
	t.indices[nodeID] = t.index
	t.lowLink[nodeID] = t.index
	t.index++

	t.stack = append(t.stack, nodeID)
	t.onStack[nodeID] = true

	f := &frame{nodeID: nodeID}
	successors := t.graph.From(nodeID)
	for successors.Next() {
		f.successors = append(f.successors, successors.Node().ID())
	}
	return f
}

func (t *TarjanSCC) strongConnect(rootID int64) {
	frames := []*frame{t.visit(rootID)}

	for len(frames) > 0 {
		f := frames[len(frames)-1]

		if f.next < len(f.successors) {
			successorID := f.successors[f.next]
			f.next++

			if _, visited := t.indices[successorID]; !visited {
				frames = append(frames, t.visit(successorID))
			} else if t.onStack[successorID] {
				t.lowLink[f.nodeID] = min(t.lowLink[f.nodeID], t.indices[successorID])
			}
			continue
		}

		// All successors done: pop the frame and propagate the low link to the caller
		frames = frames[:len(frames)-1]
		if len(frames) > 0 {
			parent := frames[len(frames)-1]
			t.lowLink[parent.nodeID] = min(t.lowLink[parent.nodeID], t.lowLink[f.nodeID])
		}

		if t.lowLink[f.nodeID] == t.indices[f.nodeID] {
			scc := make([]int64, 0)
			for {
				w := t.stack[len(t.stack)-1]
				t.stack = t.stack[:len(t.stack)-1]
				t.onStack[w] = false
				scc = append(scc, w)
				if w == f.nodeID {
					break
				}
			}
			// Only components with more than one node are cycles
			if len(scc) > 1 {
				t.sccs = append(t.sccs, scc)
			}
		}
	}
}
