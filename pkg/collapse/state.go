package collapse

import (
	"sort"

	"github.com/ritzau/vertex-graph/pkg/logging"
	"github.com/ritzau/vertex-graph/pkg/model"
)

// State owns the collapse set of one graph view.
// Toggling only flips membership; the visible graph is derived on demand.
type State struct {
	graph     *model.GraphData
	collapsed map[string]bool
	touched   bool // Set by the first user toggle; defaults no longer apply afterwards
}

// NewState creates an empty collapse state.
func NewState() *State {
	return &State{collapsed: make(map[string]bool)}
}

// SetGraph binds the state to a freshly built graph and prunes ids that no longer
// name a vertex or workspace node of it.
func (s *State) SetGraph(data *model.GraphData) {
	s.graph = data
	s.prune()
}

func (s *State) prune() {
	if s.graph == nil {
		return
	}
	index := s.graph.Index()
	for id := range s.collapsed {
		if node, ok := index[id]; !ok || !node.IsCollapsible() {
			logging.Debug("dropping stale collapsed id", "id", id)
			delete(s.collapsed, id)
		}
	}
}

// ApplyDefaults replaces the collapse set with ids, unless the user has already toggled.
// Ids not valid for the current graph are dropped.
func (s *State) ApplyDefaults(ids []string) {
	if s.touched {
		return
	}
	s.collapsed = make(map[string]bool, len(ids))
	for _, id := range ids {
		s.collapsed[id] = true
	}
	s.prune()
}

// Toggle flips the membership of id and reports whether it is now collapsed.
// Ids that do not name a vertex or workspace node of the current graph are ignored.
func (s *State) Toggle(id string) bool {
	node := s.graph.Node(id)
	if node == nil || !node.IsCollapsible() {
		return false
	}

	s.touched = true
	if s.collapsed[id] {
		delete(s.collapsed, id)
		return false
	}
	s.collapsed[id] = true
	return true
}

// IsCollapsed returns true if id is in the collapse set.
func (s *State) IsCollapsed(id string) bool {
	return s.collapsed[id]
}

// Collapsed returns the collapse set, sorted.
func (s *State) Collapsed() []string {
	ids := make([]string, 0, len(s.collapsed))
	for id := range s.collapsed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Visible returns the visible subgraph of the bound graph.
func (s *State) Visible() *model.GraphData {
	return Filter(s.graph, s.collapsed)
}
