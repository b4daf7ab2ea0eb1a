package simulation

import (
	"math"
	"time"

	"github.com/ritzau/vertex-graph/pkg/model"
)

// Simulator advances node positions. The engine depends on this interface so the
// force model can be swapped.
type Simulator interface {
	// Tick advances the simulation by dt and reports whether positions changed.
	Tick(dt time.Duration) bool
	// Alpha returns the current cooling parameter.
	Alpha() float64
	// Reheat raises alpha so a settled layout moves again.
	Reheat(alpha float64)
	// Stop freezes the simulation; further ticks are no-ops.
	Stop()
	// Running reports whether the simulation is still moving nodes.
	Running() bool
}

// Force contributes velocity to the simulated nodes on every step.
type Force interface {
	Apply(nodes []*model.GraphNode, alpha float64)
}

// Config holds the cooling parameters. Force parameters live on the forces themselves.
type Config struct {
	AlphaMin      float64       // Simulation stops moving below this alpha
	AlphaDecay    float64       // Fraction of the distance to AlphaTarget removed per step
	AlphaTarget   float64       // Alpha converges to this value
	VelocityDecay float64       // Fraction of velocity lost per step
	StepInterval  time.Duration // Nominal duration of one step; longer ticks run several steps
	MaxSteps      int           // Upper bound on steps per tick
}

// DefaultConfig mirrors the usual force-directed defaults: about 300 steps to settle.
func DefaultConfig() Config {
	alphaMin := 0.001
	return Config{
		AlphaMin:      alphaMin,
		AlphaDecay:    1 - math.Pow(alphaMin, 1.0/300),
		AlphaTarget:   0,
		VelocityDecay: 0.4,
		StepInterval:  time.Second / 60,
		MaxSteps:      4,
	}
}

const (
	initialRadius = 10.0
)

var initialAngle = math.Pi * (3 - math.Sqrt(5))

// Simulation integrates forces over a fixed node set, cooling alpha towards AlphaTarget.
type Simulation struct {
	cfg     Config
	nodes   []*model.GraphNode
	forces  []Force
	alpha   float64
	stopped bool
}

// New creates a simulation over nodes. Nodes that were never seeded get a phyllotaxis
// placement around their target; seeded nodes keep their current position and velocity.
func New(nodes []*model.GraphNode, cfg Config, forces ...Force) *Simulation {
	s := &Simulation{
		cfg:    cfg,
		nodes:  nodes,
		forces: forces,
		alpha:  1,
	}
	s.seed()
	return s
}

func (s *Simulation) seed() {
	for i, node := range s.nodes {
		if node.Seeded {
			continue
		}
		radius := initialRadius * math.Sqrt(0.5+float64(i))
		angle := float64(i) * initialAngle
		node.X = node.TargetX + radius*math.Cos(angle)
		node.Y = node.TargetY + radius*math.Sin(angle)
		node.VX, node.VY = 0, 0
		node.Seeded = true
	}
}

// Nodes returns the simulated nodes.
func (s *Simulation) Nodes() []*model.GraphNode {
	return s.nodes
}

// Alpha returns the current cooling parameter.
func (s *Simulation) Alpha() float64 {
	return s.alpha
}

// Reheat raises alpha to at least the given value and resumes a stopped simulation.
func (s *Simulation) Reheat(alpha float64) {
	s.stopped = false
	if alpha > s.alpha {
		s.alpha = alpha
	}
}

// Stop freezes the simulation.
func (s *Simulation) Stop() {
	s.stopped = true
}

// Running reports whether a tick would move nodes.
func (s *Simulation) Running() bool {
	return !s.stopped && (s.alpha >= s.cfg.AlphaMin || s.cfg.AlphaTarget >= s.cfg.AlphaMin)
}

// Tick runs as many steps as dt covers, at least one and at most MaxSteps.
func (s *Simulation) Tick(dt time.Duration) bool {
	if !s.Running() {
		return false
	}

	steps := 1
	if s.cfg.StepInterval > 0 && dt > s.cfg.StepInterval {
		steps = int(dt / s.cfg.StepInterval)
	}
	if s.cfg.MaxSteps > 0 && steps > s.cfg.MaxSteps {
		steps = s.cfg.MaxSteps
	}

	for i := 0; i < steps; i++ {
		s.Step()
	}
	return true
}

// Step advances the simulation by exactly one step.
func (s *Simulation) Step() {
	s.alpha += (s.cfg.AlphaTarget - s.alpha) * s.cfg.AlphaDecay

	for _, force := range s.forces {
		force.Apply(s.nodes, s.alpha)
	}

	keep := 1 - s.cfg.VelocityDecay
	for _, node := range s.nodes {
		node.VX *= keep
		node.VY *= keep
		node.X += node.VX
		node.Y += node.VY
	}
}
