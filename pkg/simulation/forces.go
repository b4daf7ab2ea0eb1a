package simulation

import (
	"math"
	"math/rand/v2"

	"github.com/ritzau/vertex-graph/pkg/model"
	"gonum.org/v1/gonum/spatial/barneshut"
	"gonum.org/v1/gonum/spatial/r2"
)

// Params holds the force parameters of the graph view.
type Params struct {
	AnchorLinkDistance float64 // Root to workspace
	AnchorLinkStrength float64
	EdgeDistance       float64 // Drawn hierarchy edges
	EdgeStrength       float64
	Charge             float64 // Negative repels
	Theta              float64 // Barnes-Hut accuracy; 0 computes every pair
	CollideRadius      float64
	PositionStrength   float64 // Pull towards TargetX/TargetY
	CenterX, CenterY   float64
	Seed               uint64 // Seed for the jitter that separates coincident nodes
}

// DefaultParams returns the force parameters around the given viewport center.
func DefaultParams(cx, cy float64) Params {
	return Params{
		AnchorLinkDistance: 120,
		AnchorLinkStrength: 0.08,
		EdgeDistance:       100,
		EdgeStrength:       0.45,
		Charge:             -200,
		Theta:              0.9,
		CollideRadius:      48,
		PositionStrength:   0.25,
		CenterX:            cx,
		CenterY:            cy,
		Seed:               1,
	}
}

// StandardForces builds link, many-body, center, collide and target forces for a graph.
func StandardForces(data *model.GraphData, p Params) []Force {
	rng := rand.New(rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15))
	jiggle := func() float64 { return (rng.Float64() - 0.5) * 1e-6 }

	return []Force{
		NewLinkForce(data.Links, p, jiggle),
		&ManyBodyForce{Strength: p.Charge, Theta: p.Theta, DistanceMin2: 1},
		&CenterForce{X: p.CenterX, Y: p.CenterY, Strength: 1},
		&CollideForce{Radius: p.CollideRadius, Strength: 1, jiggle: jiggle},
		&TargetForce{Strength: p.PositionStrength},
	}
}

// LinkForce pulls linked nodes towards a rest distance.
type LinkForce struct {
	links    []*model.GraphLink
	distance []float64
	strength []float64
	bias     []float64 // Share of the correction applied to the target
	jiggle   func() float64
}

// NewLinkForce creates a link force. Anchor links are long and weak, edges short and stiff.
func NewLinkForce(links []*model.GraphLink, p Params, jiggle func() float64) *LinkForce {
	f := &LinkForce{
		links:    links,
		distance: make([]float64, len(links)),
		strength: make([]float64, len(links)),
		bias:     make([]float64, len(links)),
		jiggle:   jiggle,
	}

	degree := make(map[*model.GraphNode]int)
	for _, link := range links {
		degree[link.Source]++
		degree[link.Target]++
	}

	for i, link := range links {
		if link.Kind == model.LinkKindAnchor {
			f.distance[i] = p.AnchorLinkDistance
			f.strength[i] = p.AnchorLinkStrength
		} else {
			f.distance[i] = p.EdgeDistance
			f.strength[i] = p.EdgeStrength
		}
		s, t := float64(degree[link.Source]), float64(degree[link.Target])
		f.bias[i] = s / (s + t)
	}
	return f
}

// Apply implements Force.
func (f *LinkForce) Apply(_ []*model.GraphNode, alpha float64) {
	for i, link := range f.links {
		source, target := link.Source, link.Target
		x := target.X + target.VX - source.X - source.VX
		y := target.Y + target.VY - source.Y - source.VY
		if x == 0 {
			x = f.jiggle()
		}
		if y == 0 {
			y = f.jiggle()
		}

		l := math.Sqrt(x*x + y*y)
		l = (l - f.distance[i]) / l * alpha * f.strength[i]
		x *= l
		y *= l

		b := f.bias[i]
		target.VX -= x * b
		target.VY -= y * b
		source.VX += x * (1 - b)
		source.VY += y * (1 - b)
	}
}

// particle adapts a node to the Barnes-Hut plane. Every node has unit mass.
type particle struct {
	node *model.GraphNode
}

func (p *particle) Coord2() r2.Vec { return r2.Vec{X: p.node.X, Y: p.node.Y} }
func (p *particle) Mass() float64  { return 1 }

// ManyBodyForce applies an inverse-distance charge between all nodes, approximated
// with a Barnes-Hut quadtree.
type ManyBodyForce struct {
	Strength     float64
	Theta        float64
	DistanceMin2 float64 // Squared distances below this are softened
}

func (f *ManyBodyForce) charge(p1, p2 barneshut.Particle2, _, m2 float64, v r2.Vec) r2.Vec {
	if p2 != nil && p1 == p2 {
		return r2.Vec{}
	}
	d2 := r2.Norm2(v)
	if d2 == 0 {
		return r2.Vec{}
	}
	if d2 < f.DistanceMin2 {
		d2 = math.Sqrt(f.DistanceMin2 * d2)
	}
	return r2.Scale(f.Strength*m2/d2, v)
}

// Apply implements Force.
func (f *ManyBodyForce) Apply(nodes []*model.GraphNode, alpha float64) {
	if len(nodes) < 2 {
		return
	}

	particles := make([]barneshut.Particle2, len(nodes))
	for i, node := range nodes {
		particles[i] = &particle{node: node}
	}

	theta := f.Theta
	plane, err := barneshut.NewPlane(particles)
	if err != nil {
		// Coincident nodes cannot be split into quadrants; sum every pair instead
		plane = &barneshut.Plane{Particles: particles}
		theta = 0
	}

	// Compute all forces before moving anything
	deltas := make([]r2.Vec, len(particles))
	for i, p := range particles {
		deltas[i] = plane.ForceOn(p, theta, f.charge)
	}
	for i, node := range nodes {
		node.VX += deltas[i].X * alpha
		node.VY += deltas[i].Y * alpha
	}
}

// CenterForce translates all nodes so their mean position sits at (X, Y).
type CenterForce struct {
	X, Y     float64
	Strength float64
}

// Apply implements Force.
func (f *CenterForce) Apply(nodes []*model.GraphNode, _ float64) {
	if len(nodes) == 0 {
		return
	}
	var sx, sy float64
	for _, node := range nodes {
		sx += node.X
		sy += node.Y
	}
	n := float64(len(nodes))
	dx := (sx/n - f.X) * f.Strength
	dy := (sy/n - f.Y) * f.Strength
	for _, node := range nodes {
		node.X -= dx
		node.Y -= dy
	}
}

// CollideForce pushes apart nodes whose circles overlap.
// Candidate pairs come from a uniform grid with cells one diameter wide.
type CollideForce struct {
	Radius   float64
	Strength float64
	jiggle   func() float64
}

type cell struct{ x, y int }

// Apply implements Force.
func (f *CollideForce) Apply(nodes []*model.GraphNode, _ float64) {
	if len(nodes) < 2 || f.Radius <= 0 {
		return
	}
	jiggle := f.jiggle
	if jiggle == nil {
		jiggle = func() float64 { return 1e-7 }
	}

	diameter := 2 * f.Radius
	grid := make(map[cell][]int, len(nodes))
	cellOf := func(node *model.GraphNode) cell {
		return cell{
			x: int(math.Floor((node.X + node.VX) / diameter)),
			y: int(math.Floor((node.Y + node.VY) / diameter)),
		}
	}
	for i, node := range nodes {
		c := cellOf(node)
		grid[c] = append(grid[c], i)
	}

	for i, node := range nodes {
		xi := node.X + node.VX
		yi := node.Y + node.VY
		c := cellOf(node)

		for gx := c.x - 1; gx <= c.x+1; gx++ {
			for gy := c.y - 1; gy <= c.y+1; gy++ {
				for _, j := range grid[cell{gx, gy}] {
					if j <= i {
						continue
					}
					other := nodes[j]
					x := xi - other.X - other.VX
					y := yi - other.Y - other.VY
					l := x*x + y*y
					if l >= diameter*diameter {
						continue
					}
					if x == 0 {
						x = jiggle()
						l += x * x
					}
					if y == 0 {
						y = jiggle()
						l += y * y
					}
					l = math.Sqrt(l)
					l = (diameter - l) / l * f.Strength
					x *= l
					y *= l
					// Equal radii split the correction evenly
					node.VX += x * 0.5
					node.VY += y * 0.5
					other.VX -= x * 0.5
					other.VY -= y * 0.5
				}
			}
		}
	}
}

// TargetForce pulls every node towards its layout target.
type TargetForce struct {
	Strength float64
}

// Apply implements Force.
func (f *TargetForce) Apply(nodes []*model.GraphNode, alpha float64) {
	for _, node := range nodes {
		node.VX += (node.TargetX - node.X) * f.Strength * alpha
		node.VY += (node.TargetY - node.Y) * f.Strength * alpha
	}
}
