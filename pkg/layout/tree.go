package layout

// TreeConfig configures the tidy tree pass.
type TreeConfig struct {
	NodeWidth         float64 // Horizontal spacing unit between adjacent nodes
	NodeHeight        float64 // Vertical distance between depth levels
	SiblingSeparation float64 // Separation between nodes sharing a parent, in NodeWidth units
	CousinSeparation  float64 // Separation between nodes with different parents
}

// DefaultTreeConfig returns the spacing used by the graph view.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		NodeWidth:         120,
		NodeHeight:        120,
		SiblingSeparation: 1.1,
		CousinSeparation:  1.6,
	}
}

// TreeNode is the input to the tidy tree pass. After Tidy returns, X and Y hold the
// offset of the node relative to the tree root.
type TreeNode struct {
	ID       string
	Children []*TreeNode
	X, Y     float64
}

// walkerNode carries the Buchheim/Walker bookkeeping for one TreeNode.
type walkerNode struct {
	node     *TreeNode
	parent   *walkerNode
	children []*walkerNode
	depth    int

	index    int         // Position among siblings
	ancestor *walkerNode // a
	thread   *walkerNode // t
	apport   *walkerNode // A: default ancestor for apportion

	prelim   float64 // z
	modifier float64 // m
	change   float64 // c
	shift    float64 // s
}

// Tidy lays out a rooted tree in linear time with the Buchheim/Walker algorithm.
// The root ends at (0, 0); children grow downwards by NodeHeight per level.
func Tidy(root *TreeNode, cfg TreeConfig) {
	if root == nil {
		return
	}

	top := buildWalkerTree(root)

	// Sentinel parent so the root has a sibling list
	sentinel := &walkerNode{children: []*walkerNode{top}}
	top.parent = sentinel

	postOrder(top, func(v *walkerNode) { firstWalk(v, cfg) })
	sentinel.modifier = -top.prelim
	preOrder(top, secondWalk)

	preOrder(top, func(v *walkerNode) {
		v.node.X *= cfg.NodeWidth
		v.node.Y = float64(v.depth) * cfg.NodeHeight
	})
}

func buildWalkerTree(root *TreeNode) *walkerNode {
	top := &walkerNode{node: root}
	top.ancestor = top

	stack := []*walkerNode{top}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if len(v.node.Children) == 0 {
			continue
		}
		v.children = make([]*walkerNode, len(v.node.Children))
		for i, child := range v.node.Children {
			w := &walkerNode{node: child, parent: v, depth: v.depth + 1, index: i}
			w.ancestor = w
			v.children[i] = w
			stack = append(stack, w)
		}
	}
	return top
}

func separation(a, b *walkerNode, cfg TreeConfig) float64 {
	if a.parent == b.parent {
		return cfg.SiblingSeparation
	}
	return cfg.CousinSeparation
}

func nextLeft(v *walkerNode) *walkerNode {
	if len(v.children) > 0 {
		return v.children[0]
	}
	return v.thread
}

func nextRight(v *walkerNode) *walkerNode {
	if len(v.children) > 0 {
		return v.children[len(v.children)-1]
	}
	return v.thread
}

func moveSubtree(wm, wp *walkerNode, shift float64) {
	change := shift / float64(wp.index-wm.index)
	wp.change -= change
	wp.shift += shift
	wm.change += change
	wp.prelim += shift
	wp.modifier += shift
}

func executeShifts(v *walkerNode) {
	shift, change := 0.0, 0.0
	for i := len(v.children) - 1; i >= 0; i-- {
		w := v.children[i]
		w.prelim += shift
		w.modifier += shift
		change += w.change
		shift += w.shift + change
	}
}

func nextAncestor(vim, v, ancestor *walkerNode) *walkerNode {
	if vim.ancestor.parent == v.parent {
		return vim.ancestor
	}
	return ancestor
}

func firstWalk(v *walkerNode, cfg TreeConfig) {
	siblings := v.parent.children
	var w *walkerNode
	if v.index > 0 {
		w = siblings[v.index-1]
	}

	if len(v.children) > 0 {
		executeShifts(v)
		midpoint := (v.children[0].prelim + v.children[len(v.children)-1].prelim) / 2
		if w != nil {
			v.prelim = w.prelim + separation(v, w, cfg)
			v.modifier = v.prelim - midpoint
		} else {
			v.prelim = midpoint
		}
	} else if w != nil {
		v.prelim = w.prelim + separation(v, w, cfg)
	}

	defaultAncestor := v.parent.apport
	if defaultAncestor == nil {
		defaultAncestor = siblings[0]
	}
	v.parent.apport = apportion(v, w, defaultAncestor, cfg)
}

func apportion(v, w, ancestor *walkerNode, cfg TreeConfig) *walkerNode {
	if w == nil {
		return ancestor
	}

	vip, vop := v, v
	vim := w
	vom := vip.parent.children[0]
	sip, sop := vip.modifier, vop.modifier
	sim, som := vim.modifier, vom.modifier

	for {
		vim = nextRight(vim)
		vip = nextLeft(vip)
		if vim == nil || vip == nil {
			break
		}
		vom = nextLeft(vom)
		vop = nextRight(vop)
		vop.ancestor = v

		shift := vim.prelim + sim - vip.prelim - sip + separation(vim, vip, cfg)
		if shift > 0 {
			moveSubtree(nextAncestor(vim, v, ancestor), v, shift)
			sip += shift
			sop += shift
		}
		sim += vim.modifier
		sip += vip.modifier
		som += vom.modifier
		sop += vop.modifier
	}

	if vim != nil && nextRight(vop) == nil {
		vop.thread = vim
		vop.modifier += sim - sop
	}
	if vip != nil && nextLeft(vom) == nil {
		vom.thread = vip
		vom.modifier += sip - som
		ancestor = v
	}
	return ancestor
}

func secondWalk(v *walkerNode) {
	v.node.X = v.prelim + v.parent.modifier
	v.modifier += v.parent.modifier
}

// postOrder visits children before their parent, iteratively.
func postOrder(root *walkerNode, visit func(*walkerNode)) {
	var order []*walkerNode
	stack := []*walkerNode{root}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, v)
		stack = append(stack, v.children...)
	}
	// order is a reverse post-order with children visited right to left
	for i := len(order) - 1; i >= 0; i-- {
		visit(order[i])
	}
}

// preOrder visits a parent before its children, iteratively.
func preOrder(root *walkerNode, visit func(*walkerNode)) {
	stack := []*walkerNode{root}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit(v)
		for i := len(v.children) - 1; i >= 0; i-- {
			stack = append(stack, v.children[i])
		}
	}
}
