package layout

import (
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestTidy_SingleNode(t *testing.T) {
	root := &TreeNode{ID: "root"}
	Tidy(root, DefaultTreeConfig())

	if root.X != 0 || root.Y != 0 {
		t.Errorf("Expected root at (0, 0), got (%g, %g)", root.X, root.Y)
	}
}

func TestTidy_SiblingsCenteredUnderParent(t *testing.T) {
	a := &TreeNode{ID: "a"}
	b := &TreeNode{ID: "b"}
	root := &TreeNode{ID: "root", Children: []*TreeNode{a, b}}

	Tidy(root, DefaultTreeConfig())

	if !approx(root.X, 0) {
		t.Errorf("Expected root x 0, got %g", root.X)
	}
	if !approx(a.X, -66) || !approx(b.X, 66) {
		t.Errorf("Expected children at -66 and 66, got %g and %g", a.X, b.X)
	}
	if !approx(a.Y, 120) || !approx(b.Y, 120) {
		t.Errorf("Expected children at depth offset 120, got %g and %g", a.Y, b.Y)
	}
}

func TestTidy_CousinSeparation(t *testing.T) {
	a1 := &TreeNode{ID: "a1"}
	a2 := &TreeNode{ID: "a2"}
	b1 := &TreeNode{ID: "b1"}
	a := &TreeNode{ID: "a", Children: []*TreeNode{a1, a2}}
	b := &TreeNode{ID: "b", Children: []*TreeNode{b1}}
	root := &TreeNode{ID: "root", Children: []*TreeNode{a, b}}

	Tidy(root, DefaultTreeConfig())

	if !approx(a2.X-a1.X, 1.1*120) {
		t.Errorf("Expected sibling gap %g, got %g", 1.1*120, a2.X-a1.X)
	}
	if !approx(b1.X-a2.X, 1.6*120) {
		t.Errorf("Expected cousin gap %g, got %g", 1.6*120, b1.X-a2.X)
	}
	if !approx(a.X, -b.X) {
		t.Errorf("Expected parents symmetric around the root, got %g and %g", a.X, b.X)
	}
	if !approx(b1.Y, 240) {
		t.Errorf("Expected grandchildren at 240, got %g", b1.Y)
	}
}

func TestTidy_NoOverlapInWideTree(t *testing.T) {
	cfg := DefaultTreeConfig()
	root := &TreeNode{ID: "root"}
	for i := 0; i < 4; i++ {
		child := &TreeNode{ID: "c"}
		for j := 0; j < 3; j++ {
			child.Children = append(child.Children, &TreeNode{ID: "g"})
		}
		root.Children = append(root.Children, child)
	}

	Tidy(root, cfg)

	var level []*TreeNode
	for _, c := range root.Children {
		level = append(level, c.Children...)
	}
	for i := 1; i < len(level); i++ {
		gap := level[i].X - level[i-1].X
		if gap < cfg.SiblingSeparation*cfg.NodeWidth-1e-9 {
			t.Errorf("Expected grandchildren at least %g apart, got %g at index %d",
				cfg.SiblingSeparation*cfg.NodeWidth, gap, i)
		}
	}
}

func TestTidy_DeepChain(t *testing.T) {
	root := &TreeNode{ID: "root"}
	current := root
	for i := 0; i < 500; i++ {
		next := &TreeNode{ID: "n"}
		current.Children = []*TreeNode{next}
		current = next
	}

	Tidy(root, DefaultTreeConfig())

	if !approx(current.X, 0) || !approx(current.Y, 500*120) {
		t.Errorf("Expected the chain end at (0, %d), got (%g, %g)", 500*120, current.X, current.Y)
	}
}
