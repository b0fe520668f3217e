package robust

import (
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

// KRootNid is the node id of the root.
const KRootNid = 0

// TreeNode is one node of RegTree, stored in a flat slice and built
// breadth-first via AddChilds/SetSplit/SetLeaf, since the
// level-synchronous builder produces a whole depth at a time rather
// than one subtree at a time.
type TreeNode struct {
	Parent                int // -1 at the root
	LeftChild, RightChild int // -1, -1 until AddChilds is called
	SplitIndex            int
	SplitValue            float64
	DefaultLeft           bool
	IsLeafFlag            bool
	LeafValue             float64
	Deleted               bool
	// Fresh marks a leaf created this level by AddChilds that has not
	// yet had FindSplit run on it: ResetPosition's default pass leaves
	// a fresh leaf's rows active so the next level can expand it,
	// rather than retiring them.
	Fresh bool
	// SplitGain records the loss_chg this node's split won by, so the
	// pruner can decide whether the split clears min_split_loss without
	// recomputing the split search.
	SplitGain float64
}

func newTreeNode(parent int) TreeNode {
	return TreeNode{Parent: parent, LeftChild: -1, RightChild: -1, SplitIndex: NoSplitIndex, IsLeafFlag: true}
}

// IsLeaf reports whether this node currently has no children.
func (n TreeNode) IsLeaf() bool { return n.IsLeafFlag }

// IsRoot reports whether this node has no parent.
func (n TreeNode) IsRoot() bool { return n.Parent == -1 }

// GraphDescription renders a node's label for DrawGraph.
func (n TreeNode) GraphDescription(nid int) string {
	var sb strings.Builder
	fmt.Fprintln(&sb, "id:", nid)
	if n.IsLeafFlag {
		fmt.Fprintf(&sb, "leaf = %6.5f", n.LeafValue)
		return sb.String()
	}
	fmt.Fprintf(&sb, "f_%d < %6.5f", n.SplitIndex, n.SplitValue)
	if n.DefaultLeft {
		sb.WriteString("\ndefault: left")
	} else {
		sb.WriteString("\ndefault: right")
	}
	return sb.String()
}

// RegTree is a binary regression tree grown breadth-first by Builder.
// Node 0 is always the root.
type RegTree struct {
	Nodes []TreeNode
}

// NewRegTree returns a tree containing only the root, a leaf with zero
// weight.
func NewRegTree() *RegTree {
	return &RegTree{Nodes: []TreeNode{newTreeNode(-1)}}
}

// AddChilds allocates a left and right child of nid and returns their
// ids. nid must currently be a leaf.
func (t *RegTree) AddChilds(nid int) (left, right int) {
	left = len(t.Nodes)
	t.Nodes = append(t.Nodes, newTreeNode(nid))
	right = len(t.Nodes)
	t.Nodes = append(t.Nodes, newTreeNode(nid))
	t.Nodes[nid].LeftChild = left
	t.Nodes[nid].RightChild = right
	t.Nodes[nid].IsLeafFlag = false
	return left, right
}

// SetSplit installs a split at nid, which must already have children
// from AddChilds.
func (t *RegTree) SetSplit(nid, splitIndex int, splitValue float64, defaultLeft bool) {
	t.Nodes[nid].SplitIndex = splitIndex
	t.Nodes[nid].SplitValue = splitValue
	t.Nodes[nid].DefaultLeft = defaultLeft
	t.Nodes[nid].IsLeafFlag = false
}

// SetLeaf marks nid as a terminal, fully-settled leaf with the given
// weight: ResetPosition will deactivate every row that ends up here.
func (t *RegTree) SetLeaf(nid int, value float64) {
	t.Nodes[nid].IsLeafFlag = true
	t.Nodes[nid].LeafValue = value
	t.Nodes[nid].Fresh = false
}

// SetFreshLeaf marks nid as a leaf that is still a FindSplit candidate
// for the next level: ResetPosition leaves its rows active.
func (t *RegTree) SetFreshLeaf(nid int) {
	t.Nodes[nid].IsLeafFlag = true
	t.Nodes[nid].LeafValue = 0
	t.Nodes[nid].Fresh = true
}

// ChangeToLeaf collapses a subtree into a leaf; used by the pruner to
// remove a split whose loss_chg did not clear the min-split-loss bar.
// Children are marked Deleted, not removed, so node ids stay stable.
func (t *RegTree) ChangeToLeaf(nid int, value float64) {
	left, right := t.Nodes[nid].LeftChild, t.Nodes[nid].RightChild
	if left != -1 {
		t.Nodes[left].Deleted = true
	}
	if right != -1 {
		t.Nodes[right].Deleted = true
	}
	t.Nodes[nid].LeftChild = -1
	t.Nodes[nid].RightChild = -1
	t.SetLeaf(nid, value)
}

// recurrentDraw walks children via LeftChild/RightChild, adding a
// graphviz node and edge for each.
func recurrentDraw(g *cgraph.Graph, tree *RegTree, nid int, parentNode *cgraph.Node) error {
	currentNode, err := g.CreateNode(fmt.Sprint(nid))
	if err != nil {
		return err
	}
	if parentNode != nil {
		if _, err := g.CreateEdge("", parentNode, currentNode); err != nil {
			return err
		}
	}

	node := tree.Nodes[nid]
	currentNode.SetLabel(node.GraphDescription(nid))
	if node.IsLeaf() {
		currentNode.SetShape(cgraph.BoxShape)
		return nil
	}
	if err := recurrentDraw(g, tree, node.LeftChild, currentNode); err != nil {
		return err
	}
	return recurrentDraw(g, tree, node.RightChild, currentNode)
}

// DrawGraph renders the tree with go-graphviz.
func (t *RegTree) DrawGraph() (*graphviz.Graphviz, *cgraph.Graph, error) {
	gv := graphviz.New()
	graph, err := gv.Graph()
	if err != nil {
		return nil, nil, err
	}
	if err := recurrentDraw(graph, t, KRootNid, nil); err != nil {
		return nil, nil, err
	}
	return gv, graph, nil
}
