package comment

import (
	"math/rand/v2"
	"testing"

	"github.com/google/uuid"
	"github.com/meikuraledutech/nodegraph"
	"github.com/meikuraledutech/nodegraph/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// boxGeometry makes every node a 50x50 square.
type boxGeometry struct{}

func (boxGeometry) Size(nodegraph.Model, nodegraph.NodeID) nodegraph.Size {
	return nodegraph.Size{W: 50, H: 50}
}

func (boxGeometry) PortPosition(nodegraph.Model, nodegraph.NodeID, nodegraph.PortType, nodegraph.PortIndex) nodegraph.Point {
	return nodegraph.Point{}
}

type fixture struct {
	graph    *nodegraph.Graph
	scene    *scene.Scene
	comments *Manager
}

func newFixture() *fixture {
	g := nodegraph.NewGraph()
	s := scene.New(g, scene.WithGeometry(boxGeometry{}))
	return &fixture{graph: g, scene: s, comments: NewManager(g, s)}
}

func (f *fixture) node(t *testing.T, x, y float64) nodegraph.NodeID {
	t.Helper()
	id := f.graph.AddNode("test")
	require.True(t, f.graph.SetNodeData(id, nodegraph.RolePosition, nodegraph.Point{X: x, Y: y}))
	return id
}

func (f *fixture) comment(t *testing.T, id uuid.UUID) *Comment {
	t.Helper()
	c, ok := f.comments.Comment(id)
	require.True(t, ok)
	return c
}

func (f *fixture) position(id nodegraph.NodeID) nodegraph.Point {
	return nodegraph.NodeValue[nodegraph.Point](f.graph, id, nodegraph.RolePosition)
}

// assertConsistent checks exclusive ownership and that no direct member of a
// comment lies inside one of that comment's children.
func assertConsistent(t *testing.T, f *fixture) {
	t.Helper()
	owners := make(map[nodegraph.NodeID]int)
	for _, c := range f.comments.Comments() {
		for _, n := range c.Nodes() {
			owners[n]++
			b, ok := f.scene.NodeBounds(n)
			require.True(t, ok)
			for _, child := range c.Children() {
				cc := f.comment(t, child)
				assert.False(t, cc.Rect.Contains(b), "node %d of %s inside child %s", n, c.ID, child)
			}
		}
		for _, child := range c.Children() {
			p, ok := f.comment(t, child).Parent()
			assert.True(t, ok)
			assert.Equal(t, c.ID, p)
		}
	}
	for n, count := range owners {
		assert.Equal(t, 1, count, "node %d owned %d times", n, count)
	}
}

func TestCreate_DefaultsAndMinimum(t *testing.T) {
	f := newFixture()
	a := f.comment(t, f.comments.Create("note", nodegraph.Rect{X: 5, Y: 5}))
	assert.Equal(t, nodegraph.Rect{X: 5, Y: 5, W: DefaultWidth, H: DefaultHeight}, a.Rect)
	assert.Equal(t, "note", a.Text)

	b := f.comment(t, f.comments.Create("tiny", nodegraph.Rect{X: 1000, Y: 0, W: 10, H: 10}))
	assert.Equal(t, nodegraph.Rect{X: 1000, Y: 0, W: MinWidth, H: MinHeight}, b.Rect)

	require.True(t, f.comments.SetText(b.ID, "renamed"))
	assert.Equal(t, "renamed", b.Text)
}

func TestAddNode_RefitsAndIsExclusive(t *testing.T) {
	f := newFixture()
	n := f.node(t, 100, 100)
	cid := f.comments.Create("note", nodegraph.Rect{})
	other := f.comments.Create("other", nodegraph.Rect{X: 1000, Y: 1000})

	require.True(t, f.comments.AddNode(cid, n))
	assert.Equal(t, nodegraph.Rect{X: 80, Y: 50, W: 150, H: 120}, f.comment(t, cid).Rect)

	assert.False(t, f.comments.AddNode(other, n), "owned by another comment")
	assert.False(t, f.comments.AddNode(cid, n), "already a member")
	assert.False(t, f.comments.AddNode(cid, 99), "no such node")

	owner, ok := f.comments.CommentOf(n)
	require.True(t, ok)
	assert.Equal(t, cid, owner)

	require.True(t, f.comments.RemoveNode(cid, n))
	assert.False(t, f.comments.RemoveNode(cid, n))
	_, ok = f.comments.CommentOf(n)
	assert.False(t, ok)
}

func TestAddChildComment_EvictsParentMembers(t *testing.T) {
	f := newFixture()
	child := f.comments.Create("child", nodegraph.Rect{X: -10, Y: -10, W: 100, H: 100})
	parent := f.comments.Create("parent", nodegraph.Rect{X: 1000, Y: 1000})
	n1 := f.node(t, 0, 0)
	n2 := f.node(t, 400, 400)
	require.True(t, f.comments.AddNode(parent, n1))
	require.True(t, f.comments.AddNode(parent, n2))

	require.True(t, f.comments.AddChildComment(parent, child))

	p := f.comment(t, parent)
	c := f.comment(t, child)
	assert.Equal(t, []uuid.UUID{child}, p.Children())
	got, ok := c.Parent()
	require.True(t, ok)
	assert.Equal(t, parent, got)

	assert.Equal(t, []nodegraph.NodeID{n2}, p.Nodes())
	assert.Empty(t, c.Nodes(), "evicted nodes are not handed to the child")
	_, owned := f.comments.CommentOf(n1)
	assert.False(t, owned)

	// Bounds cover the remaining node and the child, plus padding and header.
	assert.Equal(t, nodegraph.Rect{X: -30, Y: -60, W: 500, H: 530}, p.Rect)

	assert.False(t, f.comments.AddNode(parent, n1), "inside a child")
	assert.True(t, f.comments.AddNode(child, n1))
	assertConsistent(t, f)
}

func TestAddChildComment_Rejections(t *testing.T) {
	f := newFixture()
	a := f.comments.Create("a", nodegraph.Rect{X: 0, Y: 0})
	b := f.comments.Create("b", nodegraph.Rect{X: 1000, Y: 0})
	require.True(t, f.comments.AddChildComment(a, b))

	assert.False(t, f.comments.AddChildComment(a, b), "already a child")
	assert.False(t, f.comments.AddChildComment(b, a), "would create a cycle")
	assert.False(t, f.comments.AddChildComment(a, a))
	assert.False(t, f.comments.AddChildComment(a, uuid.New()))
}

func TestRemoveChildComment(t *testing.T) {
	f := newFixture()
	a := f.comments.Create("a", nodegraph.Rect{X: 0, Y: 0})
	b := f.comments.Create("b", nodegraph.Rect{X: 1000, Y: 0})
	require.True(t, f.comments.AddChildComment(a, b))
	rect := f.comment(t, b).Rect

	require.True(t, f.comments.RemoveChildComment(a, b))
	assert.Empty(t, f.comment(t, a).Children())
	_, ok := f.comment(t, b).Parent()
	assert.False(t, ok)
	assert.Equal(t, rect, f.comment(t, b).Rect, "the former child keeps its bounds")

	assert.False(t, f.comments.RemoveChildComment(a, b))
}

func TestCreate_AttachesToSmallestContainer(t *testing.T) {
	f := newFixture()
	big := f.comments.Create("big", nodegraph.Rect{X: 0, Y: 0, W: 1000, H: 1000})
	mid := f.comments.Create("mid", nodegraph.Rect{X: 100, Y: 100, W: 500, H: 500})
	small := f.comments.Create("small", nodegraph.Rect{X: 150, Y: 150, W: 200, H: 200})

	p, _ := f.comment(t, mid).Parent()
	assert.Equal(t, big, p)
	p, _ = f.comment(t, small).Parent()
	assert.Equal(t, mid, p)
	assert.Equal(t, []uuid.UUID{mid}, f.comment(t, big).Children())
}

func TestMove_CascadesAndReparents(t *testing.T) {
	f := newFixture()
	big := f.comments.Create("big", nodegraph.Rect{X: 0, Y: 0, W: 1000, H: 1000})
	mid := f.comments.Create("mid", nodegraph.Rect{X: 100, Y: 100, W: 500, H: 500})
	small := f.comments.Create("small", nodegraph.Rect{X: 150, Y: 150, W: 200, H: 200})
	inSmall := f.node(t, 200, 200)
	inMid := f.node(t, 450, 450)
	require.True(t, f.comments.AddNode(small, inSmall))
	require.True(t, f.comments.AddNode(mid, inMid))
	assertConsistent(t, f)

	midBefore := f.comment(t, mid).Rect
	smallBefore := f.comment(t, small).Rect
	delta := nodegraph.Point{X: 3000, Y: 3000}

	require.True(t, f.comments.Move(mid, delta))

	assert.Equal(t, midBefore.Translate(delta), f.comment(t, mid).Rect)
	assert.Equal(t, smallBefore.Translate(delta), f.comment(t, small).Rect)
	assert.Equal(t, nodegraph.Point{X: 3200, Y: 3200}, f.position(inSmall))
	assert.Equal(t, nodegraph.Point{X: 3450, Y: 3450}, f.position(inMid))

	// Still nested inside the moved comment, but no longer inside big.
	p, _ := f.comment(t, small).Parent()
	assert.Equal(t, mid, p)
	_, ok := f.comment(t, mid).Parent()
	assert.False(t, ok)
	assert.Empty(t, f.comment(t, big).Children())

	// Moving back re-attaches.
	require.True(t, f.comments.Move(mid, delta.Neg()))
	p, _ = f.comment(t, mid).Parent()
	assert.Equal(t, big, p)
	assertConsistent(t, f)
}

func TestMove_IntoParentMemberEvicts(t *testing.T) {
	f := newFixture()
	parent := f.comments.Create("parent", nodegraph.Rect{X: 0, Y: 0, W: 1000, H: 1000})
	child := f.comments.Create("child", nodegraph.Rect{X: 500, Y: 500, W: 200, H: 200})
	n := f.node(t, 100, 100)
	require.True(t, f.comments.AddNode(parent, n))
	require.Equal(t, []uuid.UUID{child}, f.comment(t, parent).Children())

	c := f.comment(t, child).Rect
	require.True(t, f.comments.Move(child, nodegraph.Point{X: 90 - c.X, Y: 90 - c.Y}))

	assert.False(t, f.comment(t, parent).HasNode(n))
	assertConsistent(t, f)
}

func TestNodeMovedIntoChildIsEvicted(t *testing.T) {
	f := newFixture()
	parent := f.comments.Create("parent", nodegraph.Rect{X: 0, Y: 0, W: 1000, H: 1000})
	child := f.comments.Create("child", nodegraph.Rect{X: 500, Y: 500, W: 200, H: 200})
	n := f.node(t, 100, 100)
	require.True(t, f.comments.AddNode(parent, n))

	c := f.comment(t, child).Rect
	require.True(t, f.graph.SetNodeData(n, nodegraph.RolePosition, nodegraph.Point{X: c.X + 10, Y: c.Y + 10}))

	assert.False(t, f.comment(t, parent).HasNode(n))
	_, owned := f.comments.CommentOf(n)
	assert.False(t, owned)
}

func TestDelete_RehomesChildren(t *testing.T) {
	f := newFixture()
	big := f.comments.Create("big", nodegraph.Rect{X: 0, Y: 0, W: 1000, H: 1000})
	mid := f.comments.Create("mid", nodegraph.Rect{X: 100, Y: 100, W: 500, H: 500})
	small := f.comments.Create("small", nodegraph.Rect{X: 150, Y: 150, W: 200, H: 200})
	n := f.node(t, 500, 500)
	require.True(t, f.comments.AddNode(mid, n))

	require.True(t, f.comments.Delete(mid))
	_, ok := f.comments.Comment(mid)
	assert.False(t, ok)
	p, _ := f.comment(t, small).Parent()
	assert.Equal(t, big, p)
	assert.Equal(t, []uuid.UUID{small}, f.comment(t, big).Children())
	_, owned := f.comments.CommentOf(n)
	assert.False(t, owned)

	assert.False(t, f.comments.Delete(mid))
}

func TestResize_AdoptsFreeNodes(t *testing.T) {
	f := newFixture()
	cid := f.comments.Create("r", nodegraph.Rect{X: 0, Y: 0, W: 150, H: 100})
	free := f.node(t, 500, 500)
	taken := f.node(t, 300, 300)
	other := f.comments.Create("other", nodegraph.Rect{X: 2000, Y: 2000})
	require.True(t, f.comments.AddNode(other, taken))

	require.True(t, f.comments.Resize(cid, nodegraph.Size{W: 600, H: 600}))
	assert.Equal(t, nodegraph.Rect{X: 0, Y: 0, W: 600, H: 600}, f.comment(t, cid).Rect)

	owner, ok := f.comments.CommentOf(free)
	require.True(t, ok)
	assert.Equal(t, cid, owner)
	owner, _ = f.comments.CommentOf(taken)
	assert.Equal(t, other, owner)

	require.True(t, f.comments.Resize(cid, nodegraph.Size{W: 1, H: 1}))
	assert.Equal(t, nodegraph.Rect{X: 0, Y: 0, W: MinWidth, H: MinHeight}, f.comment(t, cid).Rect)
}

func TestCreateFromSelection(t *testing.T) {
	f := newFixture()
	a := f.node(t, 0, 0)
	b := f.node(t, 200, 0)
	elsewhere := f.comments.Create("elsewhere", nodegraph.Rect{X: 5000, Y: 5000})
	require.True(t, f.comments.AddNode(elsewhere, b))
	inner := f.comments.Create("inner", nodegraph.Rect{X: 0, Y: 300, W: 200, H: 150})
	c := f.node(t, 50, 350)
	require.True(t, f.comments.AddNode(inner, c))

	cid, ok := f.comments.CreateFromSelection([]nodegraph.NodeID{a, b, c}, []uuid.UUID{inner})
	require.True(t, ok)

	created := f.comment(t, cid)
	assert.ElementsMatch(t, []nodegraph.NodeID{a, b}, created.Nodes())
	assert.Equal(t, []uuid.UUID{inner}, created.Children())
	owner, _ := f.comments.CommentOf(c)
	assert.Equal(t, inner, owner, "nodes inside a selected comment stay there")

	for _, n := range []nodegraph.NodeID{a, b} {
		nb, _ := f.scene.NodeBounds(n)
		assert.True(t, created.Rect.Contains(nb))
	}
	assert.True(t, created.Rect.Contains(f.comment(t, inner).Rect))
	assertConsistent(t, f)

	_, ok = f.comments.CreateFromSelection(nil, nil)
	assert.False(t, ok)
}

func TestNodeDeletedLeavesComment(t *testing.T) {
	f := newFixture()
	cid := f.comments.Create("c", nodegraph.Rect{})
	n := f.node(t, 10, 10)
	require.True(t, f.comments.AddNode(cid, n))

	require.True(t, f.graph.DeleteNode(n))
	assert.Empty(t, f.comment(t, cid).Nodes())
	_, owned := f.comments.CommentOf(n)
	assert.False(t, owned)
}

func TestSnapshotRestoreRecords(t *testing.T) {
	f := newFixture()
	big := f.comments.Create("big", nodegraph.Rect{X: 0, Y: 0, W: 1000, H: 1000})
	small := f.comments.Create("small", nodegraph.Rect{X: 100, Y: 100, W: 200, H: 200})
	n := f.node(t, 600, 600)
	require.True(t, f.comments.AddNode(big, n))

	records := f.comments.Snapshot()
	require.Len(t, records, 2)
	f.comments.Reset()
	require.Empty(t, f.comments.Comments())

	require.NoError(t, f.comments.RestoreRecords(records))
	p, ok := f.comment(t, small).Parent()
	require.True(t, ok)
	assert.Equal(t, big, p)
	assert.Equal(t, []nodegraph.NodeID{n}, f.comment(t, big).Nodes())

	assert.Error(t, f.comments.RestoreRecords(records), "ids already exist")
}

func TestContainmentConsistencyUnderRandomOperations(t *testing.T) {
	f := newFixture()
	rng := rand.New(rand.NewPCG(7, 11))

	var nodes []nodegraph.NodeID
	for range 12 {
		nodes = append(nodes, f.node(t, float64(rng.IntN(1500)), float64(rng.IntN(1500))))
	}
	var ids []uuid.UUID
	for range 6 {
		x, y := float64(rng.IntN(1200)), float64(rng.IntN(1200))
		ids = append(ids, f.comments.Create("c", nodegraph.Rect{X: x, Y: y, W: float64(150 + rng.IntN(600)), H: float64(100 + rng.IntN(600))}))
	}
	pickComment := func() uuid.UUID { return ids[rng.IntN(len(ids))] }
	pickNode := func() nodegraph.NodeID { return nodes[rng.IntN(len(nodes))] }
	delta := func() nodegraph.Point {
		return nodegraph.Point{X: float64(rng.IntN(400) - 200), Y: float64(rng.IntN(400) - 200)}
	}

	for step := 0; step < 400; step++ {
		switch rng.IntN(6) {
		case 0:
			f.comments.AddNode(pickComment(), pickNode())
		case 1:
			f.comments.AddChildComment(pickComment(), pickComment())
		case 2:
			f.comments.RemoveChildComment(pickComment(), pickComment())
		case 3:
			f.comments.Move(pickComment(), delta())
		case 4:
			n := pickNode()
			f.graph.SetNodeData(n, nodegraph.RolePosition, f.position(n).Add(delta()))
		case 5:
			f.comments.Resize(pickComment(), nodegraph.Size{W: float64(100 + rng.IntN(800)), H: float64(100 + rng.IntN(800))})
		}
		assertConsistent(t, f)
		if t.Failed() {
			t.Fatalf("inconsistent after step %d", step)
		}
	}
}
