package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/meikuraledutech/nodegraph"
	"github.com/meikuraledutech/nodegraph/sqlite"
	"github.com/meikuraledutech/nodegraph/workspace"
)

func main() {
	ctx := context.Background()

	dir, err := os.MkdirTemp("", "nodegraph-example")
	if err != nil {
		log.Fatalf("temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	// Any Store works here; SQLite needs no server.
	s, err := sqlite.Open(filepath.Join(dir, "scenes.db"))
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	defer s.Close()
	var store nodegraph.Store = s

	if err := store.CreateSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}
	fmt.Println("schema created")

	// ── Node types ────────────────────────────────────────────────────
	num := nodegraph.DataType{ID: "decimal", Name: "Decimal"}
	reg := nodegraph.NewRegistry()
	must(reg.Register("number", nodegraph.NodeSpec{
		Caption:        "Number",
		CaptionVisible: true,
		Out:            []nodegraph.PortSpec{{DataType: num, Policy: nodegraph.PolicyMany}},
	}))
	must(reg.Register("add", nodegraph.NodeSpec{
		Caption:        "Add",
		CaptionVisible: true,
		In:             []nodegraph.PortSpec{{DataType: num}, {DataType: num}},
		Out:            []nodegraph.PortSpec{{DataType: num, Policy: nodegraph.PolicyMany}},
	}))
	must(reg.Register("display", nodegraph.NodeSpec{
		Caption:        "Display",
		CaptionVisible: true,
		In:             []nodegraph.PortSpec{{DataType: num}},
	}))

	ws := workspace.New(workspace.WithRegistry(reg), workspace.WithPolicy(nodegraph.AcyclicPolicy{}))
	defer ws.Close()

	// ── Build a small calculator ──────────────────────────────────────
	a := mustID(ws.CreateNode("number", nodegraph.Point{X: 0, Y: 0}))
	b := mustID(ws.CreateNode("number", nodegraph.Point{X: 0, Y: 150}))
	sum := mustID(ws.CreateNode("add", nodegraph.Point{X: 250, Y: 60}))
	out := mustID(ws.CreateNode("display", nodegraph.Point{X: 500, Y: 60}))

	must(ws.Connect(nodegraph.ConnectionID{OutNode: a, OutPort: 0, InNode: sum, InPort: 0}))
	must(ws.Connect(nodegraph.ConnectionID{OutNode: b, OutPort: 0, InNode: sum, InPort: 1}))
	must(ws.Connect(nodegraph.ConnectionID{OutNode: sum, OutPort: 0, InNode: out, InPort: 0}))

	// Feeding a node its own output is rejected.
	if err := ws.Connect(nodegraph.ConnectionID{OutNode: sum, OutPort: 0, InNode: sum, InPort: 0}); err != nil {
		fmt.Printf("self-loop rejected: %v\n", err)
	}

	// ── Dynamic ports ─────────────────────────────────────────────────
	// A third input slides in ahead of the existing ones; their
	// connections move with them.
	must(ws.InsertPorts(sum, nodegraph.PortIn, 0, 0))
	ws.Read(func(v workspace.View) {
		fmt.Printf("add inputs: %d, connections: %v\n",
			nodegraph.PortCount(v.Graph, sum, nodegraph.PortIn), v.Graph.AllConnectionIDs(sum))
	})

	// ── Groups & comments ─────────────────────────────────────────────
	if _, err := ws.CreateGroup("inputs", a, b); err != nil {
		log.Fatalf("group: %v", err)
	}
	if _, err := ws.CreateComment("a + b", nodegraph.Rect{}, []nodegraph.NodeID{a, b, sum}, nil); err != nil {
		log.Fatalf("comment: %v", err)
	}

	// ── Undo / redo ───────────────────────────────────────────────────
	must(ws.MoveNodes(nodegraph.Point{X: 40}, out))
	must(ws.Undo())
	must(ws.Redo())

	// ── Save & reload ─────────────────────────────────────────────────
	if err := store.SaveScene(ctx, "calculator", ws.Document()); err != nil {
		log.Fatalf("save: %v", err)
	}
	scenes, err := store.ListScenes(ctx)
	if err != nil {
		log.Fatalf("list: %v", err)
	}
	fmt.Println("\nstored scenes:")
	printJSON(scenes)

	ws.Reset()
	doc, err := store.LoadScene(ctx, "calculator")
	if err != nil {
		log.Fatalf("load: %v", err)
	}
	must(ws.Load(doc))

	ws.Read(func(v workspace.View) {
		order, err := nodegraph.TopologicalOrder(v.Graph)
		if err != nil {
			log.Fatalf("order: %v", err)
		}
		fmt.Printf("\nevaluation order: %v\n", order)
	})

	// ── Cleanup ───────────────────────────────────────────────────────
	if err := store.DeleteScene(ctx, "calculator"); err != nil {
		log.Fatalf("delete: %v", err)
	}
	fmt.Println("scene deleted")
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func mustID(id nodegraph.NodeID, err error) nodegraph.NodeID {
	must(err)
	return id
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
