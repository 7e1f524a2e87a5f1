package main

import (
	"errors"
	"fmt"

	"github.com/meikuraledutech/nodegraph"
	"github.com/meikuraledutech/nodegraph/workspace"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(inspectCmd)
}

// InspectResult is the response for the inspect command.
type InspectResult struct {
	Nodes       int                `json:"nodes"`
	Connections int                `json:"connections"`
	Groups      int                `json:"groups"`
	Comments    int                `json:"comments"`
	Types       map[string]int     `json:"types"`
	Acyclic     bool               `json:"acyclic"`
	Order       []nodegraph.NodeID `json:"order,omitempty"`
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Summarize a scene document",
	Long: `Load a JSON scene document and print node, connection, group and
comment counts together with a topological order of its nodes.

Example:
  nodegraph inspect calculator.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		doc, err := readDocument(args[0])
		if err != nil {
			return err
		}
		ws, err := e.newWorkspace()
		if err != nil {
			return err
		}
		defer ws.Close()
		if err := ws.Load(doc); err != nil {
			return fmt.Errorf("invalid scene: %w", err)
		}
		res, err := inspect(ws)
		if err != nil {
			return err
		}
		return outputJSON(res)
	},
}

func inspect(ws *workspace.Workspace) (InspectResult, error) {
	var (
		res InspectResult
		err error
	)
	ws.Read(func(v workspace.View) {
		doc := nodegraph.Save(v.Graph)
		res.Nodes = len(doc.Nodes)
		res.Connections = len(doc.Connections)
		res.Groups = len(v.Groups.Snapshot())
		res.Comments = len(v.Comments.Snapshot())
		res.Types = make(map[string]int)
		for _, n := range doc.Nodes {
			res.Types[n.Type]++
		}
		res.Order, err = nodegraph.TopologicalOrder(v.Graph)
	})
	if errors.Is(err, nodegraph.ErrCycleDetected) {
		return res, nil
	}
	if err != nil {
		return res, err
	}
	res.Acyclic = true
	return res, nil
}
