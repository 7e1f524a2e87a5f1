// Package server exposes a workspace and a scene store over HTTP.
package server

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/meikuraledutech/nodegraph"
	"github.com/meikuraledutech/nodegraph/history"
	"github.com/meikuraledutech/nodegraph/workspace"
)

type nodeRequest struct {
	Type     string          `json:"type"`
	Position nodegraph.Point `json:"position"`
}

type portsRequest struct {
	Side  nodegraph.PortType  `json:"side"`
	First nodegraph.PortIndex `json:"first"`
	Last  nodegraph.PortIndex `json:"last"`
}

type groupRequest struct {
	Name  string             `json:"name"`
	Nodes []nodegraph.NodeID `json:"nodes"`
}

type commentRequest struct {
	Text     string             `json:"text"`
	Rect     nodegraph.Rect     `json:"rect"`
	Nodes    []nodegraph.NodeID `json:"nodes"`
	Comments []uuid.UUID        `json:"comments"`
}

// New builds the HTTP API for ws. Scene persistence routes use store.
func New(ws *workspace.Workspace, store nodegraph.Store, logger *slog.Logger) *fiber.App {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	app := fiber.New()
	app.Use(recoverer.New())

	fail := func(c fiber.Ctx, err error) error {
		status := statusOf(err)
		if status == fiber.StatusInternalServerError {
			logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	// ── Schema ────────────────────────────────────────────────────────
	app.Post("/schema", func(c fiber.Ctx) error {
		if err := store.CreateSchema(c.Context()); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "schema created"})
	})

	app.Delete("/schema", func(c fiber.Ctx) error {
		if err := store.DropSchema(c.Context()); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "schema dropped"})
	})

	// ── Scene ─────────────────────────────────────────────────────────
	app.Get("/scene", func(c fiber.Ctx) error {
		return c.JSON(ws.Document())
	})

	app.Get("/scene/order", func(c fiber.Ctx) error {
		var (
			order []nodegraph.NodeID
			err   error
		)
		ws.Read(func(v workspace.View) { order, err = nodegraph.TopologicalOrder(v.Graph) })
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(order)
	})

	app.Put("/scene", func(c fiber.Ctx) error {
		var doc nodegraph.Document
		if err := c.Bind().JSON(&doc); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		if err := ws.Load(&doc); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(204)
	})

	app.Post("/undo", func(c fiber.Ctx) error {
		if err := ws.Undo(); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(204)
	})

	app.Post("/redo", func(c fiber.Ctx) error {
		if err := ws.Redo(); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(204)
	})

	// ── Nodes ─────────────────────────────────────────────────────────
	app.Post("/nodes", func(c fiber.Ctx) error {
		var req nodeRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		id, err := ws.CreateNode(req.Type, req.Position)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(201).JSON(fiber.Map{"id": id})
	})

	app.Delete("/nodes/:id", func(c fiber.Ctx) error {
		id, ok := nodeParam(c)
		if !ok {
			return c.Status(400).JSON(fiber.Map{"error": "invalid node id"})
		}
		if err := ws.DeleteNodes(id); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(204)
	})

	app.Put("/nodes/:id/position", func(c fiber.Ctx) error {
		id, ok := nodeParam(c)
		if !ok {
			return c.Status(400).JSON(fiber.Map{"error": "invalid node id"})
		}
		var to nodegraph.Point
		if err := c.Bind().JSON(&to); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		if err := ws.SetNodePosition(id, to); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(204)
	})

	app.Post("/nodes/:id/ports", func(c fiber.Ctx) error {
		id, req, ok := portsParams(c)
		if !ok {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
		if err := ws.InsertPorts(id, req.Side, req.First, req.Last); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(204)
	})

	app.Delete("/nodes/:id/ports", func(c fiber.Ctx) error {
		id, req, ok := portsParams(c)
		if !ok {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
		if err := ws.DeletePorts(id, req.Side, req.First, req.Last); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(204)
	})

	// ── Connections ───────────────────────────────────────────────────
	app.Post("/connections", func(c fiber.Ctx) error {
		var doc nodegraph.ConnectionDocument
		if err := c.Bind().JSON(&doc); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		if err := ws.Connect(doc.ConnectionID()); err != nil {
			return fail(c, err)
		}
		return c.Status(201).JSON(doc)
	})

	app.Delete("/connections", func(c fiber.Ctx) error {
		var doc nodegraph.ConnectionDocument
		if err := c.Bind().JSON(&doc); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		if err := ws.Disconnect(doc.ConnectionID()); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(204)
	})

	// ── Groups & comments ─────────────────────────────────────────────
	app.Post("/groups", func(c fiber.Ctx) error {
		var req groupRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		id, err := ws.CreateGroup(req.Name, req.Nodes...)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(201).JSON(fiber.Map{"id": id})
	})

	app.Post("/comments", func(c fiber.Ctx) error {
		var req commentRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		id, err := ws.CreateComment(req.Text, req.Rect, req.Nodes, req.Comments)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(201).JSON(fiber.Map{"id": id})
	})

	// ── Stored scenes ─────────────────────────────────────────────────
	app.Get("/scenes", func(c fiber.Ctx) error {
		scenes, err := store.ListScenes(c.Context())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(scenes)
	})

	app.Post("/scenes/:id", func(c fiber.Ctx) error {
		if err := store.SaveScene(c.Context(), c.Params("id"), ws.Document()); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(204)
	})

	app.Get("/scenes/:id", func(c fiber.Ctx) error {
		doc, err := store.LoadScene(c.Context(), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		if doc == nil {
			return c.Status(404).JSON(fiber.Map{"error": "scene not found"})
		}
		if err := ws.Load(doc); err != nil {
			return fail(c, err)
		}
		return c.JSON(doc)
	})

	app.Delete("/scenes/:id", func(c fiber.Ctx) error {
		if err := store.DeleteScene(c.Context(), c.Params("id")); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(204)
	})

	return app
}

func nodeParam(c fiber.Ctx) (nodegraph.NodeID, bool) {
	v, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || !nodegraph.NodeID(v).Valid() {
		return nodegraph.InvalidNodeID, false
	}
	return nodegraph.NodeID(v), true
}

func portsParams(c fiber.Ctx) (nodegraph.NodeID, portsRequest, bool) {
	id, ok := nodeParam(c)
	if !ok {
		return id, portsRequest{}, false
	}
	var req portsRequest
	if err := c.Bind().JSON(&req); err != nil || !req.Side.Valid() {
		return id, req, false
	}
	return id, req, true
}

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, nodegraph.ErrNodeNotFound), errors.Is(err, nodegraph.ErrSceneNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, nodegraph.ErrNodeExists),
		errors.Is(err, history.ErrNothingToUndo), errors.Is(err, history.ErrNothingToRedo):
		return fiber.StatusConflict
	case errors.Is(err, nodegraph.ErrUnknownNodeType),
		errors.Is(err, nodegraph.ErrInvalidConnection),
		errors.Is(err, nodegraph.ErrCycleDetected),
		errors.Is(err, workspace.ErrInvalidSelection):
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusInternalServerError
}
