package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/meikuraledutech/workflow"
	"github.com/meikuraledutech/workflow/engine"
	"github.com/meikuraledutech/workflow/simulator"
)

type nodePatch struct {
	Label      *string            `json:"label"`
	Position   *workflow.Position `json:"position"`
	Config     map[string]any     `json:"config"`
	ConfigText *string            `json:"configText"`
}

type edgeRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type nameRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// newApp builds the HTTP surface over eng. Runs started through the API
// live on runCtx rather than on the request that started them.
func newApp(runCtx context.Context, eng *engine.Engine, metrics *simulator.Metrics, logger *slog.Logger) *fiber.App {
	logger = logger.With("component", "http")
	app := fiber.New()

	// ── Workflows ─────────────────────────────────────────────────────
	app.Get("/workflows", func(c fiber.Ctx) error {
		return c.JSON(eng.Workflows())
	})

	app.Post("/workflows", func(c fiber.Ctx) error {
		w, err := eng.New(c.Context())
		if err != nil {
			return fail(c, err)
		}
		return c.Status(201).JSON(w)
	})

	app.Get("/workflows/:id", func(c fiber.Ctx) error {
		w, err := eng.Get(c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(w)
	})

	app.Post("/workflows/:id/load", func(c fiber.Ctx) error {
		w, err := eng.Load(c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(w)
	})

	app.Delete("/workflows/:id", func(c fiber.Ctx) error {
		if err := eng.Delete(c.Context(), c.Params("id")); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(204)
	})

	app.Get("/node-types", func(c fiber.Ctx) error {
		out := make([]workflow.Descriptor, 0, len(workflow.NodeTypes))
		for _, t := range workflow.NodeTypes {
			out = append(out, t.Describe())
		}
		return c.JSON(out)
	})

	// ── Active workflow ───────────────────────────────────────────────
	app.Get("/active", func(c fiber.Ctx) error {
		return c.JSON(eng.Active())
	})

	app.Put("/active/name", func(c fiber.Ctx) error {
		var req nameRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		eng.Rename(req.Name)
		if req.Description != nil {
			eng.SetDescription(*req.Description)
		}
		return c.JSON(eng.Active())
	})

	app.Post("/active/save", func(c fiber.Ctx) error {
		w, err := eng.Save(c.Context())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(w)
	})

	app.Get("/active/layers", func(c fiber.Ctx) error {
		plan := eng.Layers()
		return c.JSON(fiber.Map{"layers": plan.Layers, "unreachable": plan.Unreachable})
	})

	// ── Nodes ─────────────────────────────────────────────────────────
	app.Post("/active/nodes", func(c fiber.Ctx) error {
		var req struct {
			Type workflow.NodeType `json:"type"`
		}
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		n, err := eng.AddNode(req.Type)
		if err != nil {
			return c.Status(422).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(201).JSON(n)
	})

	app.Patch("/active/nodes/:id", func(c fiber.Ctx) error {
		id := c.Params("id")
		var req nodePatch
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		u := engine.NodeUpdate{
			Label:    req.Label,
			Position: req.Position,
			Config:   req.Config,
		}
		if req.ConfigText != nil {
			u.ConfigJSON = []byte(*req.ConfigText)
		}
		n, res := eng.UpdateNode(id, u)
		if res.Rejected() {
			return rejected(c, res)
		}
		return c.JSON(n)
	})

	app.Delete("/active/nodes/:id", func(c fiber.Ctx) error {
		if !eng.RemoveNode(c.Params("id")) {
			return fail(c, workflow.ErrNodeNotFound)
		}
		return c.SendStatus(204)
	})

	// ── Edges ─────────────────────────────────────────────────────────
	app.Post("/active/edges", func(c fiber.Ctx) error {
		var req edgeRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		edge, res := eng.AddEdge(req.Source, req.Target)
		if res.Rejected() {
			return rejected(c, res)
		}
		return c.Status(201).JSON(edge)
	})

	app.Delete("/active/edges/:id", func(c fiber.Ctx) error {
		if !eng.RemoveEdge(c.Params("id")) {
			return fail(c, workflow.ErrEdgeNotFound)
		}
		return c.SendStatus(204)
	})

	// ── Runs ──────────────────────────────────────────────────────────
	app.Post("/active/run", func(c fiber.Ctx) error {
		run := eng.Execute(runCtx, simulator.Callbacks{
			OnNodeStatus: func(id string, s workflow.Status) {
				logger.Debug("node status", slog.String("node_id", id), slog.String("status", string(s)))
			},
		})
		return c.Status(202).JSON(fiber.Map{"runId": run.ID, "workflowId": run.WorkflowID})
	})

	app.Delete("/active/run", func(c fiber.Ctx) error {
		if !eng.Cancel() {
			return c.Status(404).JSON(fiber.Map{"error": "no run in flight"})
		}
		return c.SendStatus(204)
	})

	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	return app
}

// fail maps sentinel errors onto status codes.
func fail(c fiber.Ctx, err error) error {
	switch {
	case engine.IsNotFound(err):
		return c.Status(404).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, workflow.ErrPresetReadOnly):
		return c.Status(403).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, workflow.ErrCycleDetected), errors.Is(err, workflow.ErrInvalidWorkflow):
		return c.Status(422).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
}

func rejected(c fiber.Ctx, res workflow.Result) error {
	status := 422
	if res.Reason == workflow.ReasonNodeNotFound {
		status = 404
	}
	return c.Status(status).JSON(fiber.Map{"error": "rejected", "reason": res.Reason})
}
