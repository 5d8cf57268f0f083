package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/workflow"
	"github.com/meikuraledutech/workflow/engine"
	"github.com/meikuraledutech/workflow/memstore"
	"github.com/meikuraledutech/workflow/postgres"
	"github.com/meikuraledutech/workflow/repository"
	"github.com/meikuraledutech/workflow/simulator"
)

func main() {
	ctx := context.Background()

	// Custom workflows go to PostgreSQL when DATABASE_URL is set,
	// otherwise they live in memory for the length of the program.
	var store workflow.Store = memstore.New()
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			log.Fatalf("connect: %v", err)
		}
		defer pool.Close()

		pg := postgres.New(pool)
		if err := pg.CreateSchema(ctx); err != nil {
			log.Fatalf("schema: %v", err)
		}
		store = pg
		fmt.Println("using postgres store")
	}

	repo, err := repository.Open(ctx, store)
	if err != nil {
		log.Fatalf("open repository: %v", err)
	}

	sim := simulator.New(simulator.Config{
		LayerInterval:    300 * time.Millisecond,
		ResolveDelay:     200 * time.Millisecond,
		CompletionBuffer: 100 * time.Millisecond,
		SuccessRate:      simulator.SuccessRate(0.8),
	})

	eng, err := engine.New(repo, sim, nil)
	if err != nil {
		log.Fatalf("engine: %v", err)
	}

	// ── Start from a blank workflow ───────────────────────────────────
	w, err := eng.New(ctx)
	if err != nil {
		log.Fatalf("new: %v", err)
	}
	eng.Rename("Docs Site")
	trigger := w.Nodes[0].ID
	fmt.Printf("created %q with trigger %s\n", w.Name, trigger)

	// ── Build a diamond: trigger → build, lint → deploy ───────────────
	build, _ := eng.AddNode(workflow.TypeBuild)
	lint, _ := eng.AddNode(workflow.TypeTest)
	deploy, _ := eng.AddNode(workflow.TypeDeploy)

	for _, pair := range [][2]string{
		{trigger, build.ID},
		{trigger, lint.ID},
		{build.ID, deploy.ID},
		{lint.ID, deploy.ID},
	} {
		if _, res := eng.AddEdge(pair[0], pair[1]); res.Rejected() {
			log.Fatalf("add edge: %s", res.Reason)
		}
	}

	// Closing the loop is rejected.
	_, res := eng.AddEdge(deploy.ID, trigger)
	fmt.Printf("deploy → trigger rejected: %s\n", res.Reason)

	// ── Configure nodes ───────────────────────────────────────────────
	eng.UpdateNodeConfig(build.ID, map[string]any{"command": "hugo --minify"})
	if res := eng.UpdateNodeConfigJSON(deploy.ID, []byte(`{"environment": "production"}`)); res.Rejected() {
		log.Fatalf("config: %s", res.Reason)
	}
	res = eng.UpdateNodeConfigJSON(deploy.ID, []byte(`{"environment":`))
	fmt.Printf("malformed config rejected: %s\n", res.Reason)

	// ── Layers ────────────────────────────────────────────────────────
	fmt.Println("\nlayers:")
	for i, layer := range eng.Layers().Layers {
		fmt.Printf("  %d: %s\n", i, strings.Join(labels(eng.Active(), layer), ", "))
	}

	// ── Simulate a run ────────────────────────────────────────────────
	fmt.Println("\nrun:")
	run := eng.Execute(ctx, simulator.Callbacks{
		OnLayerStart: func(layer int, ids []string) {
			fmt.Printf("  layer %d started (%d nodes)\n", layer, len(ids))
		},
		OnNodeStatus: func(id string, s workflow.Status) {
			if s.Terminal() {
				fmt.Printf("    %s → %s\n", labels(eng.Active(), []string{id})[0], s)
			}
		},
	})
	sum := run.Wait()
	fmt.Printf("  finished: %s in %s\n", sum.Result(), sum.Duration.Round(time.Millisecond))

	// ── Save and reload ───────────────────────────────────────────────
	saved, err := eng.Save(ctx)
	if err != nil {
		log.Fatalf("save: %v", err)
	}
	fmt.Println("\nsaved:")
	printJSON(saved)

	// Saving a preset forks it instead of editing it.
	if _, err := eng.Load("preset-cicd"); err != nil {
		log.Fatalf("load: %v", err)
	}
	fork, err := eng.Save(ctx)
	if err != nil {
		log.Fatalf("fork: %v", err)
	}
	fmt.Printf("\nforked preset into %q (%s)\n", fork.Name, fork.ID)

	// ── Cleanup ───────────────────────────────────────────────────────
	for _, id := range []string{saved.ID, fork.ID} {
		if err := eng.Delete(ctx, id); err != nil {
			log.Fatalf("delete: %v", err)
		}
	}
	fmt.Printf("deleted customs, active is now %q\n", eng.Active().Name)
}

func labels(w workflow.Workflow, ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id
		if n := w.Node(id); n != nil {
			out[i] = n.Label
		}
	}
	return out
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
