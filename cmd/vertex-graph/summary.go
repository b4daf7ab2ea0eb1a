package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ritzau/vertex-graph/pkg/datasource"
	"github.com/ritzau/vertex-graph/pkg/graph"
	"github.com/ritzau/vertex-graph/pkg/model"
	"github.com/ritzau/vertex-graph/pkg/output"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print workspace and vertex totals, orphans and parent cycles",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

func runSummary(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	source := datasource.NewLocalFS(cfg.DataDir)
	var workspaces []model.Workspace
	var vertices []model.Vertex
	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() (err error) {
		workspaces, err = source.GetWorkspaces(ctx)
		return err
	})
	g.Go(func() (err error) {
		vertices, err = source.GetAllVertices(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("loading %s: %w", cfg.DataDir, err)
	}

	output.PrintSummary(os.Stdout, cfg.DataDir, output.Summarize(graph.Build(workspaces, vertices)))
	return nil
}
