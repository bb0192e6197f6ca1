package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	recordlinkage "github.com/baditaflorin/go_record_linkage"
	"github.com/baditaflorin/go_record_linkage/internal/adapters/normalizer"
	"github.com/baditaflorin/go_record_linkage/internal/adapters/store"
	"github.com/baditaflorin/go_record_linkage/internal/config"
	"github.com/baditaflorin/go_record_linkage/internal/core/domain"
	"github.com/baditaflorin/go_record_linkage/internal/ports"
)

func newRunCmd() *cobra.Command {
	var manifestPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a deduplication pass over the manifest's record source",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(manifestPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDedupe(ctx, cmd, cfg)
		},
	}
	cmd.Flags().StringVarP(&manifestPath, "config", "c", "linkage.toml", "path to the run manifest")
	return cmd
}

func runDedupe(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	source, sink, cleanup, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	records, err := source.Load(ctx)
	if err != nil {
		return err
	}
	if n := cfg.Normalizer(); n != nil {
		normalizer.Apply(n, records)
	}

	engine, err := recordlinkage.New(cfg.EngineOptions()...)
	if err != nil {
		return err
	}
	result, err := engine.Dedupe(ctx, records)
	if err != nil {
		return err
	}

	if sink != nil {
		if err := sink.Write(ctx, result.Assignments); err != nil {
			return err
		}
	}
	if cfg.Output.EdgesPath != "" {
		if err := writeEdges(cfg.Output.EdgesPath, result.Edges); err != nil {
			return err
		}
	}

	printSummary(cmd, cfg, result)
	return nil
}

// openStores wires the manifest's input and output into a record source and,
// for sqlite input, a cluster sink. CSV input has no writable sink; the
// assignments still reach the edges file and the summary.
func openStores(cfg *config.Config) (ports.RecordSource, ports.ClusterSink, func(), error) {
	switch cfg.Input.Kind {
	case "csv":
		src := &store.CSVSource{
			Path:           cfg.Input.Path,
			IDColumn:       cfg.Input.IDColumn,
			ArrayColumns:   cfg.Input.ArrayColumns,
			ArraySeparator: cfg.Input.ArraySeparator,
		}
		return src, nil, func() {}, nil
	case "sqlite":
		db, err := store.OpenSQLite(cfg.Input.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		src := db.Source(store.SourceSpec{
			Table:          cfg.Input.Table,
			IDColumn:       cfg.Input.IDColumn,
			FieldColumns:   cfg.Input.FieldColumns,
			ArrayColumns:   cfg.Input.ArrayColumns,
			ArraySeparator: cfg.Input.ArraySeparator,
		})
		return src, db.Sink(cfg.Output.Table), func() { db.Close() }, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown input kind %q", cfg.Input.Kind)
	}
}

func writeEdges(path string, edges []domain.Edge) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create edges file %s: %w", path, err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(edges)
}

func printSummary(cmd *cobra.Command, cfg *config.Config, result *recordlinkage.Result) {
	out := cmd.OutOrStdout()

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Run %s", result.RunID)
	t.AppendRows([]table.Row{
		{"Records", result.Records},
		{"Candidate pairs", result.CandidatePairs},
		{"Clusters", len(result.Clusters)},
		{"Match threshold", cfg.Engine.MatchThreshold},
		{"Duration", result.Duration.Round(time.Millisecond)},
	})
	t.Render()

	if len(result.BlockingStats) > 0 {
		bt := table.NewWriter()
		bt.SetOutputMirror(out)
		bt.SetStyle(table.StyleLight)
		bt.AppendHeader(table.Row{"Blocking rule", "Groups", "Max group", "Pairs", "Skipped"})
		for _, rs := range result.BlockingStats {
			bt.AppendRow(table.Row{rs.Rule, rs.Groups, rs.MaxGroupSize, rs.PairsEmitted, rs.SkippedGroups})
		}
		bt.Render()
	}

	mt := table.NewWriter()
	mt.SetOutputMirror(out)
	mt.SetStyle(table.StyleLight)
	mt.SetTitle("Match model (prior %.4f)", result.Model.Prior)
	mt.AppendHeader(table.Row{"Comparison", "Level", "m", "u"})
	for _, comp := range result.Model.Comparisons {
		for lvl := range comp.M {
			mt.AppendRow(table.Row{comp.Name, lvl,
				fmt.Sprintf("%.4f", comp.M[lvl]),
				fmt.Sprintf("%.4f", comp.U[lvl])})
		}
	}
	mt.Render()

	for _, w := range result.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}

	// Show the largest clusters first; singletons are rarely interesting.
	type clusterRow struct {
		id   string
		size int
	}
	rows := make([]clusterRow, 0, len(result.Clusters))
	for id, members := range result.Clusters {
		if len(members) > 1 {
			rows = append(rows, clusterRow{id: id, size: len(members)})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].size != rows[j].size {
			return rows[i].size > rows[j].size
		}
		return rows[i].id < rows[j].id
	})
	const maxShown = 10
	if len(rows) > 0 {
		ct := table.NewWriter()
		ct.SetOutputMirror(out)
		ct.SetStyle(table.StyleLight)
		ct.SetTitle("Largest clusters")
		ct.AppendHeader(table.Row{"Cluster", "Size"})
		for i, row := range rows {
			if i == maxShown {
				break
			}
			ct.AppendRow(table.Row{row.id, row.size})
		}
		ct.Render()
	}
}
