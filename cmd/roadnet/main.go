package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/efebarandurmaz/roadnet/internal/config"
	"github.com/efebarandurmaz/roadnet/internal/dashboard"
	"github.com/efebarandurmaz/roadnet/internal/metrics"
	"github.com/efebarandurmaz/roadnet/internal/observability"
	"github.com/efebarandurmaz/roadnet/internal/pipeline"
	"github.com/efebarandurmaz/roadnet/internal/report"
	"github.com/efebarandurmaz/roadnet/internal/secrets"
	"github.com/efebarandurmaz/roadnet/internal/server"
	temporalmod "github.com/efebarandurmaz/roadnet/internal/temporal"
	"github.com/efebarandurmaz/roadnet/internal/tui"
)

const version = "0.1.0"

// app carries the state shared by every subcommand.
type app struct {
	configPath string
	cfg        *config.Config
	tracing    *observability.TracerProvider
	metrics    *observability.Metrics
}

func main() {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "roadnet",
		Short:         "Road network ingest and intersection degree analysis",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file path (YAML)")

	rootCmd.AddCommand(
		a.parseCmd(),
		a.importCmd(),
		a.dashboardCmd(),
		a.runCmd(),
		a.serveCmd(),
		a.submitCmd(),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) init(ctx context.Context) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := observability.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	tcfg := observability.DefaultTracingConfig()
	tcfg.ServiceVersion = version
	tcfg.OTLPEndpoint = cfg.Tracing.Endpoint
	tcfg.SampleRate = cfg.Tracing.SampleRate
	a.tracing, err = observability.InitTracing(ctx, tcfg)
	if err != nil {
		return err
	}
	a.metrics = observability.DefaultMetrics()
	return nil
}

func (a *app) close() error {
	if a.tracing == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.tracing.Shutdown(ctx)
}

// openPipeline opens the configured store. The memory backend starts empty,
// so input is loaded into it first; a persistent backend keeps what an
// earlier import stored and input may be empty.
func (a *app) openPipeline(ctx context.Context, input string) (*pipeline.Pipeline, error) {
	store, err := pipeline.OpenStore(ctx, a.cfg.Graph, secrets.NewResolver(config.EnvPrefix+"_"))
	if err != nil {
		return nil, err
	}
	p := pipeline.New(store, a.cfg.Graph.Backend, a.metrics)

	if a.cfg.Graph.Backend == pipeline.BackendMemory || input != "" {
		if input == "" {
			store.Close(ctx)
			return nil, errors.New("the memory backend needs --input")
		}
		g, err := pipeline.Load(ctx, input)
		if err != nil {
			store.Close(ctx)
			return nil, err
		}
		if err := p.Import(ctx, g); err != nil {
			store.Close(ctx)
			return nil, err
		}
	}
	return p, nil
}

func (a *app) parseCmd() *cobra.Command {
	var input, out string
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse an edge list and write the tabular export",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g, err := pipeline.Load(ctx, orDefault(input, a.cfg.Input.EdgeList))
			if err != nil {
				return err
			}
			return pipeline.Export(ctx, orDefault(out, a.cfg.Input.ExportDir), g)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Edge list file (default input.edge_list)")
	cmd.Flags().StringVar(&out, "out", "", "Export directory (default input.export_dir)")
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the stored road network with an edge list or export",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Graph.Backend == pipeline.BackendMemory {
				slog.Warn("The memory backend does not outlive this command; use graph.backend=neo4j to persist")
			}
			ctx := cmd.Context()
			p, err := a.openPipeline(ctx, orDefault(input, a.cfg.Input.ExportDir))
			if err != nil {
				return err
			}
			return p.Store().Close(ctx)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Edge list file or export directory (default input.export_dir)")
	return cmd
}

func (a *app) dashboardCmd() *cobra.Command {
	var (
		input    string
		topK     int
		htmlOut  bool
		jsonOut  bool
		interact bool
	)
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Compute the degree metrics from the store and present them",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !cmd.Flags().Changed("top") {
				topK = a.cfg.Metrics.TopK
			}
			if input == "" && a.cfg.Graph.Backend == pipeline.BackendMemory {
				input = a.cfg.Input.EdgeList
			}

			p, err := a.openPipeline(ctx, input)
			if err != nil {
				return err
			}
			defer p.Store().Close(ctx)

			rep, err := p.Analyze(ctx, topK)
			if err != nil {
				return err
			}
			return a.present(ctx, p, rep, topK, htmlOut, jsonOut, interact)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Load this edge list or export first")
	cmd.Flags().IntVar(&topK, "top", metrics.DefaultTopK, "Number of most connected intersections")
	cmd.Flags().BoolVar(&htmlOut, "html", false, "Save dashboard.html and report.json to report.output_dir")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the report as JSON")
	cmd.Flags().BoolVar(&interact, "tui", false, "Open the interactive dashboard")
	return cmd
}

func (a *app) present(ctx context.Context, p *pipeline.Pipeline, rep *metrics.Report, topK int, htmlOut, jsonOut, interact bool) error {
	if htmlOut {
		path, err := pipeline.SaveReport(ctx, a.cfg.Report.OutputDir, rep)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Dashboard saved to %s\n", path)
	}
	switch {
	case interact:
		return tui.Run(rep, func(ctx context.Context) (*metrics.Report, error) {
			return p.Analyze(ctx, topK)
		})
	case jsonOut:
		return report.WriteJSON(os.Stdout, rep)
	default:
		return report.WriteText(os.Stdout, rep)
	}
}

func (a *app) runCmd() *cobra.Command {
	var (
		input string
		topK  int
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Parse, import and analyze in one go, then save the dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !cmd.Flags().Changed("top") {
				topK = a.cfg.Metrics.TopK
			}
			store, err := pipeline.OpenStore(ctx, a.cfg.Graph, secrets.NewResolver(config.EnvPrefix+"_"))
			if err != nil {
				return err
			}
			defer store.Close(ctx)

			p := pipeline.New(store, a.cfg.Graph.Backend, a.metrics)
			rep, err := p.Run(ctx, orDefault(input, a.cfg.Input.EdgeList), topK)
			if err != nil {
				return err
			}
			if err := report.WriteText(os.Stdout, rep); err != nil {
				return err
			}
			_, err = pipeline.SaveReport(ctx, a.cfg.Report.OutputDir, rep)
			return err
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Edge list file or export directory (default input.edge_list)")
	cmd.Flags().IntVar(&topK, "top", metrics.DefaultTopK, "Number of most connected intersections")
	return cmd
}

func (a *app) serveCmd() *cobra.Command {
	var (
		input string
		addr  string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard over HTTP with live refresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if input == "" && a.cfg.Graph.Backend == pipeline.BackendMemory {
				input = a.cfg.Input.EdgeList
			}
			p, err := a.openPipeline(ctx, input)
			if err != nil {
				return err
			}
			store := p.Store()

			health := server.NewHealthServer(version)
			health.RegisterCheck("graph", server.GraphStoreHealthChecker(a.cfg.Graph.Backend, store.Ping))

			dcfg := dashboard.DefaultConfig()
			dcfg.ListenAddr = orDefault(addr, a.cfg.Dashboard.ListenAddr)
			d := dashboard.New(dcfg, store, metrics.NewEngine(metrics.WithTopK(a.cfg.Metrics.TopK)), a.metrics, health)

			if _, err := d.Server.Refresh(ctx); err != nil {
				slog.Warn("Initial report failed; POST /api/refresh to retry", "error", err)
			}

			shutdown := server.NewShutdownHandler(nil)
			shutdown.Register(server.HTTPServerShutdownHook("dashboard", d.Server.Stop))
			shutdown.Register(server.GraphStoreShutdownHook(store.Close))
			shutdown.Start()

			errCh := make(chan error, 1)
			go func() { errCh <- d.Server.Start() }()
			health.SetReady(true)

			select {
			case err := <-errCh:
				shutdown.Shutdown()
				shutdown.Wait()
				return err
			case <-shutdown.Done():
				return <-errCh
			}
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Load this edge list or export first")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default dashboard.listen_addr)")
	return cmd
}

func (a *app) submitCmd() *cobra.Command {
	var (
		input     string
		exportDir string
		topK      int
		wait      bool
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Start the road network workflow on a Temporal worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !cmd.Flags().Changed("top") {
				topK = a.cfg.Metrics.TopK
			}
			c, err := temporalclient.Dial(temporalclient.Options{
				HostPort:  a.cfg.Temporal.Host,
				Namespace: a.cfg.Temporal.Namespace,
			})
			if err != nil {
				return fmt.Errorf("temporal client: %w", err)
			}
			defer c.Close()

			run, err := temporalmod.Submit(ctx, c, a.cfg.Temporal.TaskQueue, temporalmod.RoadNetworkInput{
				EdgeListPath: input,
				ExportDir:    orDefault(exportDir, a.cfg.Input.ExportDir),
				ReportDir:    a.cfg.Report.OutputDir,
				TopK:         topK,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Workflow started: %s (run %s)\n", run.GetID(), run.GetRunID())
			if !wait {
				return nil
			}

			var out temporalmod.RoadNetworkOutput
			if err := run.Get(ctx, &out); err != nil {
				return fmt.Errorf("workflow %s: %w", run.GetID(), err)
			}
			fmt.Printf("Imported %d intersections and %d roads; dashboard at %s\n", out.Nodes, out.Edges, out.ReportPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Edge list file, as seen by the worker")
	cmd.Flags().StringVar(&exportDir, "export-dir", "", "Export directory, as seen by the worker")
	cmd.Flags().IntVar(&topK, "top", metrics.DefaultTopK, "Number of most connected intersections")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the workflow to finish")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
