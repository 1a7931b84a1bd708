package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/urfave/cli/v2"

	"github.com/nandorodriques37/planejamento-compras-app/internal/app"
	"github.com/nandorodriques37/planejamento-compras-app/internal/approval"
	"github.com/nandorodriques37/planejamento-compras-app/internal/cache"
	"github.com/nandorodriques37/planejamento-compras-app/internal/config"
	"github.com/nandorodriques37/planejamento-compras-app/internal/domain"
	"github.com/nandorodriques37/planejamento-compras-app/internal/export"
	"github.com/nandorodriques37/planejamento-compras-app/internal/planning"
	"github.com/nandorodriques37/planejamento-compras-app/internal/repository"
	"github.com/nandorodriques37/planejamento-compras-app/internal/repository/memory"
	"github.com/nandorodriques37/planejamento-compras-app/internal/repository/postgres"
	"github.com/nandorodriques37/planejamento-compras-app/pkg/logger"
)

type appKey struct{}

func newBundleFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "bundle",
		Usage:   "Planning bundle JSON file",
		EnvVars: []string{"PLANNING_BUNDLE_PATH"},
	}
}

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

// initApp loads the bundle and stores the wired app in the context.
func initApp(c *cli.Context) error {
	cfg := config.Load()
	logger.SetLevel(c.String("log-level"))
	if path := c.String("bundle"); path != "" {
		cfg.Planning.BundlePath = path
	}

	// One-shot runs project each SKU once, so memoizing buys nothing.
	a, err := app.New(c.Context, cfg,
		app.WithApprovalRepository(memory.NewApprovalRepository()),
		app.WithProjectionCache(cache.NewNoopProjectionCache()),
	)
	if err != nil {
		return err
	}
	if _, err := a.Planner.Index(); err != nil {
		a.Close()
		return fmt.Errorf("bundle %s: %w", cfg.Planning.BundlePath, err)
	}
	c.Context = context.WithValue(c.Context, appKey{}, a)
	return nil
}

func closeApp(c *cli.Context) error {
	if a, ok := c.Context.Value(appKey{}).(*app.App); ok && a != nil {
		a.Close()
	}
	return nil
}

func appFrom(c *cli.Context) *app.App {
	return c.Context.Value(appKey{}).(*app.App)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	cliApp := &cli.App{
		Name:  "planner",
		Usage: "Project purchase plans, compute coverage and manage approvals",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "project",
				Usage: "Project every SKU, or one with --sku",
				Flags: []cli.Flag{
					newBundleFlag(),
					&cli.StringFlag{Name: "sku", Usage: "Print the full projection of one SKU"},
					&cli.StringSliceFlag{Name: "status", Usage: "Only SKUs with these statuses"},
					&cli.StringFlag{Name: "sort", Value: planning.SortByKey, Usage: "key, status, total_order or coverage_days"},
					&cli.BoolFlag{Name: "desc", Usage: "Sort descending"},
				},
				Before: initApp,
				After:  closeApp,
				Action: runProject,
			},
			{
				Name:  "coverage",
				Usage: "Compute how much to anticipate so stock lasts until a date",
				Flags: []cli.Flag{
					newBundleFlag(),
					&cli.StringFlag{Name: "sku", Required: true},
					&cli.TimestampFlag{Name: "date", Layout: "2006-01-02", Required: true, Usage: "Coverage date (YYYY-MM-DD)"},
					&cli.BoolFlag{Name: "apply", Usage: "Print the projection with the coverage applied"},
				},
				Before: initApp,
				After:  closeApp,
				Action: runCoverage,
			},
			{
				Name:  "export",
				Usage: "Write the current plan as CSV, XLSX or a JSON snapshot",
				Flags: []cli.Flag{
					newBundleFlag(),
					&cli.StringFlag{Name: "format", Value: "csv", Usage: "csv, xlsx or json"},
					&cli.PathFlag{Name: "out", Usage: "Output file, stdout when empty"},
					&cli.BoolFlag{Name: "publish", Usage: "Upload the snapshot to object storage"},
				},
				Before: initApp,
				After:  closeApp,
				Action: runExport,
			},
			{
				Name:  "approvals",
				Usage: "Inspect and decide approval requests stored in Postgres",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Flags:  []cli.Flag{newDBURLFlag(), &cli.StringFlag{Name: "status"}, &cli.IntFlag{Name: "limit", Value: 20}},
						Action: withApprovals(runApprovalsList),
					},
					{
						Name:   "get",
						Flags:  []cli.Flag{newDBURLFlag(), &cli.StringFlag{Name: "id", Required: true}},
						Action: withApprovals(runApprovalsGet),
					},
					{
						Name: "decide",
						Flags: []cli.Flag{
							newDBURLFlag(),
							&cli.StringFlag{Name: "id", Required: true},
							&cli.StringFlag{Name: "status", Required: true, Usage: "approved or rejected"},
						},
						Action: withApprovals(runApprovalsDecide),
					},
				},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("planner failed")
	}
}

func runProject(c *cli.Context) error {
	a := appFrom(c)
	if sku := c.String("sku"); sku != "" {
		d, err := a.Planner.Detail(c.Context, domain.SKUKey(sku))
		if err != nil {
			return err
		}
		return writeJSON(c.App.Writer, d)
	}

	q := planning.SKUQuery{SortBy: c.String("sort"), Desc: c.Bool("desc")}
	for _, raw := range c.StringSlice("status") {
		s, ok := domain.ParseStatus(raw)
		if !ok {
			return fmt.Errorf("unknown status %q", raw)
		}
		q.Statuses = append(q.Statuses, s)
	}
	if err := q.Validate(); err != nil {
		return err
	}

	rows, err := a.Planner.Summaries(c.Context)
	if err != nil {
		return err
	}
	page, _ := q.Apply(rows)
	return writeJSON(c.App.Writer, page)
}

func runCoverage(c *cli.Context) error {
	a := appFrom(c)
	res, err := a.Planner.Coverage(c.Context, domain.SKUKey(c.String("sku")), *c.Timestamp("date"))
	if err != nil {
		return err
	}
	if !c.Bool("apply") {
		return writeJSON(c.App.Writer, res)
	}

	if _, err := a.Planner.ApplyCoverage(c.Context, res); err != nil {
		return err
	}
	d, err := a.Planner.Detail(c.Context, res.SKU)
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, map[string]any{"coverage": res, "sku": d})
}

func runExport(c *cli.Context) error {
	a := appFrom(c)
	s, err := export.FromPlanner(c.Context, a.Planner, time.Now())
	if err != nil {
		return err
	}

	if c.Bool("publish") {
		if a.Storage == nil {
			return fmt.Errorf("publish: object storage is not enabled")
		}
		key, err := export.Publish(c.Context, a.Storage, a.Config.Planning.SnapshotPrefix, s)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.ErrWriter, "published", key)
	}

	w := c.App.Writer
	if out := c.Path("out"); out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		defer f.Close()
		w = f
	}

	switch c.String("format") {
	case "csv":
		return export.WriteCSV(w, s)
	case "xlsx":
		return export.WriteXLSX(w, s)
	case "json":
		return export.WriteSnapshot(w, s)
	default:
		return fmt.Errorf("unknown format %q", c.String("format"))
	}
}

// withApprovals opens the approvals database through the pgx stdlib driver.
func withApprovals(run func(c *cli.Context, svc *approval.Service) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		db, err := sql.Open("pgx", c.String("db-url"))
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		if err := db.PingContext(c.Context); err != nil {
			return fmt.Errorf("failed to ping database: %w", err)
		}

		repo := postgres.NewApprovalRepository(postgres.WrapSQL(db, "pgx", 4))
		return run(c, approval.NewService(repo, planning.NewPlanner()))
	}
}

func runApprovalsList(c *cli.Context, svc *approval.Service) error {
	filter := repository.ApprovalFilter{Limit: c.Int("limit")}
	if raw := c.String("status"); raw != "" {
		s, ok := domain.ParseApprovalStatus(raw)
		if !ok {
			return fmt.Errorf("unknown status %q", raw)
		}
		filter.Status = s
	}
	list, err := svc.List(c.Context, filter)
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, list)
}

func runApprovalsGet(c *cli.Context, svc *approval.Service) error {
	req, err := svc.Get(c.Context, c.String("id"))
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, req)
}

func runApprovalsDecide(c *cli.Context, svc *approval.Service) error {
	next, ok := domain.ParseApprovalStatus(c.String("status"))
	if !ok {
		return fmt.Errorf("unknown status %q", c.String("status"))
	}
	req, err := svc.Decide(c.Context, c.String("id"), next)
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, req)
}
