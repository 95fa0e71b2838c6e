// Command seed-db loads a sample menu and generates sample orders.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jaswdr/faker"
	pgzip "github.com/klauspost/pgzip"
	"go.opentelemetry.io/otel/metric/noop"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/backoffice/internal/api"
	"github.com/xenking/backoffice/internal/domain/menu"
	"github.com/xenking/backoffice/internal/domain/order"
	"github.com/xenking/backoffice/internal/storage/postgres"
)

type options struct {
	databaseURL string
	menuFile    string
	orders      int
	workers     int
	reset       bool
}

func main() {
	var opts options

	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.menuFile, "menu-file", "db/seed/menu.json", "path to menu JSON file (.json or .json.gz)")
	flag.IntVar(&opts.orders, "orders", 50, "number of sample orders to generate")
	flag.IntVar(&opts.workers, "workers", 4, "concurrent order inserts")
	flag.BoolVar(&opts.reset, "reset", false, "delete all menu items and orders first")
	flag.Parse()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, opts options) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, opts.databaseURL, int32(max(opts.workers, 2)))
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if opts.reset {
		if err := reset(ctx, pool); err != nil {
			return err
		}
	}

	menuRepo := postgres.NewMenuRepository(pool)
	items, err := seedMenu(ctx, menu.NewService(menuRepo), opts.menuFile)
	if err != nil {
		return errors.Wrap(err, "seed menu")
	}

	orders, err := order.NewService(order.Config{}, postgres.NewOrderRepository(pool), menuRepo, nil, noop.NewMeterProvider().Meter("seed-db"))
	if err != nil {
		return errors.Wrap(err, "create order service")
	}
	if err := seedOrders(ctx, orders, items, opts.orders, opts.workers); err != nil {
		return errors.Wrap(err, "seed orders")
	}
	return nil
}

func reset(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Warn("deleting existing menu items and orders")
	if _, err := pool.Exec(ctx, `TRUNCATE orders, menu_items`); err != nil {
		return errors.Wrap(err, "truncate")
	}
	return nil
}

// readMenu decodes the menu file, decompressing it when it ends in .gz.
func readMenu(path string) ([]api.MenuItemInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open menu file")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if filepath.Ext(path) == ".gz" {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	var items []api.MenuItemInput
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, errors.Wrap(err, "parse menu JSON")
	}
	return items, nil
}

// seedMenu creates the menu from path unless the catalog already has items,
// and returns the current catalog.
func seedMenu(ctx context.Context, svc *menu.Service, path string) ([]menu.Item, error) {
	existing, err := svc.Search(ctx, menu.Filter{})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		slog.Info("menu already present, skipping", slog.Int("count", len(existing)))
		return existing, nil
	}

	slog.Info("reading menu file", slog.String("path", path))
	inputs, err := readMenu(path)
	if err != nil {
		return nil, err
	}

	items := make([]menu.Item, 0, len(inputs))
	for i, in := range inputs {
		it, err := svc.Create(ctx, in.Draft())
		if err != nil {
			return nil, errors.Wrapf(err, "menu item %d", i)
		}
		items = append(items, *it)
		slog.Info("created menu item", slog.String("id", it.ID), slog.String("name", it.Name))
	}
	return items, nil
}

type sampleOrder struct {
	req    order.CreateRequest
	status order.Status
}

// sampleOrders builds n random orders over the available items. faker is not
// safe for concurrent use, so generation happens before the inserts.
func sampleOrders(fake faker.Faker, items []menu.Item, n int) []sampleOrder {
	var available []menu.Item
	for _, it := range items {
		if it.IsAvailable {
			available = append(available, it)
		}
	}
	if len(available) == 0 {
		return nil
	}

	out := make([]sampleOrder, n)
	for i := range out {
		seen := make(map[string]bool)
		var lines []order.Line
		for range fake.IntBetween(1, 4) {
			it := available[fake.IntBetween(0, len(available)-1)]
			if seen[it.ID] {
				continue
			}
			seen[it.ID] = true
			lines = append(lines, order.Line{MenuItemID: it.ID, Quantity: fake.IntBetween(1, 3), Price: it.Price})
		}
		total := order.Total(lines)

		var customer string
		if fake.Boolean().Bool() {
			customer = fake.Person().Name()
		}
		out[i] = sampleOrder{
			req: order.CreateRequest{
				TableNumber:  fake.IntBetween(1, 30),
				CustomerName: customer,
				Items:        lines,
				TotalAmount:  &total,
			},
			status: order.Statuses[fake.IntBetween(0, len(order.Statuses)-1)],
		}
	}
	return out
}

func seedOrders(ctx context.Context, svc *order.Service, items []menu.Item, n, workers int) error {
	samples := sampleOrders(faker.New(), items, n)
	if len(samples) == 0 {
		slog.Warn("no available menu items, skipping orders")
		return nil
	}
	slog.Info("creating orders", slog.Int("count", len(samples)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for _, s := range samples {
		g.Go(func() error {
			o, err := svc.Create(gctx, s.req)
			if err != nil {
				return err
			}
			if s.status == order.StatusPending {
				return nil
			}
			_, err = svc.SetStatus(gctx, o.ID, string(s.status))
			return err
		})
	}
	return g.Wait()
}
