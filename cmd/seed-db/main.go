// Command seed-db applies migrations and loads a catalog and an admin user.
// Re-running it is safe: existing categories, products and users are kept.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/category"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/user"
	"github.com/xenking/storefront/internal/repository"
)

type options struct {
	databaseURL   string
	catalogFile   string
	adminName     string
	adminEmail    string
	adminPassword string
	bcryptCost    int
}

func main() {
	var opts options
	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.catalogFile, "catalog-file", "db/seed/catalog.json", "catalog JSON file, optionally .json.gz")
	flag.StringVar(&opts.adminName, "admin-name", "Administrator", "name of the seeded admin")
	flag.StringVar(&opts.adminEmail, "admin-email", "", "email of the seeded admin (or SHOP_SEED_ADMIN_EMAIL env)")
	flag.StringVar(&opts.adminPassword, "admin-password", "", "password of the seeded admin (or SHOP_SEED_ADMIN_PASSWORD env)")
	flag.IntVar(&opts.bcryptCost, "bcrypt-cost", bcrypt.DefaultCost, "bcrypt cost for the admin password")
	flag.Parse()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.adminEmail == "" {
		opts.adminEmail = os.Getenv("SHOP_SEED_ADMIN_EMAIL")
	}
	if opts.adminPassword == "" {
		opts.adminPassword = os.Getenv("SHOP_SEED_ADMIN_PASSWORD")
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
	catalog, err := readCatalog(opts.catalogFile)
	if err != nil {
		return err
	}

	slog.Info("connecting to database")
	pool, err := repository.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	applied, err := repository.RunMigrations(ctx, pool)
	if err != nil {
		return errors.Wrap(err, "run migrations")
	}
	slog.Info("migrations applied", slog.Int("count", applied))

	categories := repository.NewCategoryRepository(pool)
	products := repository.NewProductRepository(pool)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, c := range catalog {
		g.Go(func() error {
			return seedCategory(gCtx, categories, products, c)
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	if opts.adminEmail == "" {
		slog.Info("no admin email given, skipping admin")
		return nil
	}
	userRepo := repository.NewUserRepository(pool)
	// RegisterAdmin never issues tokens.
	users := user.NewService(userRepo, nil, opts.bcryptCost)
	return seedAdmin(ctx, userRepo, users, opts)
}

func seedCategory(ctx context.Context, categories category.Repository, products product.Repository, in catalogCategory) error {
	c, err := categories.GetByName(ctx, in.Name)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		c = &category.Category{Name: in.Name, Description: in.Description}
		if err := categories.Create(ctx, c); err != nil {
			return errors.Wrapf(err, "create category %q", in.Name)
		}
		slog.Info("created category", slog.Int64("id", c.ID), slog.String("name", c.Name))
	case err != nil:
		return errors.Wrapf(err, "get category %q", in.Name)
	}

	existing, err := products.ListByCategory(ctx, c.ID)
	if err != nil {
		return errors.Wrapf(err, "list products of %q", in.Name)
	}
	have := make(map[string]bool, len(existing))
	for _, p := range existing {
		have[p.Name] = true
	}

	for _, sp := range in.Products {
		if have[sp.Name] {
			continue
		}
		p := &product.Product{
			Name:        sp.Name,
			Description: sp.Description,
			Price:       sp.Price,
			Stock:       sp.Stock,
			CategoryID:  c.ID,
		}
		if err := products.Create(ctx, p); err != nil {
			return errors.Wrapf(err, "create product %q", sp.Name)
		}
		slog.Info("created product",
			slog.Int64("id", p.ID),
			slog.String("name", p.Name),
			slog.String("price", p.Price.StringFixed(2)),
			slog.Int("stock", p.Stock),
		)
	}
	return nil
}

func seedAdmin(ctx context.Context, repo user.Repository, users *user.Service, opts options) error {
	switch _, err := repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(opts.adminEmail))); {
	case err == nil:
		slog.Info("admin already present", slog.String("email", opts.adminEmail))
		return nil
	case !errors.Is(err, apperr.ErrNotFound):
		return errors.Wrap(err, "get admin")
	}

	u, err := users.RegisterAdmin(ctx, user.RegisterInput{
		Name:     opts.adminName,
		Email:    opts.adminEmail,
		Password: opts.adminPassword,
	})
	if err != nil {
		return errors.Wrap(err, "register admin")
	}
	slog.Info("created admin", slog.Int64("id", u.ID), slog.String("email", u.Email), slog.String("role", u.Role.String()))
	return nil
}
