package main

import (
	"context"
	"database/sql"
	"io/fs"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/migrate"

	accounts "github.com/loopscentral/go-accounts"
	"github.com/loopscentral/go-accounts/social/google"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded:", err)
	}

	ctx := context.Background()
	cfg := accounts.ConfigFromEnv()

	if cfg.SigningKey == "" {
		log.Fatal("ACCOUNTS_SIGNING_KEY is required")
	}

	db, err := openDatabase(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	repo := accounts.NewRepositoryManager(db)
	repo.MustValidate()

	tokens := accounts.NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetAccessTokenExpiration(),
		cfg.GetRefreshTokenExpiration(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		nil,
	)

	actionTokens := accounts.NewActionTokenService(
		[]byte(cfg.GetActionTokenSecret()),
		cfg.GetActionTokenExpiration(),
	)

	provider := accounts.NewUserProvider(repo.Users())
	auther := accounts.NewAuthenticator(provider, repo.Users(), tokens)

	notifier, err := accounts.NewNotifier(cfg, accounts.NewLogMailer(nil))
	if err != nil {
		log.Fatal(err)
	}

	opts := []accounts.AccountControllerOption{}
	if cfg.GetGoogleClientID() != "" {
		opts = append(opts, accounts.WithGoogleVerifier(google.New(google.Config{
			ClientID: cfg.GetGoogleClientID(),
		})))
	}

	controller := accounts.NewAccountController(cfg, repo, auther, actionTokens, notifier, opts...)

	if err := provisionSuperUser(ctx, repo); err != nil {
		log.Fatal(err)
	}

	app := fiber.New(fiber.Config{
		AppName: cfg.GetSiteName(),
	})

	accounts.RegisterAccountRoutes(app, controller)

	addr := os.Getenv("ACCOUNTS_LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	log.Fatal(app.Listen(addr))
}

func openDatabase(ctx context.Context) (*bun.DB, error) {
	dsn := os.Getenv("ACCOUNTS_DSN")
	if dsn == "" {
		dsn = "file:accounts.db?cache=shared&_pragma=foreign_keys(1)"
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open database")
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if err := runMigrations(ctx, db); err != nil {
		return nil, err
	}

	return db, nil
}

func runMigrations(ctx context.Context, db *bun.DB) error {
	migrationsFS, err := fs.Sub(accounts.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to scope migrations")
	}

	migrations := migrate.NewMigrations()
	if err := migrations.Discover(migrationsFS); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to discover migrations")
	}

	migrator := migrate.NewMigrator(db, migrations)
	if err := migrator.Init(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to init migrator")
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to run migrations")
	}

	if !group.IsZero() {
		log.Println("migrated to", group)
	}

	return nil
}

// provisionSuperUser creates the staff account named by ACCOUNTS_SUPERUSER_*
// on boot. Idempotent: an existing account with that email wins.
func provisionSuperUser(ctx context.Context, repo accounts.RepositoryManager) error {
	email := os.Getenv("ACCOUNTS_SUPERUSER_EMAIL")
	password := os.Getenv("ACCOUNTS_SUPERUSER_PASSWORD")
	if email == "" || password == "" {
		return nil
	}

	hash, err := accounts.HashPassword(password)
	if err != nil {
		return err
	}

	record := accounts.NewSuperUser(
		os.Getenv("ACCOUNTS_SUPERUSER_FIRSTNAME"),
		os.Getenv("ACCOUNTS_SUPERUSER_LASTNAME"),
		os.Getenv("ACCOUNTS_SUPERUSER_USERNAME"),
		email,
		hash,
	)

	user, created, err := repo.Users().FindOrCreate(ctx, record)
	if err != nil {
		return err
	}

	if created {
		log.Println("provisioned superuser", user.Email)
	}

	return nil
}
