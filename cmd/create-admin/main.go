// Command create-admin adds an admin account to the database.
//
// Usage:
//
//	DB_DSN=postgres://... create-admin -username admin -password secret
//
// The password may also be given in the ADMIN_PASSWORD environment variable.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fuad-rahat/school-website/internal/auth"
	"github.com/fuad-rahat/school-website/internal/models"
	"github.com/fuad-rahat/school-website/internal/store"
	"github.com/fuad-rahat/school-website/internal/store/postgres"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

type options struct {
	username string
	password string
	dsn      string
}

// parseOptions parses args.  Environment values are read only after parsing
// so that the usage text never shows them.
func parseOptions(args []string, getenv func(string) string, output io.Writer) (options, error) {
	var o options

	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&o.username, "username", "admin", "admin username")
	fs.StringVar(&o.password, "password", "", "admin password; $ADMIN_PASSWORD when empty")
	fs.StringVar(&o.dsn, "dsn", "", "postgres connection string; $DB_DSN when empty")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if o.password == "" {
		o.password = getenv("ADMIN_PASSWORD")
	}
	if o.dsn == "" {
		o.dsn = getenv("DB_DSN")
	}

	return o, nil
}

func main() {
	o, err := parseOptions(os.Args[1:], os.Getenv, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	} else if err != nil {
		os.Exit(2)
	}

	logger := slogutil.New(&slogutil.Config{
		Format: slogutil.FormatDefault,
		Level:  slog.LevelInfo,
	})

	if err = run(o.dsn, o.username, o.password); err != nil {
		logger.Error("creating admin", slogutil.KeyError, err)
		os.Exit(1)
	}
}

func run(dsn, username, password string) error {
	if dsn == "" {
		return errors.Error("no database: set -dsn or DB_DSN")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("password: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()

	st := postgres.NewStore(pool)
	if err = st.Migrate(ctx); err != nil {
		return err
	}

	admin, err := st.CreateAdmin(ctx, models.Admin{
		Username:     username,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		fmt.Printf("admin %q already exists\n", username)
		return nil
	} else if err != nil {
		return err
	}

	fmt.Printf("created admin %q (%s)\n", admin.Username, admin.AdminID)
	return nil
}
