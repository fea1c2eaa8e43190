package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/jalvarez-dev/farmline-storefront/pkg/config"
	"github.com/jalvarez-dev/farmline-storefront/pkg/localdb"
	"github.com/jalvarez-dev/farmline-storefront/pkg/logger"
	"github.com/jalvarez-dev/farmline-storefront/pkg/migrate"
)

// Runs goose against the local sqlite mirror, e.g.:
//
//	go run ./cmd/migrate -dir pkg/migrate/migrations up
//	go run ./cmd/migrate status
func main() {
	dir := flag.String("dir", migrate.DefaultDir, "migrations directory")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: migrate [-dir path] <goose-command> [args]")
		os.Exit(2)
	}
	command := flag.Arg(0)
	args := flag.Args()[1:]

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fatal(err)
	}

	logg := logger.New(logger.Options{ServiceName: "farmline-migrate", Level: zerolog.InfoLevel})
	ctx := context.Background()

	client, err := localdb.New(ctx, cfg.LocalStore, logg)
	if err != nil {
		fatal(err)
	}
	defer client.Close()

	sqlDB, err := client.DB().DB()
	if err != nil {
		fatal(err)
	}

	if err := migrate.Run(ctx, sqlDB, *dir, command, args...); err != nil {
		fatal(err)
	}
	logg.Info(logg.WithField(ctx, "command", command), "migration command completed")
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
	os.Exit(1)
}
