package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"stockledger/internal/adapters/cli"
	webAdapter "stockledger/internal/adapters/web"
	"stockledger/internal/app"
	"stockledger/internal/config"
	"stockledger/internal/db"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: stockctl <command> [args]")
		fmt.Fprintln(os.Stderr, "       stockctl token <subject> [viewer|operator]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// token only needs the secret, not a store.
	if os.Args[1] == "token" {
		if len(os.Args) < 3 {
			log.Fatal("Usage: stockctl token <subject> [viewer|operator]")
		}
		role := webAdapter.RoleOperator
		if len(os.Args) > 3 {
			role = os.Args[3]
		}
		tok, err := webAdapter.IssueToken(cfg.JWTSecret, os.Args[2], role, 24*time.Hour)
		if err != nil {
			log.Fatalf("token: %v", err)
		}
		fmt.Println(tok)
		return
	}

	ctx := context.Background()
	store, closeStore, err := db.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer closeStore()

	svc := app.NewAppService(store, app.Options{
		TrackingWarningDays: cfg.TrackingWarningDays,
		LowStockThreshold:   cfg.LowStockThreshold,
	})

	if err := cli.Run(ctx, svc, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		closeStore()
		log.Fatal(err)
	}
}
