// ledgerctl tareas operativas fuera de banda sobre el libro de stock.
//
// Uso:
//
//	go run ./cmd/ledgerctl verify -tenant <id> [-item <id>]
//	go run ./cmd/ledgerctl repair [-limit 100] [-grace 30s]
//	go run ./cmd/ledgerctl token -user <id> -tenant <id> -role admin
//
// Lee la misma configuración (env / config.env) que el API.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/storage"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/jwt"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "cargar configuración:", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.Log.Level,
		Service: cfg.App.Name + "-ctl",
		Out:     os.Stderr,
	}).Zerolog()

	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "verify":
		err = verify(cfg, log, args)
	case "repair":
		err = repair(cfg, log, args)
	case "token":
		err = token(cfg, args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Error().Err(err).Str("command", os.Args[1]).Msg("comando fallido")
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "uso: ledgerctl verify|repair|token [flags]")
}

func openReconciler(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*inventory.Reconciler, func(), error) {
	backend, err := storage.Open(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	r := inventory.NewReconciler(backend.Items, backend.Movements, backend.Pending, log, nil)
	return r, backend.Close, nil
}

func verify(cfg *config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	tenantID := fs.String("tenant", "", "tenant a verificar")
	itemID := fs.String("item", "", "ítem puntual (opcional)")
	_ = fs.Parse(args)
	if *tenantID == "" {
		return fmt.Errorf("-tenant es requerido")
	}

	ctx := context.Background()
	r, closeFn, err := openReconciler(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeFn()

	var reports []inventory.ReconcileReport
	if *itemID != "" {
		rep, err := r.VerifyItem(ctx, *tenantID, *itemID)
		if err != nil {
			return err
		}
		reports = append(reports, *rep)
	} else {
		reports, err = r.VerifyTenant(ctx, *tenantID)
		if err != nil {
			return err
		}
	}
	return printJSON(reports)
}

func repair(cfg *config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("repair", flag.ExitOnError)
	limit := fs.Int("limit", cfg.Reconcile.Batch, "máximo de operaciones a revisar")
	grace := fs.Duration("grace", inventory.DefaultPendingGrace, "antigüedad mínima de la operación")
	_ = fs.Parse(args)

	ctx := context.Background()
	r, closeFn, err := openReconciler(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeFn()

	summary, err := r.WithGrace(*grace).RepairPending(ctx, *limit)
	if err != nil {
		return err
	}
	return printJSON(summary)
}

func token(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	userID := fs.String("user", "", "sub del token")
	tenantID := fs.String("tenant", "", "tenant_id del token")
	role := fs.String("role", "admin", "admin | bodeguero | vendedor")
	ttl := fs.Duration("ttl", time.Duration(cfg.JWT.Expiration)*time.Minute, "vigencia")
	_ = fs.Parse(args)
	if *userID == "" || *tenantID == "" {
		return fmt.Errorf("-user y -tenant son requeridos")
	}
	tok, err := jwt.Generate(cfg.JWT.Secret, cfg.JWT.Issuer, jwt.Identity{UserID: *userID, TenantID: *tenantID, Role: *role}, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
