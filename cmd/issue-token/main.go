// Command issue-token creates a cashier when missing and prints a fresh
// bearer token for it. Any token issued earlier for the cashier stops
// working.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"go-pos-checkout/internal/config"
	"go-pos-checkout/internal/logging"
	"go-pos-checkout/internal/repository"
	"go-pos-checkout/internal/service"
	"go-pos-checkout/pkg/database"
	"go-pos-checkout/pkg/jwt"

	"go.uber.org/zap"
)

func main() {
	email := flag.String("email", "", "cashier email (required)")
	name := flag.String("name", "", "display name, used when the cashier is created")
	role := flag.String("role", "CASHIER", "CASHIER or SUPERVISOR, used when the cashier is created")
	flag.Parse()

	if *email == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *name == "" {
		*name = *email
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	zlog, err := logging.New(cfg.Debug)
	if err != nil {
		log.Fatal(err)
	}
	defer zlog.Sync()

	db, err := database.Connect(cfg.DSN(), zlog, cfg.Debug)
	if err != nil {
		zlog.Fatal("connect database", zap.Error(err))
	}
	if err := repository.AutoMigrate(db); err != nil {
		zlog.Fatal("migrate", zap.Error(err))
	}

	tokens, err := jwt.NewManager(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		zlog.Fatal("token manager", zap.Error(err))
	}
	cashiers := service.NewCashierService(repository.NewStore(db), tokens)

	ctx := context.Background()
	cashier, err := cashiers.Ensure(ctx, *email, *name, *role)
	if err != nil {
		zlog.Fatal("ensure cashier", zap.String("email", *email), zap.Error(err))
	}
	token, err := cashiers.IssueToken(ctx, cashier)
	if err != nil {
		zlog.Fatal("issue token", zap.Error(err))
	}

	zlog.Info("token issued",
		zap.String("cashier_id", cashier.ID.String()),
		zap.String("role", cashier.Role),
		zap.Duration("ttl", cfg.TokenTTL))
	fmt.Println(token)
}
