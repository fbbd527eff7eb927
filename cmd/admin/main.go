package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/adminaccess/internal/admincli"
	"github.com/dmitrijs2005/adminaccess/internal/flagx"
	"github.com/dmitrijs2005/adminaccess/internal/logging"
	"github.com/dmitrijs2005/adminaccess/internal/server"
	"github.com/dmitrijs2005/adminaccess/internal/server/config"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx := context.Background()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	app, err := server.NewApp(ctx, cfg, logger, os.Stderr)
	if err != nil {
		log.Fatalf("%v", err)
	}

	code := admincli.New(app.Access(), os.Stdout, os.Stderr).Run(ctx, flagx.Positional(os.Args[1:]))
	_ = app.Close()
	os.Exit(code)
}
