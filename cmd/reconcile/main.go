package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/reconware/pos-reconcile-backend/internal/cli"
	"github.com/reconware/pos-reconcile-backend/internal/infrastructure/config"
)

func main() {
	_ = godotenv.Load()

	flags := cli.ParseRunFlags()
	cfg := config.LoadOrEnv()

	if err := cli.RunReconcile(cfg, flags); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
