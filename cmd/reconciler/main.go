package main

import (
	"os"

	"contra-reconciliation-service/cmd/reconciler/cmd"

	"github.com/joho/godotenv"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	// A missing .env is fine; RECONCILER_ variables may come from the shell.
	_ = godotenv.Load()

	cmd.SetVersionInfo(version, commit, date)

	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.NewCLIErrorHandler().HandleError(err))
	}
}
