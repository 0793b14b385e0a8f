package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/stockpilot/papertrade/internal/harness"
	"github.com/stockpilot/papertrade/internal/persistence/postgres"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <session-id>",
		Short: "Fetch a stored final report",
		Long:  "Fetch a session's final report from the database and print it as JSON.",
		Args:  cobra.ExactArgs(1),
		RunE:  runReport,
	}
	cmd.Flags().String("dsn-env", "DATABASE_URL", "Environment variable holding the Postgres DSN")
	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	godotenv.Load()

	dsnEnv, _ := cmd.Flags().GetString("dsn-env")
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		return fmt.Errorf("%s is not set", dsnEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, db, err := postgres.Connect(ctx, dsn, 5*time.Second)
	if err != nil {
		return err
	}
	defer db.Close()

	rec, err := store.Reports.GetBySession(ctx, args[0])
	if err != nil {
		return err
	}

	var rep harness.FinalReport
	if err := json.Unmarshal(rec.Report, &rep); err != nil {
		return fmt.Errorf("failed to decode stored report: %w", err)
	}

	out, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
