package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/homeledger/homeledger/internal/app/settlement"
	"github.com/homeledger/homeledger/internal/daemon"
	"github.com/homeledger/homeledger/internal/domain"
	"github.com/homeledger/homeledger/internal/infra/sqlite"
)

var payallCmd = &cobra.Command{
	Use:   "payall USERNAME YEAR MONTH",
	Short: "Settle every unpaid expense of one month for a user",
	Args:  cobra.ExactArgs(3),
	RunE:  runPayAll,
}

func init() {
	rootCmd.AddCommand(payallCmd)
}

func runPayAll(cmd *cobra.Command, args []string) error {
	username := args[0]
	year, err := strconv.Atoi(args[1])
	if err != nil || year < 1970 {
		return fmt.Errorf("invalid year %q", args[1])
	}
	month, err := strconv.Atoi(args[2])
	if err != nil || month < 1 || month > 12 {
		return fmt.Errorf("invalid month %q", args[2])
	}

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := daemon.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := sqlite.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	user, err := db.GetUserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("user %q: %w", username, err)
	}

	svc := settlement.NewService(db)
	settled, err := svc.PayAllMonth(ctx, user.ID, year, time.Month(month), time.Now())
	if errors.Is(err, domain.ErrNoOutstandingDebt) {
		fmt.Fprintf(os.Stdout, "Nothing owed for %04d-%02d\n", year, month)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Settled %04d-%02d: payment %s across %d expense(s)\n",
		year, month, settled.Payment.Amount, len(settled.Allocations))
	return nil
}
