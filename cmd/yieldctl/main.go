// Command yieldctl prints one aggregation as JSON without starting the
// server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/web3-frozen/aptos-yield-monitor/internal/app"
	"github.com/web3-frozen/aptos-yield-monitor/internal/config"
	"github.com/web3-frozen/aptos-yield-monitor/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(ctx).Execute(); err != nil {
		os.Exit(1)
	}
}

type cli struct {
	ctx      context.Context
	app      *app.App
	logLevel string
}

func newRootCmd(ctx context.Context) *cobra.Command {
	c := &cli{ctx: ctx}
	root := &cobra.Command{
		Use:               "yieldctl",
		Short:             "Query Aptos yield, token and news aggregations",
		SilenceUsage:      true,
		PersistentPreRunE: c.open,
		PersistentPostRun: c.close,
	}
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(
		&cobra.Command{
			Use:   "staking",
			Short: "Protocol rates, comparison and strategies",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return printJSON(cmd, c.app.Service.RefreshStaking(ctx))
			},
		},
		&cobra.Command{
			Use:   "tokens",
			Short: "Aptos token market through the source fallback chain",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return printJSON(cmd, c.app.Service.RefreshTokens(ctx))
			},
		},
		&cobra.Command{
			Use:   "news",
			Short: "Latest Aptos and general crypto news",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return printJSON(cmd, c.app.Service.RefreshNews(ctx))
			},
		},
		&cobra.Command{
			Use:   "wallet <address>",
			Short: "Portfolio snapshot and staking recommendations",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				rep, err := c.app.Service.Wallet(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, rep)
			},
		},
		c.recommendCmd(),
	)
	return root
}

func (c *cli) open(*cobra.Command, []string) error {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()
	cfg := config.Load()
	// one-shot queries never record history
	cfg.DatabaseURL = ""
	cfg.LogLevel = c.logLevel

	a, err := app.New(c.ctx, cfg, logging.NewWithWriter(os.Stderr, cfg.LogLevel))
	if err != nil {
		return err
	}
	c.app = a
	return nil
}

func (c *cli) close(*cobra.Command, []string) {
	if c.app != nil {
		c.app.Close()
	}
}

func (c *cli) recommendCmd() *cobra.Command {
	var (
		amount  float64
		profile string
		wallet  string
	)
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Ask the language model for a personalised allocation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkAmount(amount); err != nil {
				return err
			}
			rec, err := c.app.Service.Recommend(c.ctx, amount, profile, wallet)
			if err != nil {
				return err
			}
			return printJSON(cmd, rec)
		},
	}
	cmd.Flags().Float64Var(&amount, "amount", 0, "APT to allocate")
	cmd.Flags().StringVar(&profile, "risk", "balanced", "risk profile")
	cmd.Flags().StringVar(&wallet, "wallet", "", "optional wallet address for context")
	return cmd
}

func checkAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return errors.New("--amount must be a positive finite number")
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
