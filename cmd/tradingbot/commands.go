package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/simaogato/tradingbot-backend/internal/adapter/grpc"
	"github.com/simaogato/tradingbot-backend/internal/usecase/trading"
)

// dialRemote connects to a running tradingbot serve instance
func dialRemote(addr, token string) (*grpc.Client, func() error, error) {
	conn, err := grpclib.NewClient(addr, grpclib.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return grpc.NewClient(conn, token), conn.Close, nil
}

// withLocalService runs fn against an engine recovered from local storage
func withLocalService(ctx context.Context, fn func(svc *trading.Service) error) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	svc, err := a.tradingService(ctx)
	if err != nil {
		return err
	}
	return fn(svc)
}

// remoteToken is the token sent with --remote calls. It falls back to the
// configured server token.
func remoteToken(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	cfg, _, err := setup()
	if err != nil {
		return "", err
	}
	return cfg.Server.APIToken, nil
}

func addRemoteFlags(cmd *cobra.Command, remote, token *string) {
	cmd.Flags().StringVar(remote, "remote", "", "Address of a running tradingbot gRPC server")
	cmd.Flags().StringVar(token, "token", "", "API token for --remote (defaults to server.api_token)")
}

func tradeCmd() *cobra.Command {
	var remote, token string

	cmd := &cobra.Command{
		Use:   "trade",
		Short: "Run one trading pass and print the outcome with the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if remote != "" {
				tok, err := remoteToken(token)
				if err != nil {
					return err
				}
				client, closeConn, err := dialRemote(remote, tok)
				if err != nil {
					return err
				}
				defer closeConn()

				resp, err := client.RunTradingPass(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			}

			return withLocalService(ctx, func(svc *trading.Service) error {
				result, err := svc.RunTradingPass(ctx)
				if err != nil {
					return err
				}
				rep, err := svc.GetProfitLossReport(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), grpc.PassResponse{Pass: result, Report: rep})
			})
		},
	}

	addRemoteFlags(cmd, &remote, &token)
	return cmd
}

func reportCmd() *cobra.Command {
	var remote, token string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the profit and loss report",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if remote != "" {
				tok, err := remoteToken(token)
				if err != nil {
					return err
				}
				client, closeConn, err := dialRemote(remote, tok)
				if err != nil {
					return err
				}
				defer closeConn()

				rep, err := client.GetProfitLossReport(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), rep)
			}

			return withLocalService(ctx, func(svc *trading.Service) error {
				rep, err := svc.GetProfitLossReport(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), rep)
			})
		},
	}

	addRemoteFlags(cmd, &remote, &token)
	return cmd
}

func tradesCmd() *cobra.Command {
	var remote, token string

	cmd := &cobra.Command{
		Use:   "trades",
		Short: "List the trade ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if remote != "" {
				tok, err := remoteToken(token)
				if err != nil {
					return err
				}
				client, closeConn, err := dialRemote(remote, tok)
				if err != nil {
					return err
				}
				defer closeConn()

				trades, err := client.ListTrades(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), trades)
			}

			return withLocalService(ctx, func(svc *trading.Service) error {
				trades, err := svc.Trades(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), trades)
			})
		},
	}

	addRemoteFlags(cmd, &remote, &token)
	return cmd
}

func priceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Manage the price feed",
	}
	cmd.AddCommand(priceSetCmd())
	cmd.AddCommand(priceImportCmd())
	return cmd
}

func priceSetCmd() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "set SYMBOL PRICE",
		Short: "Record a quote for a symbol in the configured price source",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := strings.ToUpper(strings.TrimSpace(args[0]))
			price, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid price %q: %w", args[1], err)
			}
			ts := time.Now().UTC()
			if at != "" {
				ts, err = time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at timestamp: %w", err)
				}
			}

			cfg, log, err := setup()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.prices.SetPrice(ctx, symbol, price, ts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s at %s\n", symbol, price.String(), ts.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Quote timestamp in RFC 3339 (defaults to now)")
	return cmd
}

func priceImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import DIR",
		Short: "Seed unpriced symbols from prices.json and history.json in DIR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			seeded, err := a.seedPrices(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), seeded)
		},
	}
}
