package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"

	"bnpl-checkout/config"
	"bnpl-checkout/handlers"
	"bnpl-checkout/logger"
	"bnpl-checkout/shared"
)

type options struct {
	sessionID string
	total     string
	cfg       *config.AppConfig
}

func main() {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "starter",
		Short: "Drive a checkout flow from the terminal",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.cfg = config.Load()
			logger.Init(opts.cfg.LogLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFlows(opts, func(f *handlers.TemporalFlows) error {
				return interactive(cmd.Context(), f, opts)
			})
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.sessionID, "session", "SESSION-001", "checkout session id")
	rootCmd.PersistentFlags().StringVar(&opts.total, "total", "2250.00", "order total in USD")

	rootCmd.AddCommand(startCmd(opts))
	rootCmd.AddCommand(viewCmd(opts))
	rootCmd.AddCommand(actCmd(opts))
	rootCmd.AddCommand(authCmd(opts))
	rootCmd.AddCommand(resumeCmd(opts))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func withFlows(opts *options, fn func(f *handlers.TemporalFlows) error) error {
	c, err := client.Dial(opts.cfg.ClientOptions())
	if err != nil {
		return fmt.Errorf("unable to create Temporal client: %w", err)
	}
	defer c.Close()
	return fn(handlers.NewTemporalFlows(c))
}

func startCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the checkout flow for a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFlows(opts, func(f *handlers.TemporalFlows) error {
				return start(cmd.Context(), f, opts)
			})
		},
	}
}

func viewCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Print the current checkout view",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFlows(opts, func(f *handlers.TemporalFlows) error {
				return printView(cmd.Context(), f, opts.sessionID)
			})
		},
	}
}

func actCmd(opts *options) *cobra.Command {
	var act shared.Action
	var method string
	cmd := &cobra.Command{
		Use:   "act <kind>",
		Short: "Send a shopper action to the checkout flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			act.Kind = args[0]
			act.Method = shared.PaymentMethod(method)
			return withFlows(opts, func(f *handlers.TemporalFlows) error {
				return sendAction(cmd.Context(), f, opts.sessionID, act)
			})
		},
	}
	cmd.Flags().StringVar(&act.Option, "option", "", "option id for pick-option")
	cmd.Flags().StringVar(&act.Name, "name", "", "bank, card or exchange name")
	cmd.Flags().StringVar(&act.Address, "address", "", "wallet address")
	cmd.Flags().StringVar(&act.PublicToken, "public-token", "", "Plaid public token")
	cmd.Flags().StringVar(&act.SourceID, "source", "", "data source id")
	cmd.Flags().StringVar(&act.PlanID, "plan", "", "payment plan id")
	cmd.Flags().StringVar(&method, "method", "", "payment method (bank or crypto)")
	cmd.Flags().StringVar(&act.TxHash, "tx-hash", "", "transaction hash")
	cmd.Flags().BoolVar(&act.Succeeded, "succeeded", false, "outcome of an external step")
	cmd.Flags().BoolVar(&act.Granted, "granted", false, "whether the shopper granted access")
	return cmd
}

func authCmd(opts *options) *cobra.Command {
	var u shared.User
	var wallets []string
	cmd := &cobra.Command{
		Use:   "auth <user-id>",
		Short: "Report the shopper as signed in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u.ID = args[0]
			for _, w := range wallets {
				u.LinkedWallets = append(u.LinkedWallets, shared.LinkedWallet{Address: w, ChainType: "ethereum"})
			}
			return withFlows(opts, func(f *handlers.TemporalFlows) error {
				if err := f.Authenticate(cmd.Context(), opts.sessionID, u); err != nil {
					return err
				}
				fmt.Println("✅ Authentication sent")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&u.HasBank, "has-bank", false, "shopper already linked a bank")
	cmd.Flags().StringSliceVar(&wallets, "wallet", nil, "linked wallet address (repeatable)")
	return cmd
}

func resumeCmd(opts *options) *cobra.Command {
	var r shared.ResumeRequest
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Simulate the shopper returning from the verification partner",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFlows(opts, func(f *handlers.TemporalFlows) error {
				if err := f.Resume(cmd.Context(), opts.sessionID, r); err != nil {
					return err
				}
				fmt.Println("✅ Resume sent")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&r.QueryParam, "query-param", true, "the return URL carried the verification marker")
	cmd.Flags().StringVar(&r.RequestID, "request-id", "", "verification request id from the return URL")
	return cmd
}

func start(ctx context.Context, f *handlers.TemporalFlows, opts *options) error {
	total, err := decimal.NewFromString(opts.total)
	if err != nil {
		return fmt.Errorf("invalid --total %q: %w", opts.total, err)
	}
	req := shared.CheckoutFlowRequest{
		SessionID:     opts.sessionID,
		CartID:        opts.sessionID,
		TotalAmount:   total,
		ReturnBaseURL: opts.cfg.APIBaseURL,
	}
	started, err := f.Start(ctx, req)
	if err != nil {
		return err
	}
	id := shared.CheckoutWorkflowID(opts.sessionID)
	if started {
		fmt.Printf("🚀 Started checkout flow %s for $%s\n", id, total.StringFixed(2))
	} else {
		fmt.Printf("ℹ️  Checkout flow %s is already running\n", id)
	}
	return nil
}

func printView(ctx context.Context, f *handlers.TemporalFlows, sessionID string) error {
	s, err := f.View(ctx, sessionID)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("\n📋 View: %s\n%s\n", s.View, out)
	return nil
}

func sendAction(ctx context.Context, f *handlers.TemporalFlows, sessionID string, act shared.Action) error {
	res, err := f.Act(ctx, sessionID, act)
	var rejected *handlers.RejectedError
	if errors.As(err, &rejected) {
		fmt.Printf("❌ Rejected: %s\n", rejected.Message)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("✅ Now at %s\n", res.View.View)
	if res.RedirectURL != "" {
		fmt.Printf("   Open in a browser: %s\n", res.RedirectURL)
	}
	return nil
}

// interactive starts the session's flow and then loops on a menu until the
// flow completes or the user exits.
func interactive(ctx context.Context, f *handlers.TemporalFlows, opts *options) error {
	if err := start(ctx, f, opts); err != nil {
		return err
	}
	reader := bufio.NewReader(os.Stdin)
	prompt := func(label string) string {
		fmt.Print(label)
		line, _ := reader.ReadString('\n')
		return strings.TrimSpace(line)
	}

	for {
		fmt.Println()
		fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		fmt.Println("  BNPL Checkout CLI")
		fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		fmt.Println()
		fmt.Println("  [1] Sign in")
		fmt.Println("  [2] Query current view")
		fmt.Println("  [3] Send action")
		fmt.Println("  [4] Simulate return from verification partner")
		fmt.Println("  [5] Exit (flow keeps running)")
		fmt.Println()

		var err error
		switch prompt("Choose: ") {
		case "1":
			u := shared.User{ID: prompt("User id: ")}
			if w := prompt("Wallet address (blank for none): "); w != "" {
				u.LinkedWallets = []shared.LinkedWallet{{Address: w, ChainType: "ethereum"}}
			}
			err = f.Authenticate(ctx, opts.sessionID, u)
		case "2":
			err = printView(ctx, f, opts.sessionID)
		case "3":
			act := shared.Action{Kind: prompt("Action kind: ")}
			act.Option = prompt("Option (blank if none): ")
			act.Name = prompt("Name (blank if none): ")
			err = sendAction(ctx, f, opts.sessionID, act)
		case "4":
			err = f.Resume(ctx, opts.sessionID, shared.ResumeRequest{
				QueryParam: true,
				RequestID:  prompt("Request id: "),
			})
		case "5":
			fmt.Println()
			fmt.Println("👋 Exiting CLI. The checkout flow continues running in Temporal.")
			fmt.Println("   Re-run with the same --session to reconnect, or view at http://localhost:8233")
			return nil
		default:
			fmt.Println("❌ Invalid choice. Please enter 1 to 5.")
			continue
		}

		if errors.Is(err, handlers.ErrSessionNotFound) {
			fmt.Println("🏁 The checkout flow has finished.")
			return nil
		}
		if err != nil {
			fmt.Printf("❌ %v\n", err)
		}
	}
}
