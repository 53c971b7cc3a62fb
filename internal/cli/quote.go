package cli

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/spf13/cobra"

	"meme-ledger/internal/pricing"
)

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price bonding curve trades offline",
	}
	cmd.AddCommand(newQuoteCostCmd())
	cmd.AddCommand(newQuotePercentCmd())
	return cmd
}

func newQuoteCostCmd() *cobra.Command {
	var supply, quantity string

	cmd := &cobra.Command{
		Use:   "cost",
		Short: "Cost of buying --quantity whole tokens after --supply have been sold",
		RunE: func(cmd *cobra.Command, args []string) error {
			sold, err := parseWhole("supply", supply)
			if err != nil {
				return err
			}
			qty, err := parseWhole("quantity", quantity)
			if err != nil {
				return err
			}

			curve := pricing.Default()
			cost, err := curve.CalculateCost(sold, qty)
			if err != nil {
				return err
			}
			after := new(big.Int).Add(sold, qty)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "cost:        %s native (%s sub-units)\n", pricing.FormatUnits(cost), cost)
			fmt.Fprintf(out, "curve after: %d%%\n", curve.CalculatePercentage(after))
			fmt.Fprintf(out, "available:   %s tokens\n", curve.AvailableSupply(after))
			return nil
		},
	}
	cmd.Flags().StringVar(&supply, "supply", "0", "Whole tokens already sold on the curve")
	cmd.Flags().StringVar(&quantity, "quantity", "", "Whole tokens to buy")
	cmd.MarkFlagRequired("quantity")
	return cmd
}

func newQuotePercentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "percent <0-100>",
		Short: "Per-token price once the given share of the curve is sold",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pct, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("percentage %q: %w", args[0], err)
			}

			price, err := pricing.Default().CalculatePriceFromPercentage(pct)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "price at %d%%: %s native (%s sub-units)\n", pct, pricing.FormatUnits(price), price)
			return nil
		},
	}
}

func parseWhole(name, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("--%s %q: want a non-negative integer", name, s)
	}
	return v, nil
}
