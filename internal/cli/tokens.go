package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"meme-ledger/internal/domain"
)

// token mirrors the API's token view. Amounts stay decimal strings.
type token struct {
	Address             string `json:"address"`
	Name                string `json:"name"`
	Symbol              string `json:"symbol"`
	Description         string `json:"description"`
	Image               string `json:"image"`
	Creator             string `json:"creator"`
	Source              string `json:"source"`
	FundsRaised         string `json:"funds_raised"`
	Spotlight           uint8  `json:"spotlight"`
	CreatedAt           int64  `json:"created_at"`
	AvailableSupply     string `json:"available_supply"`
	Price               string `json:"price"`
	BondingCurvePercent uint64 `json:"bonding_curve_percent"`
}

type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func newTokensCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Query the token catalog",
	}
	cmd.AddCommand(newTokensListCmd(opts))
	cmd.AddCommand(newTokensGetCmd(opts))
	return cmd
}

func newTokensListCmd(opts *globalOptions) *cobra.Command {
	var page, size int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("page", strconv.Itoa(page))
			q.Set("size", strconv.Itoa(size))

			var resp struct {
				Tokens []token `json:"tokens"`
			}
			if err := getJSON(cmd.Context(), opts.server, "/api/tokens?"+q.Encode(), &resp); err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ADDRESS\tSYMBOL\tNAME\tCURVE\tPRICE\tSPOTLIGHT")
			for _, t := range resp.Tokens {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d%%\t%s\t%d\n",
					t.Address, t.Symbol, t.Name, t.BondingCurvePercent, t.Price, t.Spotlight)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page number, from 1")
	cmd.Flags().IntVar(&size, "size", 20, "Page size")
	return cmd
}

func newTokensGetCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <address>",
		Short: "Show one token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := domain.ParseAddress(args[0])
			if err != nil {
				return err
			}

			var t token
			if err := getJSON(cmd.Context(), opts.server, "/api/tokens/"+addr.String(), &t); err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(t)
		},
	}
}

// getJSON fetches base+path and decodes a 200 response into v.
func getJSON(ctx context.Context, base, path string, v any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e apiError
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return fmt.Errorf("server returned %d (%s): %s", resp.StatusCode, e.Code, e.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
