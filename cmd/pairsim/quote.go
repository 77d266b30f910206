package main

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"liquidityPair/internal/amount"
	"liquidityPair/internal/pair"
)

func runQuote(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	amountIn, _ := flags.GetString("amount-in")
	amountOut, _ := flags.GetString("amount-out")
	if (amountIn == "") == (amountOut == "") {
		return fmt.Errorf("exactly one of amount-in and amount-out is required")
	}

	values := make(map[string]*uint256.Int, 2)
	for _, name := range []string{"reserve-in", "reserve-out"} {
		raw, _ := flags.GetString(name)
		v, err := amount.Parse(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		values[name] = v
	}

	if amountIn != "" {
		in, err := amount.Parse(amountIn)
		if err != nil {
			return fmt.Errorf("amount-in: %w", err)
		}
		out, err := pair.GetAmountOut(in, values["reserve-in"], values["reserve-out"])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), amount.String(out))
		return nil
	}

	out, err := amount.Parse(amountOut)
	if err != nil {
		return fmt.Errorf("amount-out: %w", err)
	}
	in, err := pair.GetAmountIn(out, values["reserve-in"], values["reserve-out"])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), amount.String(in))
	return nil
}
