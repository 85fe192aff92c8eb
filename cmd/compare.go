package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/cvrgpt/internal/compare"
)

var compareCmd = &cobra.Command{
	Use:   "compare <cvr>",
	Short: "Compare the latest two fiscal periods",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("cli"); err != nil {
			return err
		}
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		acc, err := env.provider.LatestAccounts(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "compare")
		}

		res := compare.Compare(acc.Current, acc.Previous)

		asCSV, _ := cmd.Flags().GetBool("csv")
		if asCSV {
			_, err := os.Stdout.Write(compare.ExportCSV(res))
			return err
		}

		fmt.Println(res.Narrative)
		if len(res.KeyChanges) > 0 {
			fmt.Println()
			for _, d := range res.KeyChanges {
				pct := "n/a"
				if d.PercentageChange != nil {
					pct = d.PercentageChange.StringFixed(1) + "%"
				}
				fmt.Printf("%-12s %14s -> %14s  (%s)\n",
					compare.FieldTitle(d.Field),
					compare.FormatDKK(d.PreviousValue),
					compare.FormatDKK(d.CurrentValue),
					pct)
			}
		}
		return nil
	},
}

func init() {
	compareCmd.Flags().Bool("csv", false, "print CSV instead of the narrative view")
	rootCmd.AddCommand(compareCmd)
}
