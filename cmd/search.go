package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search companies by name or CVR",
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

		limit, _ := cmd.Flags().GetInt("limit")
		res, err := env.provider.SearchCompanies(ctx, args[0], limit, 0)
		if err != nil {
			return eris.Wrap(err, "search")
		}

		if len(res.Items) == 0 {
			fmt.Fprintln(os.Stderr, "No companies found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CVR\tNAME\tSTATUS\tCITY")
		for _, it := range res.Items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", it.CVR, it.Name, it.Status, it.City)
		}
		w.Flush()
		fmt.Fprintf(os.Stderr, "%d of %d matches\n", len(res.Items), res.Total)
		return nil
	},
}

func init() {
	searchCmd.Flags().Int("limit", 10, "maximum results to print")
	rootCmd.AddCommand(searchCmd)
}
