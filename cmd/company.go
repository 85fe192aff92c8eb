package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var companyCmd = &cobra.Command{
	Use:   "company <cvr>",
	Short: "Show a company profile",
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

		res, err := env.provider.GetCompany(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "company")
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		c := res.Company
		fmt.Printf("%s (CVR %s)\n", c.Name, c.CVR)
		if c.Status != "" {
			fmt.Printf("Status:    %s\n", c.Status)
		}
		if c.Industry != nil {
			fmt.Printf("Industry:  %s %s\n", c.Industry.Code, c.Industry.Text)
		}
		for _, a := range c.Addresses {
			fmt.Printf("Address:   %s, %s %s\n", a.Street, a.Zip, a.City)
		}
		for _, o := range c.Officers {
			fmt.Printf("Officer:   %s (%s)\n", o.Name, o.Role)
		}
		return nil
	},
}

func init() {
	companyCmd.Flags().Bool("json", false, "print the raw JSON response")
	rootCmd.AddCommand(companyCmd)
}
