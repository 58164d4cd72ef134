package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-procure/pkg/besoin"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List requisition types and the other fillable forms",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, name := range reg.Names() {
			label := ""
			if t, err := besoin.ParseRequestType(name); err == nil {
				label = t.Label()
			} else if schema, err := reg.Schema(name); err == nil {
				label = schema.Summary
			}
			if _, err := fmt.Fprintf(out, "%-16s %s\n", name, mutedStyle.Render(label)); err != nil {
				return err
			}
		}
		return nil
	},
}
