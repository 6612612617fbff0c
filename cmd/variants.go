package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bizsim/bizsim/sim"
	"github.com/bizsim/bizsim/sim/scenario"
)

// variantsCmd lists operation variants and built-in presets
var variantsCmd = &cobra.Command{
	Use:   "variants",
	Short: "List operation variants and built-in scenario presets",
	Run: func(cmd *cobra.Command, args []string) {
		if err := listVariants(cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

func listVariants(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "Operation variants:"); err != nil {
		return err
	}
	for _, name := range sim.VariantNames() {
		v, err := sim.LookupVariant(name)
		if err != nil {
			return err
		}
		cost, revenue := v.TermNames()
		line := fmt.Sprintf("  %-20s cost+[%s] revenue+[%s]", name, strings.Join(cost, ", "), strings.Join(revenue, ", "))
		if v.NoRevenue {
			line += " (no revenue)"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Presets: %s\n", strings.Join(scenario.PresetNames(), ", "))
	return err
}

func init() {
	rootCmd.AddCommand(variantsCmd)
}
