package app

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/authgrid/authgrid/internal/config"
	"github.com/authgrid/authgrid/internal/daemon"
)

func init() { //nolint: gochecknoinits
	routesCmd.Flags().StringVar(&configPath, "config", "", "Path to the configuration directory")
	routesCmd.Flags().BoolVar(&reclassify, "reclassify", false, "Re-run controller classification per action")

	rootCmd.AddCommand(routesCmd)
}

var (
	reclassify bool

	routesCmd = &cobra.Command{
		Use:   "routes",
		Short: "Refresh the action security catalog and print it",
		PreRun: func(_ *cobra.Command, _ []string) {
			if cfg, err = config.ReadConfig(configPath); err != nil {
				panic(err)
			}
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			d := daemon.New(&cfg)

			rows, err := d.RefreshCatalog(reclassify)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CONTROLLER\tACTION\tREQUIREMENT\tVISIBLE\tPATHS")

			for _, row := range rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\n",
					row.ControllerName,
					row.ActionName,
					row.RequirementLabel(),
					row.Visible,
					row.FirstPath(),
				)
			}

			return w.Flush()
		},
	}
)
