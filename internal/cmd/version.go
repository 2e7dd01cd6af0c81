package cmd

import (
	"fmt"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/namelens/orgmatch/internal/config"
	"github.com/namelens/orgmatch/internal/core"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print the version. --extended adds build metadata, the cascade stage order, default thresholds and Gofulmen/Crucible versions.",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		extended, _ := cmd.Flags().GetBool("extended")
		if !extended {
			_, err := fmt.Fprintf(out, "%s %s\n", config.AppName, versionInfo.Version)
			return err
		}

		deps := crucible.GetVersion()
		th := core.DefaultThresholds()
		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.SetTitle(fmt.Sprintf("%s %s", config.AppName, versionInfo.Version))
		t.AppendRows([]table.Row{
			{"Commit", versionInfo.Commit},
			{"Built", versionInfo.BuildDate},
			{"Go", runtime.Version()},
			{"Cascade", fmt.Sprint(core.MatchTypes)},
			{"Thresholds", fmt.Sprintf("similarity=%.2f blocking=%.2f rarity=%.2f", th.Similarity, th.Blocking, th.Rarity)},
			{"Gofulmen", deps.Gofulmen},
			{"Crucible", deps.Crucible},
		})
		_, err := fmt.Fprintln(out, t.Render())
		return err
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolP("extended", "e", false, "show build, cascade and dependency details")
}
