package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskweave/loadbench/internal/client"
	"github.com/taskweave/loadbench/internal/scenario"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the built-in staging profiles",
	Run: func(cmd *cobra.Command, _ []string) {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDURATION\tPEAK VUS\tTHINK\tDESCRIPTION")
		for _, name := range scenario.ProfileNames() {
			p, _ := scenario.LookupProfile(name)
			think := "yes"
			if p.NoThink {
				think = "no"
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				name,
				p.Schedule.TotalDuration().Round(time.Second),
				p.Schedule.MaxTarget(),
				think,
				p.Description)
		}
		_ = w.Flush()
	},
}

var journeysCmd = &cobra.Command{
	Use:   "journeys",
	Short: "List the journey catalog and its weights",
	Run: func(cmd *cobra.Command, _ []string) {
		// The catalog needs a caller to construct; listing never dials it.
		caller, _ := client.NewHTTPCaller("http://localhost", nil)
		journeys := scenario.NewCatalog(caller).Journeys()

		var total float64
		for _, j := range journeys {
			total += j.Weight
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tWEIGHT\tSHARE\tSTEPS")
		for _, j := range journeys {
			labels := make([]string, len(j.Steps))
			for i, st := range j.Steps {
				labels[i] = st.Label
			}
			fmt.Fprintf(w, "%s\t%.0f\t%.0f%%\t%s\n",
				j.Name, j.Weight, j.Weight/total*100, strings.Join(labels, " > "))
		}
		_ = w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(journeysCmd)
}
