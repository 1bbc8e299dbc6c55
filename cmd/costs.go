package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var costsLimit int

var costsCmd = &cobra.Command{
	Use:   "costs",
	Short: "Show recent cost-log entries and the savings summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}
		entries, err := st.ListCostLogs(ctx, costsLimit)
		if err != nil {
			return eris.Wrap(err, "list cost logs")
		}
		if len(entries) == 0 {
			fmt.Println("no cost-log entries yet")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CREATED\tDOMAIN\tSOURCE\tOK\tSCRAPES\tTOKENS\tCOST\tSAVED")

		var totalCost, totalSaved float64
		for _, e := range entries {
			totalCost += e.CostUSD
			totalSaved += e.SavingsUSD()
			fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%d\t%d\t$%.4f\t$%.2f\n",
				e.CreatedAt.Format("2006-01-02 15:04"),
				e.Domain, e.DataSource, e.Success,
				e.ScrapeCalls, e.AITokensIn+e.AITokensOut,
				e.CostUSD, e.SavingsUSD())
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Printf("\n%d lookups, total cost $%.4f, saved $%.2f vs paid enrichment\n",
			len(entries), totalCost, totalSaved)
		return nil
	},
}

func init() {
	costsCmd.Flags().IntVar(&costsLimit, "limit", 50, "max entries to show")
	rootCmd.AddCommand(costsCmd)
}
