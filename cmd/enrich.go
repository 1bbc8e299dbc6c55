package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/enrich-cli/internal/model"
)

var (
	enrichDomain     string
	enrichName       string
	enrichURL        string
	enrichIndustry   string
	enrichSkipCache  bool
	enrichSkipRender bool
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich a single company and print the profile as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		req := model.EnrichmentRequest{
			Name:   enrichName,
			Domain: enrichDomain,
			URL:    enrichURL,
		}
		if req.Empty() {
			return eris.New("one of --domain, --name, or --url is required")
		}
		if enrichIndustry != "" || enrichSkipCache || enrichSkipRender {
			req.Context = &model.RequestContext{
				IndustryHint: enrichIndustry,
				SkipCache:    enrichSkipCache,
				SkipRender:   enrichSkipRender,
			}
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		resp := env.Pipeline.Enrich(ctx, req)

		out, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal response")
		}
		fmt.Println(string(out))

		if !resp.Success {
			return eris.Errorf("enrichment failed: %s", resp.Error)
		}
		return nil
	},
}

func init() {
	enrichCmd.Flags().StringVar(&enrichDomain, "domain", "", "company domain, e.g. acme.com")
	enrichCmd.Flags().StringVar(&enrichName, "name", "", "company name")
	enrichCmd.Flags().StringVar(&enrichURL, "url", "", "company website URL")
	enrichCmd.Flags().StringVar(&enrichIndustry, "industry", "", "industry hint passed to the extractor")
	enrichCmd.Flags().BoolVar(&enrichSkipCache, "skip-cache", false, "bypass the enrichment cache")
	enrichCmd.Flags().BoolVar(&enrichSkipRender, "skip-render", false, "disable the browser render tier")
	rootCmd.AddCommand(enrichCmd)
}
