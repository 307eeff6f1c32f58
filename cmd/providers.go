package cmd

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jonathanhorst/obsidian-media-summarizer/internal/config"
	"github.com/jonathanhorst/obsidian-media-summarizer/internal/manager"
	"github.com/jonathanhorst/obsidian-media-summarizer/internal/provider"
)

var modelsCmd = &cobra.Command{
	Use:   "models [provider]",
	Short: "List the models a provider offers (defaults to the active provider)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ := app.manager.Active()
		if len(args) == 1 {
			t, ok := provider.ParseType(args[0])
			if !ok {
				return fmt.Errorf("unknown provider %q", args[0])
			}
			typ = t
		}
		models, err := app.manager.ListModels(cmd.Context(), typ)
		if err != nil {
			return errors.New(strings.TrimPrefix(manager.UserMessage(err), manager.ErrorPrefix))
		}
		if len(models) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No models found for %s\n", typ)
			return nil
		}
		for _, m := range models {
			fmt.Fprintln(cmd.OutOrStdout(), m)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which providers are configured and reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PROVIDER\tACTIVE\tCONFIGURED\tCONNECTED\tDETAIL")
		for _, st := range app.manager.ProviderStatus(cmd.Context()) {
			active := ""
			if st.Active {
				active = "*"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", st.Type, active, yesNo(st.Configured), yesNo(st.Connected), st.Error)
		}
		return tw.Flush()
	},
}

var forceFlag bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:         "init [path]",
	Short:       "Write a starter config file",
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{"skipManager": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.FileName + ".yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.WriteStarter(path, forceFlag); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&forceFlag, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(modelsCmd, statusCmd, configCmd)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
