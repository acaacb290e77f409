package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/jupiter/pkg/cli"
	"mercator-hq/jupiter/pkg/config"
	"mercator-hq/jupiter/pkg/mwl"
)

var mwlQueryFlags struct {
	output    string
	patientID string
	accession string
	modality  string
	aeTitle   string
	status    string
	from      string
	to        string
}

var mwlCmd = &cobra.Command{
	Use:   "mwl",
	Short: "Query and maintain the DICOM Modality Worklist store",
}

var mwlQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query worklist entries",
	Long: `Query worklist entries, optionally filtered by patient, accession,
modality, scheduled station AE title, status, or scheduled-start range.

Examples:
  pacsbridge mwl query --modality CT --status scheduled
  pacsbridge mwl query --accession ACC12345 -o json`,
	RunE: runMWLQuery,
}

var mwlPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Run one retention sweep immediately and report how many entries were removed",
	RunE:  runMWLPrune,
}

func init() {
	rootCmd.AddCommand(mwlCmd)
	mwlCmd.PersistentFlags().StringVarP(&mwlQueryFlags.output, "output", "o", "text", "output format: text or json")

	mwlQueryCmd.Flags().StringVar(&mwlQueryFlags.patientID, "patient", "", "filter by patient ID")
	mwlQueryCmd.Flags().StringVar(&mwlQueryFlags.accession, "accession", "", "filter by accession number")
	mwlQueryCmd.Flags().StringVar(&mwlQueryFlags.modality, "modality", "", "filter by modality code")
	mwlQueryCmd.Flags().StringVar(&mwlQueryFlags.aeTitle, "ae-title", "", "filter by scheduled station AE title")
	mwlQueryCmd.Flags().StringVar(&mwlQueryFlags.status, "status", "", "filter by status (scheduled, in-progress, completed, discontinued, arrived, ready)")
	mwlQueryCmd.Flags().StringVar(&mwlQueryFlags.from, "from", "", "filter by scheduled start, RFC3339, inclusive lower bound")
	mwlQueryCmd.Flags().StringVar(&mwlQueryFlags.to, "to", "", "filter by scheduled start, RFC3339, exclusive upper bound")

	mwlCmd.AddCommand(mwlQueryCmd, mwlPruneCmd)
}

func runMWLQuery(cmd *cobra.Command, args []string) error {
	store, closeStore, err := openMWLStore()
	if err != nil {
		return err
	}
	defer closeStore()

	filter := mwl.Filter{
		PatientID: mwlQueryFlags.patientID,
		Accession: mwlQueryFlags.accession,
		Modality:  mwlQueryFlags.modality,
		AETitle:   mwlQueryFlags.aeTitle,
		Status:    mwl.Status(mwlQueryFlags.status),
	}

	if mwlQueryFlags.from != "" {
		t, err := time.Parse(time.RFC3339, mwlQueryFlags.from)
		if err != nil {
			return cli.NewConfigError("from", fmt.Sprintf("invalid RFC3339 timestamp: %v", err))
		}
		filter.StartFrom = t
	}
	if mwlQueryFlags.to != "" {
		t, err := time.Parse(time.RFC3339, mwlQueryFlags.to)
		if err != nil {
			return cli.NewConfigError("to", fmt.Sprintf("invalid RFC3339 timestamp: %v", err))
		}
		filter.StartTo = t
	}

	entries, err := store.Query(cmd.Context(), filter)
	if err != nil {
		return cli.NewCommandError("mwl query", err)
	}

	return cli.NewFormatter(cli.OutputFormat(mwlQueryFlags.output)).FormatTo(os.Stdout, entries)
}

func runMWLPrune(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadBridgeConfig(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	store, closeStore, err := openMWLStore()
	if err != nil {
		return err
	}
	defer closeStore()

	pruner := mwl.NewPruner(store, mwl.PrunerConfig{
		RetentionAfterScheduledStart: cfg.MWL.RetentionAfterScheduledStart,
	})

	removed, err := pruner.Prune(cmd.Context())
	if err != nil {
		return cli.NewCommandError("mwl prune", err)
	}
	fmt.Printf("✓ Pruned %d stale entries\n", removed)
	return nil
}

func openMWLStore() (mwl.Store, func() error, error) {
	cfg, err := config.LoadBridgeConfig(cfgFile)
	if err != nil {
		return nil, nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	sqliteCfg := mwl.DefaultSQLiteConfig()
	sqliteCfg.Path = cfg.MWL.DriverPath
	store, err := mwl.NewSQLiteStore(sqliteCfg)
	if err != nil {
		return nil, nil, cli.NewCommandError("open mwl store", err)
	}
	return store, store.Close, nil
}
