package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"mercator-hq/jupiter/pkg/cli"
	"mercator-hq/jupiter/pkg/config"
	"mercator-hq/jupiter/pkg/queue"
)

var queueFlags struct {
	output string
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and manage the durable outbound queue",
}

var queueDepthCmd = &cobra.Command{
	Use:   "depth",
	Short: "Print the number of pending and in-flight entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openQueueStore()
		if err != nil {
			return err
		}
		defer closeStore()

		depth, err := store.Depth(cmd.Context())
		if err != nil {
			return cli.NewCommandError("queue depth", err)
		}
		return cli.NewFormatter(cli.OutputFormat(queueFlags.output)).FormatTo(os.Stdout, map[string]int{"depth": depth})
	},
}

var queueListDeadCmd = &cobra.Command{
	Use:   "list-dead",
	Short: "List entries in the dead-letter table",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openQueueStore()
		if err != nil {
			return err
		}
		defer closeStore()

		dead, err := store.ListDead(cmd.Context())
		if err != nil {
			return cli.NewCommandError("queue list-dead", err)
		}
		return cli.NewFormatter(cli.OutputFormat(queueFlags.output)).FormatTo(os.Stdout, dead)
	},
}

var queueRequeueCmd = &cobra.Command{
	Use:   "requeue-dlq <id>",
	Short: "Move a dead-letter entry back to pending with attempts reset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return cli.NewConfigError("id", fmt.Sprintf("not a valid entry ID: %v", err))
		}

		store, closeStore, err := openQueueStore()
		if err != nil {
			return err
		}
		defer closeStore()

		if err := store.RequeueFromDLQ(cmd.Context(), id); err != nil {
			return cli.NewCommandError("queue requeue-dlq", err)
		}
		fmt.Printf("✓ Entry %d requeued\n", id)
		return nil
	},
}

var queueDropCmd = &cobra.Command{
	Use:   "drop <id>",
	Short: "Permanently delete a dead-letter entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return cli.NewConfigError("id", fmt.Sprintf("not a valid entry ID: %v", err))
		}

		store, closeStore, err := openQueueStore()
		if err != nil {
			return err
		}
		defer closeStore()

		if err := store.Drop(cmd.Context(), id); err != nil {
			return cli.NewCommandError("queue drop", err)
		}
		fmt.Printf("✓ Entry %d dropped\n", id)
		return nil
	},
}

var queueGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a single queue entry by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return cli.NewConfigError("id", fmt.Sprintf("not a valid entry ID: %v", err))
		}

		store, closeStore, err := openQueueStore()
		if err != nil {
			return err
		}
		defer closeStore()

		entry, err := store.Get(cmd.Context(), id)
		if err != nil {
			return cli.NewCommandError("queue get", err)
		}
		if entry == nil {
			return cli.NewCommandError("queue get", fmt.Errorf("no entry with ID %d", id))
		}
		return cli.NewFormatter(cli.OutputFormat(queueFlags.output)).FormatTo(os.Stdout, entry)
	},
}

func init() {
	rootCmd.AddCommand(queueCmd)
	queueCmd.PersistentFlags().StringVarP(&queueFlags.output, "output", "o", "text", "output format: text or json")
	queueCmd.AddCommand(queueDepthCmd, queueListDeadCmd, queueRequeueCmd, queueDropCmd, queueGetCmd)
}

// openQueueStore opens the queue's SQLite database per the active config
// file, returning a close func instead of deferring internally so RunE
// can defer it at the call site.
func openQueueStore() (queue.Store, func() error, error) {
	cfg, err := config.LoadBridgeConfig(cfgFile)
	if err != nil {
		return nil, nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	sqliteCfg := queue.DefaultSQLiteConfig()
	sqliteCfg.Path = cfg.Queue.DriverPath
	store, err := queue.NewSQLiteStore(sqliteCfg)
	if err != nil {
		return nil, nil, cli.NewCommandError("open queue store", err)
	}
	return store, store.Close, nil
}
