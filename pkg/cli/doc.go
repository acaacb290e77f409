/*
Package cli provides command-line utilities shared by the pacsbridge
binary's subcommands: output formatting for admin queries (queue
inspection, MWL lookups), a progress reporter for bulk operations like
DLQ requeue sweeps, and signal handling for graceful server shutdown.

Output Formatting:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, entries); err != nil {
		return err
	}

Progress Reporting:

	progress := cli.NewProgressReporter(os.Stdout)
	progress.Start(int64(len(ids)))
	for i, id := range ids {
		// requeue id
		progress.Update(int64(i + 1))
	}
	progress.Finish()

Signal Handling:

	ctx := cli.SetupSignalHandler()
	// ctx is canceled on SIGINT/SIGTERM
*/
package cli
