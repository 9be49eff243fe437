// cmd/housewatch/history.go
package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalnine/housewatch/internal/config"
	"github.com/signalnine/housewatch/internal/journal"
)

var (
	historyLimit    int
	historyPipeline string
	historyFailed   bool
)

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Journal.Path == "" {
		return errors.New("journal.path is not set, nothing is recorded")
	}

	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	var entries []journal.Entry
	if historyFailed {
		entries, err = j.Failed(historyPipeline, historyLimit)
	} else {
		entries, err = j.Recent(historyPipeline, historyLimit)
	}
	if err != nil {
		return fmt.Errorf("query journal: %w", err)
	}

	return printEntries(cmd.OutOrStdout(), entries)
}

func printEntries(w io.Writer, entries []journal.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tPIPELINE\tKIND\tSEVERITY\tDELIVERED\tTITLE")
	for _, e := range entries {
		delivered := "yes"
		if !e.Delivered {
			delivered = "no: " + e.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format(time.DateTime),
			e.Pipeline,
			e.Alert.Kind,
			e.Alert.Severity,
			delivered,
			e.Alert.Title,
		)
	}
	return tw.Flush()
}
