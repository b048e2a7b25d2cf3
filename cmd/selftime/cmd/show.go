package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/sarchlab/selftime/datarecording"
	"github.com/sarchlab/selftime/report"
	"github.com/sarchlab/selftime/tracing"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <session.sqlite3>",
	Short: "Report a recorded session.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		withExec, _ := cmd.Flags().GetBool("exec")

		return show(cmd.Context(), cmd.OutOrStdout(), args[0], withExec)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().Bool("exec", false, "also list how the session was run")
}

func show(
	ctx context.Context,
	out io.Writer,
	filename string,
	withExec bool,
) error {
	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	reader, err := datarecording.NewSQLiteReader(filename)
	if err != nil {
		return err
	}
	defer reader.Close()

	sessions, err := tracing.ReadSessions(ctx, reader)
	if err != nil {
		return err
	}

	for _, s := range sessions {
		ops, err := tracing.ReadOperations(ctx, reader, s.ID)
		if err != nil {
			return err
		}

		if format == report.FormatTable || format == report.FormatTree {
			fmt.Fprintf(out, "Session %s, plan %s, %d operations\n",
				s.ID, s.Plan, s.Operations)
		}

		if err := report.Write(out, report.FromOperations(ops), format,
			cfg.Top); err != nil {
			return err
		}
	}

	if withExec {
		return showExec(ctx, out, reader)
	}

	return nil
}

func showExec(
	ctx context.Context,
	out io.Writer,
	reader *datarecording.SQLiteReader,
) error {
	reader.MapTable(datarecording.ExecTableName, datarecording.ExecInfo{})

	rows, err := reader.Query(ctx, datarecording.ExecTableName,
		datarecording.QueryParams{})
	if err != nil {
		return err
	}

	for _, r := range rows {
		info := r.(*datarecording.ExecInfo)
		fmt.Fprintf(out, "%s: %s\n", info.Property, info.Value)
	}

	return nil
}
