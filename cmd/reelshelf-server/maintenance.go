package main

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/likes"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/tags"
	"github.com/spf13/cobra"
)

func renderTable(headers []string, rows [][]string, rightAligned ...int) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(row))
		for i, v := range row {
			r[i] = v
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(rightAligned))
	for _, col := range rightAligned {
		configs = append(configs, table.ColumnConfig{Number: col, Align: text.AlignRight, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func newNormalizeTagsCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "normalize-tags",
		Short: "Rewrite stored tag names to their normalized form, merging duplicates",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := ctx.ensureDB()
			if err != nil {
				return err
			}

			changes, err := tags.NormalizeAll(db.WithContext(cmd.Context()), dryRun)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(changes) == 0 {
				fmt.Fprintln(out, "All tags are already normalized.")
				return nil
			}

			rows := make([][]string, len(changes))
			for i, ch := range changes {
				action := "rename"
				switch {
				case ch.Skipped:
					action = "skip"
				case ch.MergeID != 0:
					action = "merge into " + strconv.FormatUint(uint64(ch.MergeID), 10)
				}
				rows[i] = []string{strconv.FormatUint(uint64(ch.TagID), 10), ch.From, ch.To, action}
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "From", "To", "Action"}, rows, 1))

			if dryRun {
				fmt.Fprintf(out, "Dry run: %d tag(s) would change.\n", len(changes))
			} else {
				fmt.Fprintf(out, "%d tag(s) changed.\n", len(changes))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the changes without writing them")
	return cmd
}

func newCheckLikesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check-likes",
		Short: "Report videos whose cached like count disagrees with their likes",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := ctx.ensureDB()
			if err != nil {
				return err
			}

			drift, err := likes.CheckDrift(cmd.Context(), db)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(drift) == 0 {
				fmt.Fprintln(out, "Like counts are consistent.")
				return nil
			}

			rows := make([][]string, len(drift))
			for i, d := range drift {
				rows[i] = []string{
					strconv.FormatUint(uint64(d.VideoID), 10),
					d.Title,
					strconv.FormatUint(uint64(d.Cached), 10),
					strconv.FormatInt(d.Actual, 10),
				}
			}
			fmt.Fprintln(out, renderTable([]string{"Video", "Title", "Cached", "Actual"}, rows, 1, 3, 4))
			return fmt.Errorf("%d video(s) have drifted like counts", len(drift))
		},
	}
}
