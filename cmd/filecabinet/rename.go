package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mwhitford/filecabinet/pkg/rename"
)

// newRenameCmd groups batch rename subcommands
func newRenameCmd() *cobra.Command {
	renameCmd := &cobra.Command{
		Use:   "rename",
		Short: "Batch-rename files in a directory, with undo",
	}

	var (
		prefix   string
		suffix   string
		find     string
		replace  string
		numbered bool
		startAt  int
		padWidth int
		preview  bool
	)

	applyCmd := &cobra.Command{
		Use:   "apply <dir>",
		Short: "Rename files per the given pattern flags",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			mgr, _ := loadHome()
			db := openDB(mgr)
			defer db.Close()

			pattern := rename.Pattern{
				Prefix:   prefix,
				Suffix:   suffix,
				Find:     find,
				Replace:  replace,
				Numbered: numbered,
				StartAt:  startAt,
				PadWidth: padWidth,
			}

			r := rename.New(db)

			if preview {
				plans, err := r.Preview(args[0], pattern)
				if err != nil {
					fatal("Preview failed", err)
				}
				for _, plan := range plans {
					fmt.Printf("%s -> %s\n", plan.OriginalName, plan.NewName)
				}
				fmt.Printf("\n%d files would be renamed\n", len(plans))
				return
			}

			batch, entries, err := r.Apply(args[0], pattern)
			if err != nil {
				fatal("Rename failed", err)
			}
			if len(entries) == 0 {
				fmt.Println("Nothing to rename")
				return
			}
			for _, entry := range entries {
				fmt.Printf("%s -> %s\n", entry.OriginalName, entry.NewName)
			}
			fmt.Printf("\nRenamed %d files. Undo with: filecabinet rename undo %s\n", len(entries), batch.ID)
		},
	}
	applyCmd.Flags().StringVar(&prefix, "prefix", "", "Prepend to every filename")
	applyCmd.Flags().StringVar(&suffix, "suffix", "", "Append before the extension")
	applyCmd.Flags().StringVar(&find, "find", "", "Substring to replace")
	applyCmd.Flags().StringVar(&replace, "replace", "", "Replacement for --find")
	applyCmd.Flags().BoolVar(&numbered, "numbered", false, "Append a sequence number")
	applyCmd.Flags().IntVar(&startAt, "start-at", 1, "First sequence number")
	applyCmd.Flags().IntVar(&padWidth, "pad", 1, "Zero-pad sequence numbers to this width")
	applyCmd.Flags().BoolVar(&preview, "preview", false, "Show planned renames without applying them")

	undoCmd := &cobra.Command{
		Use:   "undo <batch-id>",
		Short: "Reverse a recorded rename batch",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			mgr, _ := loadHome()
			db := openDB(mgr)
			defer db.Close()

			items, err := rename.New(db).Undo(args[0])
			if err != nil {
				fatal("Undo failed", err)
			}

			restored := 0
			for _, item := range items {
				if item.Undone {
					restored++
					fmt.Printf("restored %s\n", item.Entry.OriginalName)
				} else {
					fmt.Printf("skipped %s: %s\n", item.Entry.NewName, item.Reason)
				}
			}
			fmt.Printf("\nRestored %d of %d files\n", restored, len(items))
			if restored < len(items) {
				os.Exit(1)
			}
		},
	}

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List undoable rename batches",
		Run: func(cmd *cobra.Command, args []string) {
			mgr, _ := loadHome()
			db := openDB(mgr)
			defer db.Close()

			batches, err := rename.New(db).History()
			if err != nil {
				fatal("Failed to list batches", err)
			}
			if len(batches) == 0 {
				fmt.Println("No rename batches recorded")
				return
			}

			fmt.Printf("%-36s %-20s %s\n", "Batch", "When", "Directory")
			for _, batch := range batches {
				fmt.Printf("%-36s %-20s %s\n", batch.ID,
					time.Unix(batch.CreatedAt, 0).Format("2006-01-02 15:04:05"),
					batch.Directory)
			}
		},
	}

	renameCmd.AddCommand(applyCmd, undoCmd, historyCmd)
	return renameCmd
}
