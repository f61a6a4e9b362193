package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mwhitford/filecabinet/internal/models"
)

// newRuleCmd groups rule management subcommands
func newRuleCmd() *cobra.Command {
	ruleCmd := &cobra.Command{
		Use:   "rule",
		Short: "Manage matching rules",
	}

	var (
		ruleType       string
		targetType     string
		priority       int
		excludePattern string
		inactive       bool
	)

	addCmd := &cobra.Command{
		Use:   "add <name> <pattern> <target-id>",
		Short: "Create a matching rule",
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			mgr, _ := loadHome()
			db := openDB(mgr)
			defer db.Close()

			rule := &models.Rule{
				Name:       args[0],
				RuleType:   models.RuleType(ruleType),
				Pattern:    args[1],
				TargetType: models.TargetType(targetType),
				TargetID:   args[2],
				Priority:   priority,
				IsActive:   !inactive,
			}
			if excludePattern != "" {
				rule.ExcludePattern = &excludePattern
			}

			id, err := db.CreateRule(rule)
			if err != nil {
				fatal("Failed to create rule", err)
			}
			fmt.Printf("Created rule %d: %s\n", id, rule.Name)
		},
	}
	addCmd.Flags().StringVar(&ruleType, "type", "extension", "Rule type: extension, keyword, path, regex, compound, or date")
	addCmd.Flags().StringVar(&targetType, "target-type", "folder", "Target type: folder, category, or area")
	addCmd.Flags().IntVar(&priority, "priority", 0, "Rule priority (higher wins ties)")
	addCmd.Flags().StringVar(&excludePattern, "exclude", "", "Comma-separated exclude substrings or /regexes/")
	addCmd.Flags().BoolVar(&inactive, "inactive", false, "Create the rule disabled")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List rules by priority",
		Run: func(cmd *cobra.Command, args []string) {
			mgr, _ := loadHome()
			db := openDB(mgr)
			defer db.Close()

			rules, err := db.ListRules()
			if err != nil {
				fatal("Failed to list rules", err)
			}
			if len(rules) == 0 {
				fmt.Println("No rules defined")
				return
			}

			fmt.Printf("%-5s %-25s %-10s %-20s %-8s %-8s %s\n",
				"ID", "Name", "Type", "Pattern", "Priority", "Active", "Matches")
			for _, rule := range rules {
				active := "yes"
				if !rule.IsActive {
					active = "no"
				}
				fmt.Printf("%-5d %-25s %-10s %-20s %-8d %-8s %d\n",
					rule.ID, truncateString(rule.Name, 25), rule.RuleType,
					truncateString(rule.Pattern, 20), rule.Priority, active, rule.MatchCount)
			}
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			mgr, _ := loadHome()
			db := openDB(mgr)
			defer db.Close()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: invalid rule id %q\n", args[0])
				os.Exit(1)
			}
			if err := db.DeleteRule(id); err != nil {
				fatal("Failed to delete rule", err)
			}
			fmt.Printf("Deleted rule %d\n", id)
		},
	}

	toggleCmd := &cobra.Command{
		Use:   "toggle <id>",
		Short: "Enable or disable a rule",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			mgr, _ := loadHome()
			db := openDB(mgr)
			defer db.Close()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: invalid rule id %q\n", args[0])
				os.Exit(1)
			}
			rule, err := db.GetRule(id)
			if err != nil {
				fatal("Failed to load rule", err)
			}
			if rule == nil {
				fmt.Fprintf(os.Stderr, "Error: rule %d not found\n", id)
				os.Exit(1)
			}

			rule.IsActive = !rule.IsActive
			if err := db.UpdateRule(rule); err != nil {
				fatal("Failed to update rule", err)
			}
			state := "enabled"
			if !rule.IsActive {
				state = "disabled"
			}
			fmt.Printf("Rule %d %s\n", id, state)
		},
	}

	ruleCmd.AddCommand(addCmd, listCmd, deleteCmd, toggleCmd)
	return ruleCmd
}

// newTaxonomyCmd groups area/category/folder management
func newTaxonomyCmd() *cobra.Command {
	taxonomyCmd := &cobra.Command{
		Use:   "taxonomy",
		Short: "Manage the area/category/folder taxonomy",
	}

	addAreaCmd := &cobra.Command{
		Use:   "add-area <range-start> <range-end> <name>",
		Short: "Create an area covering a category range",
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			mgr, _ := loadHome()
			db := openDB(mgr)
			defer db.Close()

			start, err1 := strconv.Atoi(args[0])
			end, err2 := strconv.Atoi(args[1])
			if err1 != nil || err2 != nil || start > end {
				fmt.Fprintln(os.Stderr, "Error: range must be two numbers, start <= end")
				os.Exit(1)
			}

			id, err := db.CreateArea(&models.Area{Name: args[2], RangeStart: start, RangeEnd: end})
			if err != nil {
				fatal("Failed to create area", err)
			}
			fmt.Printf("Created area %d: %d-%d %s\n", id, start, end, args[2])
		},
	}

	addCategoryCmd := &cobra.Command{
		Use:   "add-category <number> <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			mgr, _ := loadHome()
			db := openDB(mgr)
			defer db.Close()

			number, err := strconv.Atoi(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: invalid category number %q\n", args[0])
				os.Exit(1)
			}

			id, err := db.CreateCategory(&models.Category{Number: number, Name: args[1]})
			if err != nil {
				fatal("Failed to create category", err)
			}
			fmt.Printf("Created category %d: %d %s\n", id, number, args[1])
		},
	}

	var folderKeywords string
	addFolderCmd := &cobra.Command{
		Use:   "add-folder <number> <name>",
		Short: "Create a folder (number like 12.03)",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			mgr, _ := loadHome()
			db := openDB(mgr)
			defer db.Close()

			number := args[0]
			var categoryNumber int
			if _, err := fmt.Sscanf(number, "%d.", &categoryNumber); err != nil {
				fmt.Fprintf(os.Stderr, "Error: folder number must look like 12.03, got %q\n", number)
				os.Exit(1)
			}

			folder := &models.Folder{
				Number:         number,
				Name:           args[1],
				CategoryNumber: categoryNumber,
			}
			if folderKeywords != "" {
				folder.Keywords = &folderKeywords
			}

			id, err := db.CreateFolder(folder)
			if err != nil {
				fatal("Failed to create folder", err)
			}
			fmt.Printf("Created folder %d: %s %s\n", id, number, args[1])
		},
	}
	addFolderCmd.Flags().StringVar(&folderKeywords, "keywords", "", "Comma-separated keywords for heuristic matching")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Show the full taxonomy",
		Run: func(cmd *cobra.Command, args []string) {
			mgr, _ := loadHome()
			db := openDB(mgr)
			defer db.Close()

			areas, err := db.GetAreas()
			if err != nil {
				fatal("Failed to list areas", err)
			}
			categories, err := db.GetCategories()
			if err != nil {
				fatal("Failed to list categories", err)
			}
			folders, err := db.GetFolders()
			if err != nil {
				fatal("Failed to list folders", err)
			}

			for _, area := range areas {
				fmt.Printf("%d-%d %s\n", area.RangeStart, area.RangeEnd, area.Name)
				for _, category := range categories {
					if category.Number < area.RangeStart || category.Number > area.RangeEnd {
						continue
					}
					fmt.Printf("  %d %s\n", category.Number, category.Name)
					for _, folder := range folders {
						if folder.CategoryNumber == category.Number {
							fmt.Printf("    %s %s\n", folder.Number, folder.Name)
						}
					}
				}
			}
			if len(areas) == 0 {
				fmt.Println("Taxonomy is empty; add areas, categories and folders first")
			}
		},
	}

	deleteCategoryCmd := &cobra.Command{
		Use:   "delete-category <number>",
		Short: "Delete an empty category",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			mgr, _ := loadHome()
			db := openDB(mgr)
			defer db.Close()

			number, err := strconv.Atoi(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: invalid category number %q\n", args[0])
				os.Exit(1)
			}
			if err := db.DeleteCategory(number); err != nil {
				fatal("Failed to delete category", err)
			}
			fmt.Printf("Deleted category %d\n", number)
		},
	}

	taxonomyCmd.AddCommand(addAreaCmd, addCategoryCmd, addFolderCmd, listCmd, deleteCategoryCmd)
	return taxonomyCmd
}

// newDriveCmd groups storage drive management
func newDriveCmd() *cobra.Command {
	driveCmd := &cobra.Command{
		Use:   "drive",
		Short: "Manage storage drives",
	}

	var makeDefault bool
	addCmd := &cobra.Command{
		Use:   "add <id> <name> <base-path>",
		Short: "Register a storage drive",
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			mgr, _ := loadHome()
			db := openDB(mgr)
			defer db.Close()

			drive := &models.Drive{
				ID:        args[0],
				Name:      args[1],
				BasePath:  args[2],
				IsDefault: makeDefault,
			}
			if err := db.CreateDrive(drive); err != nil {
				fatal("Failed to create drive", err)
			}
			fmt.Printf("Registered drive %s at %s\n", drive.ID, drive.BasePath)
		},
	}
	addCmd.Flags().BoolVar(&makeDefault, "default", false, "Make this the default drive")

	driveCmd.AddCommand(addCmd)
	return driveCmd
}
