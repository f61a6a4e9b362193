package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mwhitford/filecabinet/pkg/database"
	"github.com/mwhitford/filecabinet/pkg/fileops"
	"github.com/mwhitford/filecabinet/pkg/home"
	"github.com/mwhitford/filecabinet/pkg/logger"
	"github.com/mwhitford/filecabinet/pkg/match"
)

var (
	log *logrus.Entry

	// Global options
	homePath string

	// Scan command options
	scanMaxDepth int
	scanPersist  bool

	// Organize command options
	organizeConfidence string
	conflictStrategy   string
	stopOnError        bool
	dryRun             bool
	driveID            string

	// Watch command options
	watchDebounceMs int
	watchAuto       string
)

func init() {
	log = logger.WithName("cli")
}

func main() {
	var rootCmd = &cobra.Command{
		Use:   "filecabinet",
		Short: "Rule-based file organizer",
		Long: `filecabinet - Desktop file organization tool built with Go.

It scans directories, matches files against user-defined rules, and files
them into a numbered Area/Category/Folder taxonomy with full rollback.`,
	}

	rootCmd.PersistentFlags().StringVar(&homePath, "home", "", "Path to the filecabinet home directory (default ~/.filecabinet)")

	// init command
	var initCmd = &cobra.Command{
		Use:   "init",
		Short: "Create the home directory, config file and database",
		Run:   runInit,
	}

	// scan command
	var scanCmd = &cobra.Command{
		Use:   "scan <path>",
		Short: "Scan a directory tree and record discovered files",
		Args:  cobra.ExactArgs(1),
		Run:   runScan,
	}
	scanCmd.Flags().IntVar(&scanMaxDepth, "max-depth", 0, "Maximum recursion depth (default from config)")
	scanCmd.Flags().BoolVar(&scanPersist, "persist", true, "Persist scanned file records")

	// match command
	var matchCmd = &cobra.Command{
		Use:   "match <path>",
		Short: "Scan a directory and show destination suggestions",
		Args:  cobra.ExactArgs(1),
		Run:   runMatch,
	}
	matchCmd.Flags().IntVar(&scanMaxDepth, "max-depth", 0, "Maximum recursion depth (default from config)")

	// organize command
	var organizeCmd = &cobra.Command{
		Use:   "organize <path>",
		Short: "Scan, match, and move files into their folders",
		Args:  cobra.ExactArgs(1),
		Run:   runOrganize,
	}
	organizeCmd.Flags().StringVar(&organizeConfidence, "min-confidence", "high", "Minimum confidence to act on (high, medium, low)")
	organizeCmd.Flags().StringVar(&conflictStrategy, "on-conflict", "skip", "Conflict strategy: skip, rename, or overwrite")
	organizeCmd.Flags().BoolVar(&stopOnError, "stop-on-error", false, "Abort the batch at the first failure")
	organizeCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview moves without touching the filesystem")
	organizeCmd.Flags().StringVar(&driveID, "drive", "", "Move files onto a specific configured drive")
	organizeCmd.Flags().IntVar(&scanMaxDepth, "max-depth", 0, "Maximum recursion depth (default from config)")

	// rollback command
	var rollbackCmd = &cobra.Command{
		Use:   "rollback <record-id>...",
		Short: "Reverse recorded moves by their record ids",
		Args:  cobra.MinimumNArgs(1),
		Run:   runRollback,
	}

	// history command
	var historyCmd = &cobra.Command{
		Use:   "history",
		Short: "List recorded moves, newest first",
		Run:   runHistory,
	}

	// watch command
	var watchCmd = &cobra.Command{
		Use:   "watch <dir>...",
		Short: "Watch directories and organize settled files automatically",
		Args:  cobra.MinimumNArgs(1),
		Run:   runWatch,
	}
	watchCmd.Flags().IntVar(&watchDebounceMs, "debounce", 0, "Per-path settle interval in milliseconds (default from config)")
	watchCmd.Flags().StringVar(&watchAuto, "auto-organize", "", "Minimum confidence for unattended moves (high, medium, low; empty logs only)")

	rootCmd.AddCommand(
		initCmd, scanCmd, matchCmd, organizeCmd, rollbackCmd, historyCmd, watchCmd,
		newRuleCmd(), newTaxonomyCmd(), newDriveCmd(), newRenameCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// loadHome resolves the home manager, config, and logging setup shared by
// every command
func loadHome() (*home.Manager, *home.Config) {
	path := homePath
	if path == "" {
		path = home.DefaultHomePath()
	}

	mgr, err := home.NewManager(path)
	if err != nil {
		fatal("Failed to resolve home directory", err)
	}

	cfg, err := mgr.LoadOrDefault()
	if err != nil {
		fatal("Failed to load config", err)
	}

	var fileOpts *logger.FileOptions
	if cfg.Logging.File != "" {
		fileOpts = &logger.FileOptions{
			Path:       mgr.JoinPath(home.LogsDir, cfg.Logging.File),
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
		}
	}
	if err := logger.Configure(cfg.Logging.Level, fileOpts); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	return mgr, cfg
}

// openDB opens the cabinet database under the home directory
func openDB(mgr *home.Manager) *database.CabinetDB {
	db, err := database.NewCabinetDB(mgr.DatabasePath())
	if err != nil {
		fatal("Failed to open database", err)
	}
	return db
}

// newStack wires the engine and executor over one database handle
func newStack(db *database.CabinetDB, cfg *home.Config) (*match.Engine, *fileops.Executor) {
	engine := match.NewEngine(db, time.Duration(cfg.Matching.CacheTTLSeconds)*time.Second)
	builder := fileops.NewPathBuilder(db, cfg.Storage.FallbackPath)
	executor := fileops.NewExecutor(builder, db)
	return engine, executor
}

func fatal(message string, err error) {
	log.WithError(err).Error(message)
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, err)
	os.Exit(1)
}

func runInit(cmd *cobra.Command, args []string) {
	path := homePath
	if path == "" {
		path = home.DefaultHomePath()
	}

	mgr, err := home.NewManager(path)
	if err != nil {
		fatal("Failed to resolve home directory", err)
	}
	if err := mgr.Initialize(); err != nil {
		fatal("Failed to initialize home directory", err)
	}

	db := openDB(mgr)
	defer db.Close()

	fmt.Printf("Initialized filecabinet home at %s\n", mgr.Path())
}
