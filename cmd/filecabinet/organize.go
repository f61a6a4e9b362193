package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mwhitford/filecabinet/internal/models"
	"github.com/mwhitford/filecabinet/pkg/apperr"
	"github.com/mwhitford/filecabinet/pkg/database"
	"github.com/mwhitford/filecabinet/pkg/fileops"
	"github.com/mwhitford/filecabinet/pkg/home"
	"github.com/mwhitford/filecabinet/pkg/scanner"
	"github.com/mwhitford/filecabinet/pkg/watch"
)

func runScan(cmd *cobra.Command, args []string) {
	target := args[0]
	mgr, cfg := loadHome()
	db := openDB(mgr)
	defer db.Close()

	log.WithFields(logrus.Fields{
		"command": "scan",
		"target":  target,
	}).Info("Executing command")

	result := doScan(db, cfg, target, scanPersist)

	fmt.Printf("Scanned %d files in %d directories (%.2f MB)\n",
		result.Stats.ScannedFiles, result.Stats.ScannedDirs,
		float64(result.Stats.TotalSizeBytes)/(1024*1024))
	if result.Stats.Cancelled {
		fmt.Println("Scan was interrupted; results are partial")
	}
	if len(result.Stats.Errors) > 0 {
		fmt.Printf("%d paths could not be read\n", len(result.Stats.Errors))
	}
	if scanPersist {
		fmt.Printf("Session: %s\n", result.SessionID)
	}
}

// doScan runs one interruptible scan with the config's depth and ignore
// settings
func doScan(db *database.CabinetDB, cfg *home.Config, target string, persist bool) *scanner.Result {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	maxDepth := scanMaxDepth
	if maxDepth <= 0 {
		maxDepth = cfg.Scanner.MaxDepth
	}

	s := scanner.New(db)
	result, err := s.Scan(ctx, target, scanner.Options{
		MaxDepth:          maxDepth,
		Persist:           persist,
		ExtraIgnoredDirs:  cfg.Scanner.ExtraIgnoredDirs,
		ExtraIgnoredFiles: cfg.Scanner.ExtraIgnoredFiles,
		OnProgress: func(p scanner.Progress) {
			log.WithFields(logrus.Fields{
				"files": p.ScannedFiles,
				"dirs":  p.ScannedDirs,
				"at":    p.CurrentPath,
			}).Debug("Scan progress")
		},
	})
	if err != nil {
		fatal("Scan failed", err)
	}
	return result
}

func runMatch(cmd *cobra.Command, args []string) {
	target := args[0]
	mgr, cfg := loadHome()
	db := openDB(mgr)
	defer db.Close()

	log.WithFields(logrus.Fields{
		"command": "match",
		"target":  target,
	}).Info("Executing command")

	result := doScan(db, cfg, target, false)
	engine, _ := newStack(db, cfg)

	suggestions, err := engine.BatchMatch(result.Files)
	if err != nil {
		fatal("Matching failed", err)
	}

	matched := 0
	for i, rec := range result.Files {
		if len(suggestions[i]) == 0 {
			continue
		}
		matched++
		top := suggestions[i][0]
		fmt.Printf("%s\n  -> %s %s [%s] %s\n",
			rec.Path, top.TargetFolder.Number, top.TargetFolder.Name,
			top.Confidence, top.Reason)
	}
	fmt.Printf("\n%d of %d files have suggestions\n", matched, len(result.Files))
}

func runOrganize(cmd *cobra.Command, args []string) {
	target := args[0]
	mgr, cfg := loadHome()
	db := openDB(mgr)
	defer db.Close()

	log.WithFields(logrus.Fields{
		"command": "organize",
		"target":  target,
		"dryRun":  dryRun,
	}).Info("Executing command")

	minConfidence := models.Confidence(organizeConfidence)
	if minConfidence.Rank() == 0 {
		fmt.Fprintf(os.Stderr, "Error: invalid confidence %q (use high, medium, or low)\n", organizeConfidence)
		os.Exit(1)
	}

	result := doScan(db, cfg, target, false)
	engine, executor := newStack(db, cfg)

	suggestions, err := engine.BatchMatch(result.Files)
	if err != nil {
		fatal("Matching failed", err)
	}

	var requests []fileops.MoveRequest
	var chosen []*models.Suggestion
	for i, rec := range result.Files {
		if len(suggestions[i]) == 0 {
			continue
		}
		top := suggestions[i][0]
		if top.Confidence.Rank() < minConfidence.Rank() {
			continue
		}
		requests = append(requests, fileops.MoveRequest{
			SourcePath:       rec.Path,
			FolderNumber:     top.TargetFolder.Number,
			ConflictStrategy: fileops.ConflictStrategy(conflictStrategy),
			DriveID:          driveID,
		})
		chosen = append(chosen, top)
	}

	if len(requests) == 0 {
		fmt.Println("Nothing to organize at that confidence level")
		return
	}

	if dryRun {
		for _, p := range executor.PreviewOperations(requests) {
			status := "ok"
			if p.Err != nil {
				status = apperr.UserMessage(p.Err)
			} else if p.DestinationExists {
				status = "conflict"
			}
			fmt.Printf("%s -> %s [%s]\n", p.SourcePath, p.DestinationPath, status)
		}
		fmt.Printf("\nDry run: %d files would be organized\n", len(requests))
		return
	}

	batch := executor.BatchMove(requests, fileops.BatchOptions{
		StopOnError: stopOnError,
		OnProgress: func(done, total int, r *fileops.MoveResult) {
			fmt.Printf("[%d/%d] %s: %s\n", done, total, r.Status, r.SourcePath)
		},
	})

	// Confirmed moves feed back into rule statistics
	for i, op := range batch.Operations {
		if op.Status == fileops.StatusSuccess && chosen[i].SourceRule != nil {
			if err := engine.RecordMatch(chosen[i].SourceRule.ID); err != nil {
				log.WithError(err).Warn("Failed to record rule match")
			}
		}
	}

	fmt.Printf("\nDone: %d moved, %d skipped, %d failed (of %d)\n",
		batch.Success, batch.Skipped, batch.Failed, batch.Total)
}

func runRollback(cmd *cobra.Command, args []string) {
	mgr, cfg := loadHome()
	db := openDB(mgr)
	defer db.Close()

	var ids []int64
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid record id %q\n", arg)
			os.Exit(1)
		}
		ids = append(ids, id)
	}

	log.WithField("records", len(ids)).Info("Rolling back moves")

	_, executor := newStack(db, cfg)
	items := executor.BatchRollback(ids, nil)

	failed := 0
	for _, item := range items {
		if item.Err != nil {
			failed++
			fmt.Printf("record %d: %s\n", item.RecordID, apperr.UserMessage(item.Err))
		} else {
			fmt.Printf("record %d: restored\n", item.RecordID)
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func runHistory(cmd *cobra.Command, args []string) {
	mgr, _ := loadHome()
	db := openDB(mgr)
	defer db.Close()

	records, err := db.ListOrganizedFiles(50)
	if err != nil {
		fatal("Failed to list organized files", err)
	}

	if len(records) == 0 {
		fmt.Println("No organized files recorded")
		return
	}

	fmt.Printf("%-5s %-8s %-30s %-8s %s\n", "ID", "Status", "Filename", "Folder", "When")
	for _, rec := range records {
		fmt.Printf("%-5d %-8s %-30s %-8s %s\n",
			rec.ID, rec.Status, truncateString(rec.Filename, 30),
			rec.TargetFolderNumber,
			time.Unix(rec.Timestamp, 0).Format("2006-01-02 15:04:05"))
	}
}

func runWatch(cmd *cobra.Command, args []string) {
	mgr, cfg := loadHome()
	db := openDB(mgr)
	defer db.Close()

	debounce := time.Duration(watchDebounceMs) * time.Millisecond
	if watchDebounceMs <= 0 {
		debounce = time.Duration(cfg.Watch.DebounceMillis) * time.Millisecond
	}

	auto := watchAuto
	if auto == "" {
		auto = cfg.Watch.AutoOrganizeConfidence
	}

	log.WithFields(logrus.Fields{
		"dirs":     args,
		"debounce": debounce.String(),
		"auto":     auto,
	}).Info("Starting watch")

	watcher, err := watch.NewWatcher(args...)
	if err != nil {
		fatal("Failed to start watcher", err)
	}
	defer watcher.Close()

	engine, executor := newStack(db, cfg)
	pipeline := watch.NewPipeline(watcher.Events(), engine, executor, watch.Options{
		Debounce:               debounce,
		AutoOrganizeConfidence: models.Confidence(auto),
		OnDecision: func(rec *models.FileRecord, suggestions []*models.Suggestion, moved *fileops.MoveResult) {
			switch {
			case moved != nil:
				fmt.Printf("organized %s -> %s\n", rec.Path, moved.DestinationPath)
			case len(suggestions) > 0:
				fmt.Printf("suggest %s -> %s %s [%s]\n", rec.Path,
					suggestions[0].TargetFolder.Number, suggestions[0].TargetFolder.Name,
					suggestions[0].Confidence)
			}
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go watcher.Run(ctx)
	fmt.Printf("Watching %d directories. Ctrl-C to stop.\n", len(args))
	pipeline.Run(ctx)
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
