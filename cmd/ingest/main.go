package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"

	"github.com/xhad/tutor/internal/app"
	"github.com/xhad/tutor/pkg/config"
	"github.com/xhad/tutor/pkg/detect"
	"github.com/xhad/tutor/pkg/logger"
)

func main() {
	var (
		configPath string
		userID     string
		title      string
	)
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&userID, "user", "demo_user", "Owner of the ingested documents")
	flag.StringVar(&title, "title", "", "Document title (single file only, defaults to the filename)")
	flag.Parse()

	_ = godotenv.Load()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: ingest [flags] <file> [file...]")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if title != "" && flag.NArg() > 1 {
		log.Fatal("-title only applies to a single file")
	}

	if err := run(configPath, userID, title, flag.Args()); err != nil {
		log.Fatal(err)
	}
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(configPath, userID, title string, paths []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			log.Printf("config: %s", e.Error())
		}
		return errs[0]
	}

	logg, err := logger.New("production")
	if err != nil {
		return err
	}
	defer logg.Sync()

	svc, cleanup, err := app.BuildService(cfg, logg)
	defer cleanup()
	if err != nil {
		return err
	}

	ctx := context.Background()
	bar := getProgressBar(len(paths), "Ingesting documents...")

	failed := 0
	for _, path := range paths {
		if !detect.IsSupported(path) {
			color.Yellow("\nSkipping %s: unsupported file type\n", path)
			failed++
			bar.Add(1)
			continue
		}

		content, err := os.ReadFile(path)
		if err != nil {
			color.Red("\nFailed to read %s: %v\n", path, err)
			failed++
			bar.Add(1)
			continue
		}

		doc, err := svc.ProcessDocument(ctx, userID, filepath.Base(path), content, title)
		if err != nil {
			color.Red("\nFailed to process %s: %v\n", path, err)
			failed++
			bar.Add(1)
			continue
		}

		bar.Add(1)
		color.Green("\n✓ %s → %s (%s)\n", path, doc.ID, doc.Status)
	}
	bar.Finish()

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}
	color.Cyan("\nAll %d files ingested\n", len(paths))
	return nil
}
