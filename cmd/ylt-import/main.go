package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/Saturate/YellowLabTools/internal/loader"
	"github.com/Saturate/YellowLabTools/internal/storage"
)

// ylt-import archives YellowLab result documents so the timeline service
// can serve them without the results API.
//
//	ylt-import -data ./data results/*.json
func main() {
	dataDir := flag.String("data", "./data", "Directory holding the result archive")
	workers := flag.Int("workers", 4, "Files imported concurrently")
	keepGoing := flag.Bool("keep-going", false, "Skip invalid files instead of stopping")
	flag.Parse()

	if *workers < 1 {
		log.Fatalf("-workers must be at least 1, got %d", *workers)
	}

	files := flag.Args()
	if len(files) == 0 {
		log.Fatalf("usage: ylt-import [-data dir] [-workers n] file.json...")
	}

	archive, err := storage.OpenArchive(filepath.Join(*dataDir, "archive"))
	if err != nil {
		log.Fatalf("Failed to open archive: %v", err)
	}

	imported, err := importFiles(context.Background(), archive, files, *workers, *keepGoing)
	log.Printf("Imported %d of %d results", imported, len(files))
	if cerr := archive.Close(); cerr != nil {
		log.Printf("Failed to close archive: %v", cerr)
	}
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}
}

func importFiles(ctx context.Context, archive loader.ResultArchive, files []string, workers int, keepGoing bool) (int64, error) {
	var imported atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	// A limit of 0 would block the first Go call forever.
	g.SetLimit(max(workers, 1))

	for _, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			runID, err := importFile(archive, path)
			if err != nil {
				if keepGoing {
					log.Printf("[Import] Skipping %s: %v", path, err)
					return nil
				}
				return err
			}
			log.Printf("[Import] %s -> %s", path, runID)
			imported.Add(1)
			return nil
		})
	}

	err := g.Wait()
	return imported.Load(), err
}

// importFile validates one result document and archives it. The run id
// comes from the document's runId, or the file name without extension.
func importFile(archive loader.ResultArchive, path string) (string, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	res, err := loader.DecodeResult("", body)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	runID := res.RunID
	if runID == "" {
		runID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	if err := archive.Put(runID, body); err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return runID, nil
}
