// Package ingestion seeds accounts from ';' separated files.
package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/guttosm/escrowd/internal/domain/models"
	"github.com/guttosm/escrowd/internal/logger"
)

const (
	fileSuffix  = ".csv"
	maxParallel = 8
)

// AccountOpener creates an account with starting balances. *ledger.Ledger satisfies it.
type AccountOpener interface {
	OpenAccount(ctx context.Context, id string, balances models.Balances) (*models.Account, error)
}

// Summary reports what an import did.
type Summary struct {
	Files   int
	Created int
	Skipped int
}

// ImportDirectory opens one account per row of every *.csv file in dir.
//
// Behavior:
//   - Files are processed concurrently, at most parallel at a time
//     (0 means min(8, NumCPU)); rows within a file are processed in order.
//   - Accounts that already exist are skipped, so re-running an import is safe.
//   - If any file fails, the rest are cancelled and that error is returned.
func ImportDirectory(ctx context.Context, dir string, opener AccountOpener, parallel int) (Summary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Summary{}, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), fileSuffix) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	if len(files) == 0 {
		return Summary{}, fmt.Errorf("no %s files in %s", fileSuffix, dir)
	}

	workers := parallelism(parallel)
	lg := logger.Component("ingestion")
	lg.Info().Int("files", len(files)).Str("dir", dir).Int("max_parallel", workers).Msg("import start")

	var (
		mu  sync.Mutex
		sum = Summary{Files: len(files)}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, file := range files {
		g.Go(func() error {
			start := time.Now()
			base := filepath.Base(file)
			lg.Info().Int("idx", i+1).Int("total", len(files)).Str("file", base).Msg("file start")

			created, skipped, err := importFile(gctx, file, opener)

			mu.Lock()
			sum.Created += created
			sum.Skipped += skipped
			mu.Unlock()

			if err != nil {
				lg.Error().Str("file", base).Dur("elapsed", time.Since(start)).Err(err).Msg("file failed")
				return fmt.Errorf("file %s: %w", file, err)
			}
			lg.Info().Str("file", base).Int("created", created).Int("skipped", skipped).
				Dur("elapsed", time.Since(start)).Msg("file done")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return sum, err
	}
	return sum, nil
}

func parallelism(n int) int {
	if n > 0 {
		return min(n, maxParallel)
	}
	return min(runtime.NumCPU(), maxParallel)
}
