// Package archive is the boundary to the external backup service. The ledger
// never depends on it beyond handing over a Quiescer; the archiver closes the
// store, copies files, and reopens it.
package archive

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"clubpuntos/backend/internal/store"
)

type Archiver interface {
	// Run performs one backup. Failures are the caller's to log; they must
	// never propagate into ledger operations.
	Run(ctx context.Context) error
}

type NoopArchiver struct{}

func (NoopArchiver) Run(_ context.Context) error { return nil }

// QuiesceArchiver closes the store, invokes the copy function while the files
// are quiet, then reopens. Used when BACKUP_ON_CLOSE is enabled.
type QuiesceArchiver struct {
	Store   store.Quiescer
	Copy    func(ctx context.Context) error
	Timeout time.Duration
}

func (a *QuiesceArchiver) Run(ctx context.Context) error {
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := a.Store.Close(); err != nil {
		return fmt.Errorf("quiesce close: %w", err)
	}
	copyErr := error(nil)
	if a.Copy != nil {
		copyErr = a.Copy(ctx)
	}
	// The store must come back even if the copy failed.
	if err := a.Store.Reopen(ctx); err != nil {
		log.Printf("[archive] ERROR: store failed to reopen after backup: %v", err)
		return fmt.Errorf("reopen after backup: %w", err)
	}
	if copyErr != nil {
		return fmt.Errorf("backup copy: %w", copyErr)
	}
	return nil
}

// PGDump returns a copy function that shells out to pg_dump, writing a
// timestamped custom-format dump into dir.
func PGDump(databaseURL string, dir string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("backup dir: %w", err)
		}
		name := fmt.Sprintf("club-%s.dump", time.Now().UTC().Format("20060102-150405"))
		cmd := exec.CommandContext(ctx, "pg_dump", "--format=custom", "--file", filepath.Join(dir, name), databaseURL)
		out, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("pg_dump: %w: %s", err, out)
		}
		return nil
	}
}
