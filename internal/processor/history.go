package processor

import (
	"context"
	"fmt"
	"io"
	"os"

	"codeberg.org/snonux/ynlb/internal/terminal"
)

// ListHistory prints the most recent translations
func (p *Processor) ListHistory(ctx context.Context) error {
	store, err := p.historyStore(ctx)
	if err != nil {
		return err
	}

	entries, err := store.List(ctx, p.flags.HistoryLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(p.stdout, "No translations in history yet.")
		return nil
	}

	fmt.Fprintln(p.stdout, terminal.HistoryTable(entries))
	return nil
}

// ShowHistory prints one translation selected by id or id prefix
func (p *Processor) ShowHistory(ctx context.Context, id string) error {
	store, err := p.historyStore(ctx)
	if err != nil {
		return err
	}

	entry, err := store.Get(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprint(p.stdout, terminal.EntryDetails(entry))
	return nil
}

// DeleteHistory removes one translation selected by id or id prefix
func (p *Processor) DeleteHistory(ctx context.Context, id string) error {
	store, err := p.historyStore(ctx)
	if err != nil {
		return err
	}

	entry, err := store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := store.Delete(ctx, entry.ID); err != nil {
		return err
	}

	fmt.Fprintf(p.stdout, "Deleted %s\n", entry.ID)
	return nil
}

// ClearHistory removes every translation
func (p *Processor) ClearHistory(ctx context.Context) error {
	store, err := p.historyStore(ctx)
	if err != nil {
		return err
	}

	n, err := store.Clear(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(p.stdout, "Cleared %d translation(s)\n", n)
	return nil
}

// ExportHistory writes the history as JSON to path, or stdout when path
// is empty
func (p *Processor) ExportHistory(ctx context.Context, path string) error {
	store, err := p.historyStore(ctx)
	if err != nil {
		return err
	}

	if path == "" || path == "-" {
		_, err := store.ExportJSON(ctx, p.stdout)
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}

	n, err := store.ExportJSON(ctx, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close export file: %w", cerr)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(p.stdout, "Exported %d translation(s) to %s\n", n, path)
	return nil
}

// ImportHistory adds the entries of a JSON export; "-" reads stdin
func (p *Processor) ImportHistory(ctx context.Context, path string) error {
	store, err := p.historyStore(ctx)
	if err != nil {
		return err
	}

	var r io.Reader = p.stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open import file: %w", err)
		}
		defer f.Close()
		r = f
	}

	n, err := store.ImportJSON(ctx, r)
	if err != nil {
		return err
	}

	fmt.Fprintf(p.stdout, "Imported %d translation(s)\n", n)
	return nil
}
