package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// legacyEntry is the entry format of the legacy web app. Older builds
// stored english/yoruba/timestamp instead of text/translatedText/date.
type legacyEntry struct {
	Text           string     `json:"text"`
	TranslatedText string     `json:"translatedText"`
	Date           *time.Time `json:"date,omitempty"`

	ID        string     `json:"id,omitempty"`
	English   string     `json:"english,omitempty"`
	Yoruba    string     `json:"yoruba,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

func (l legacyEntry) entry() Entry {
	e := Entry{Text: l.Text, TranslatedText: l.TranslatedText}
	if e.Text == "" {
		e.Text = l.English
	}
	if e.TranslatedText == "" {
		e.TranslatedText = l.Yoruba
	}
	switch {
	case l.Date != nil:
		e.Date = *l.Date
	case l.Timestamp != nil:
		e.Date = *l.Timestamp
	}
	return e
}

// ExportJSON writes every entry, oldest first, as a JSON array of
// {text, translatedText, date}.
func (s *Store) ExportJSON(ctx context.Context, w io.Writer) (int, error) {
	entries, err := s.List(ctx, 0)
	if err != nil {
		return 0, err
	}

	out := make([]legacyEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		date := entries[i].Date
		out = append(out, legacyEntry{
			Text:           entries[i].Text,
			TranslatedText: entries[i].TranslatedText,
			Date:           &date,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return 0, fmt.Errorf("could not encode history: %w", err)
	}
	return len(out), nil
}

// ImportJSON adds the entries of a JSON export with fresh ids. Entries
// without text are skipped. Existing entries are kept.
func (s *Store) ImportJSON(ctx context.Context, r io.Reader) (int, error) {
	var in []legacyEntry
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return 0, fmt.Errorf("could not decode history: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("could not start import: %w", err)
	}
	defer tx.Rollback()

	imported := 0
	for _, l := range in {
		e := l.entry()
		if strings.TrimSpace(e.Text) == "" {
			continue
		}
		if _, err := s.add(ctx, tx, e); err != nil {
			return 0, err
		}
		imported++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("could not commit import: %w", err)
	}

	s.logger.Infof("Imported %d history entries", imported)
	return imported, nil
}
