package history_test

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/snonux/ynlb/internal/history"
	"codeberg.org/snonux/ynlb/internal/log"
)

func newStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.NewStore(context.Background(), history.Config{
		DBPath: filepath.Join(t.TempDir(), "state", "history.db"),
		Logger: log.Noop,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreCRUD(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	first, err := store.Add(ctx, history.Entry{Text: "Hello", TranslatedText: "Báwo", Backend: "fake"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.Date.IsZero())

	second, err := store.Add(ctx, history.Entry{Text: "Thank you", TranslatedText: "O ṣé", Date: first.Date.Add(time.Second)})
	require.NoError(t, err)

	got, err := store.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.Text)
	assert.Equal(t, "Báwo", got.TranslatedText)
	assert.Equal(t, "fake", got.Backend)
	assert.Equal(t, first.Date.Truncate(time.Millisecond), got.Date)

	// Newest first.
	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)

	limited, err := store.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, second.ID, limited[0].ID)

	require.NoError(t, store.Delete(ctx, first.ID))
	_, err = store.Get(ctx, first.ID)
	assert.ErrorIs(t, err, history.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, first.ID), history.ErrNotFound)

	n, err := store.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all, err = store.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStoreGetByPrefix(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	_, err := store.Add(ctx, history.Entry{ID: "abc-1", Text: "one"})
	require.NoError(t, err)
	_, err = store.Add(ctx, history.Entry{ID: "abc-2", Text: "two"})
	require.NoError(t, err)
	_, err = store.Add(ctx, history.Entry{ID: "abd_3", Text: "three"})
	require.NoError(t, err)

	tests := map[string]struct {
		id      string
		expText string
		expErr  bool
		expNF   bool
	}{
		"A full id should match.":                 {id: "abc-2", expText: "two"},
		"A unique prefix should match.":           {id: "abd", expText: "three"},
		"An ambiguous prefix should fail.":        {id: "abc", expErr: true},
		"An unknown id should not be found.":      {id: "zzz", expErr: true, expNF: true},
		"An empty id should not be found.":        {id: "", expErr: true, expNF: true},
		"LIKE wildcards should be taken literal.": {id: "ab%", expErr: true, expNF: true},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := store.Get(ctx, test.id)
			if test.expErr {
				require.Error(t, err)
				if test.expNF {
					assert.ErrorIs(t, err, history.ErrNotFound)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expText, got.Text)
		})
	}
}

func TestStoreRejectsEmptyText(t *testing.T) {
	store := newStore(t)
	_, err := store.Add(context.Background(), history.Entry{Text: "   "})
	assert.Error(t, err)
}

func TestStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := history.NewStore(ctx, history.Config{DBPath: path})
	require.NoError(t, err)
	_, err = store.Add(ctx, history.Entry{Text: "Hello", TranslatedText: "Báwo"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Migrations run again without changes.
	store, err = history.NewStore(ctx, history.Config{DBPath: path})
	require.NoError(t, err)
	defer store.Close()

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestNewStoreRequiresPath(t *testing.T) {
	_, err := history.NewStore(context.Background(), history.Config{})
	assert.Error(t, err)
}

func TestJSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newStore(t)

	date := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	_, err := src.Add(ctx, history.Entry{Text: "Hello", TranslatedText: "Báwo", Date: date})
	require.NoError(t, err)
	_, err = src.Add(ctx, history.Entry{Text: "Goodbye", TranslatedText: "O dàbọ̀", Date: date.Add(time.Hour)})
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := src.ExportJSON(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Only the legacy fields are written, oldest first.
	var raw []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	require.Len(t, raw, 2)
	assert.Equal(t, map[string]any{
		"text":           "Hello",
		"translatedText": "Báwo",
		"date":           "2024-03-01T10:30:00Z",
	}, raw[0])

	dst := newStore(t)
	_, err = dst.Add(ctx, history.Entry{Text: "kept", Date: date.Add(-time.Hour)})
	require.NoError(t, err)

	n, err = dst.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := dst.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Goodbye", all[0].Text)
	assert.Equal(t, "O dàbọ̀", all[0].TranslatedText)
	assert.Equal(t, date.Add(time.Hour), all[0].Date)
	assert.Equal(t, "Hello", all[1].Text)
	assert.Equal(t, "kept", all[2].Text)
}

func TestImportJSON(t *testing.T) {
	tests := map[string]struct {
		input    string
		expN     int
		expTexts []string
		expErr   bool
	}{
		"Browser exports with ISO dates should be imported.": {
			input:    `[{"text":"Hello","translatedText":"Báwo","date":"2024-03-01T10:30:00.123Z"}]`,
			expN:     1,
			expTexts: []string{"Hello"},
		},
		"Entries in the english/yoruba format should be imported.": {
			input:    `[{"id":"x","english":"Hello","yoruba":"Báwo","timestamp":"2024-03-01T10:30:00.000Z"}]`,
			expN:     1,
			expTexts: []string{"Hello"},
		},
		"Entries without text should be skipped.": {
			input:    `[{"text":"","translatedText":"x"},{"text":"Hi","translatedText":"Ẹ n lẹ"}]`,
			expN:     1,
			expTexts: []string{"Hi"},
		},
		"An empty array should import nothing.": {
			input: `[]`,
		},
		"Invalid JSON should fail.": {
			input:  `{"text":`,
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)

			n, err := store.ImportJSON(ctx, strings.NewReader(test.input))
			if test.expErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expN, n)

			all, err := store.List(ctx, 0)
			require.NoError(t, err)
			var texts []string
			for _, e := range all {
				texts = append(texts, e.Text)
				assert.NotEqual(t, "x", e.ID)
			}
			assert.Equal(t, test.expTexts, texts)
		})
	}
}
