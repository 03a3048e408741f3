package terminal_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/snonux/ynlb/internal/dispatcher"
	"codeberg.org/snonux/ynlb/internal/history"
	"codeberg.org/snonux/ynlb/internal/protocol"
	"codeberg.org/snonux/ynlb/internal/terminal"
	"codeberg.org/snonux/ynlb/internal/translation"
)

func TestRenderTable(t *testing.T) {
	tests := map[string]struct {
		headers []string
		rows    [][]string
		exp     []string
	}{
		"No headers should render nothing.": {
			headers: nil,
			rows:    [][]string{{"a"}},
		},
		"Rows should be rendered below the headers.": {
			headers: []string{"English", "Yoruba"},
			rows:    [][]string{{"Hello", "Báwo"}},
			exp:     []string{"ENGLISH", "YORUBA", "Hello", "Báwo", "╭"},
		},
		"Short rows should be padded.": {
			headers: []string{"A", "B", "C"},
			rows:    [][]string{{"only"}},
			exp:     []string{"only"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got := terminal.RenderTable(test.headers, test.rows, nil)
			if test.exp == nil {
				assert.Empty(t, got)
				return
			}
			for _, exp := range test.exp {
				assert.Contains(t, got, exp)
			}
		})
	}
}

func TestItemsTable(t *testing.T) {
	got := terminal.ItemsTable([]dispatcher.Item{
		{Source: "Hello", Translation: "Báwo", Status: dispatcher.StatusCompleted},
		{Source: "Broken", Status: dispatcher.StatusFailed, Err: "backend down"},
	})

	assert.Contains(t, got, "Báwo")
	assert.Contains(t, got, "completed")
	assert.Contains(t, got, "error: backend down")
	assert.Contains(t, got, "failed")
}

func TestHistoryTable(t *testing.T) {
	got := terminal.HistoryTable([]history.Entry{{
		ID:             "0123456789abcdef",
		Text:           "Hello\nthere",
		TranslatedText: "Báwo",
		Date:           time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}})

	assert.Contains(t, got, "01234567")
	assert.NotContains(t, got, "0123456789")
	assert.Contains(t, got, "Hello there")
	assert.Contains(t, got, "2024-03-01")
}

func TestEntryDetails(t *testing.T) {
	got := terminal.EntryDetails(history.Entry{ID: "id-1", Text: "Hello", TranslatedText: "Báwo"})

	assert.Contains(t, got, "ID:      id-1")
	assert.Contains(t, got, "Backend: -")
	assert.Contains(t, got, "English:\nHello")
	assert.Contains(t, got, "Yoruba:\nBáwo")
}

func TestEventWriterWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	w := terminal.NewEventWriter(&buf)

	w.Handle(protocol.Load{State: translation.LoadInitiate, File: "model"})
	w.Handle(protocol.Load{State: translation.LoadProgress, File: "model", Progress: 50})
	w.Handle(protocol.Update{Text: "Ẹ"})
	w.Handle(protocol.Completed{Text: "Ẹ káàárọ̀"})

	// Only the final text reaches a pipe.
	assert.Equal(t, "Ẹ káàárọ̀\n", buf.String())
}

func TestBulkPrinterWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	p := terminal.NewBulkPrinter(&buf)

	p.OnRunStart("01HRUN", 2, 1)
	p.OnLoad(protocol.Load{Worker: 0, State: translation.LoadReady})
	p.OnItemDone(0, dispatcher.Item{Source: "Hello", Translation: "Báwo", Status: dispatcher.StatusCompleted}, 50)
	p.OnItemDone(1, dispatcher.Item{Source: "Bad", Status: dispatcher.StatusFailed, Err: "boom"}, 50)
	p.OnRunEnd(dispatcher.Summary{RunID: "01HRUN", Total: 2, Completed: 1, Failed: 1, Workers: 1, Duration: 1500 * time.Millisecond})

	out := buf.String()
	assert.Contains(t, out, "Translating 2 lines with 1 worker(s) (run 01HRUN)")
	assert.Contains(t, out, "Worker 0 ready")
	assert.Contains(t, out, "[1/2] ✓ Hello → Báwo (50%)")
	assert.Contains(t, out, "[2/2] ✗ Bad: boom")
	assert.Contains(t, out, "=== Bulk Translation Summary ===")
	assert.Contains(t, out, "Failed: 1")
	assert.Contains(t, out, "Duration: 1.5s")
}

func TestJSONObserver(t *testing.T) {
	var buf bytes.Buffer
	o := terminal.NewJSONObserver(&buf)

	var obs dispatcher.Observer = terminal.Observers{o, dispatcher.NoopObserver{}}
	obs.OnLoad(protocol.Load{Worker: 1, State: translation.LoadReady, File: "m", Progress: 100})
	obs.OnAssign(1, 0, 1)
	obs.OnAssign(0, 1, 0)
	obs.OnItemDone(1, dispatcher.Item{Source: "b", Status: dispatcher.StatusFailed, Err: "boom"}, 0)
	obs.OnItemDone(0, dispatcher.Item{Source: "a", Translation: "yo:a", Status: dispatcher.StatusCompleted}, 50)
	require.NoError(t, o.Err())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	var got []map[string]any
	for _, line := range lines {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		got = append(got, m)
	}

	assert.Equal(t, "ready", got[0]["type"])
	assert.Equal(t, map[string]any{"type": "failed", "worker": 0.0, "index": 1.0, "error": "boom"}, got[1])
	assert.Equal(t, map[string]any{"type": "completed", "worker": 1.0, "index": 0.0, "data": "yo:a"}, got[2])
}
