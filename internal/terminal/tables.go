package terminal

import (
	"fmt"
	"strconv"

	"codeberg.org/snonux/ynlb/internal/dispatcher"
	"codeberg.org/snonux/ynlb/internal/history"
)

// shortIDLen is how much of a history id the list shows
const shortIDLen = 8

// ItemsTable renders the items of a bulk run
func ItemsTable(items []dispatcher.Item) string {
	rows := make([][]string, 0, len(items))
	for i, item := range items {
		translation := item.Translation
		if item.Status == dispatcher.StatusFailed {
			translation = "error: " + item.Err
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), item.Source, translation, string(item.Status)})
	}
	return RenderTable(
		[]string{"#", "English", "Yoruba", "Status"},
		rows,
		[]ColumnAlignment{AlignRight, AlignLeft, AlignLeft, AlignLeft},
	)
}

// HistoryTable renders history entries, newest first
func HistoryTable(entries []history.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		id := e.ID
		if len(id) > shortIDLen {
			id = id[:shortIDLen]
		}
		rows = append(rows, []string{
			id,
			e.Date.Local().Format("2006-01-02 15:04"),
			truncate(e.Text, maxCellWidth),
			truncate(e.TranslatedText, maxCellWidth),
		})
	}
	return RenderTable([]string{"ID", "Date", "English", "Yoruba"}, rows, nil)
}

// EntryDetails renders one history entry in full
func EntryDetails(e history.Entry) string {
	backend := e.Backend
	if backend == "" {
		backend = "-"
	}
	return fmt.Sprintf("ID:      %s\nDate:    %s\nBackend: %s\n\nEnglish:\n%s\n\nYoruba:\n%s\n",
		e.ID, e.Date.Local().Format("2006-01-02 15:04:05"), backend, e.Text, e.TranslatedText)
}
