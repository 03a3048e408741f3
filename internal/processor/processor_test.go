package processor_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/snonux/ynlb/internal/batch"
	"codeberg.org/snonux/ynlb/internal/cli"
	"codeberg.org/snonux/ynlb/internal/export"
	"codeberg.org/snonux/ynlb/internal/history"
	"codeberg.org/snonux/ynlb/internal/processor"
	"codeberg.org/snonux/ynlb/internal/testutil"
	"codeberg.org/snonux/ynlb/internal/translation"
)

type testEnv struct {
	flags      *cli.Flags
	factory    *testutil.FakeFactory
	store      *history.Store
	stdin      *bytes.Buffer
	stdout     *bytes.Buffer
	stderr     *bytes.Buffer
	reportsDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	reportsDir := filepath.Join(dir, "reports")
	viper.Set("output.directory", reportsDir)

	store, err := history.NewStore(context.Background(), history.Config{DBPath: filepath.Join(dir, "history.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return &testEnv{
		flags:      cli.NewFlags(),
		factory:    &testutil.FakeFactory{},
		store:      store,
		stdin:      &bytes.Buffer{},
		stdout:     &bytes.Buffer{},
		stderr:     &bytes.Buffer{},
		reportsDir: reportsDir,
	}
}

func (e *testEnv) processor(t *testing.T) *processor.Processor {
	t.Helper()

	p, err := processor.NewProcessor(processor.Config{
		Flags:   e.flags,
		Factory: e.factory.Factory(),
		History: e.store,
		Stdin:   e.stdin,
		Stdout:  e.stdout,
		Stderr:  e.stderr,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func (e *testEnv) historyTexts(t *testing.T) []string {
	t.Helper()

	entries, err := e.store.List(context.Background(), 0)
	require.NoError(t, err)

	texts := []string{}
	for _, entry := range entries {
		texts = append(texts, entry.Text+"="+entry.TranslatedText)
	}
	return texts
}

func (e *testEnv) readReport(t *testing.T, ext string) [][]string {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join(e.reportsDir, "translation_report_input_*."+ext))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	f, err := os.Open(matches[0])
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func fakeTranslations(translations map[string]string, errs map[string]error) func(int) *testutil.FakePipeline {
	return func(int) *testutil.FakePipeline {
		return &testutil.FakePipeline{Translations: translations, Errors: errs}
	}
}

func TestTranslateText(t *testing.T) {
	tests := map[string]struct {
		text      string
		stdin     string
		noHistory bool
		expOut    string
		expHist   []string
	}{
		"Argument text is translated and recorded.": {
			text:    "Hello",
			expOut:  "Báwo\n",
			expHist: []string{"Hello=Báwo"},
		},
		"Surrounding whitespace is trimmed.": {
			text:    "  Hello \n",
			expOut:  "Báwo\n",
			expHist: []string{"Hello=Báwo"},
		},
		"A dash reads the text from stdin.": {
			text:    "-",
			stdin:   "Good morning\n",
			expOut:  "yo:Good morning\n",
			expHist: []string{"Good morning=yo:Good morning"},
		},
		"No history leaves the history untouched.": {
			text:      "Hello",
			noHistory: true,
			expOut:    "Báwo\n",
			expHist:   []string{},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t)
			env.factory.New = fakeTranslations(map[string]string{"Hello": "Báwo"}, nil)
			env.flags.NoHistory = test.noHistory
			env.stdin.WriteString(test.stdin)

			err := env.processor(t).TranslateText(context.Background(), test.text)
			require.NoError(t, err)

			assert.Equal(t, test.expOut, env.stdout.String())
			assert.Equal(t, test.expHist, env.historyTexts(t))
		})
	}
}

func TestTranslateTextEmptyInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		env := newTestEnv(t)

		err := env.processor(t).TranslateText(context.Background(), text)
		assert.ErrorIs(t, err, processor.ErrEmptyInput)
		assert.Empty(t, env.factory.Created(), "no pipeline for empty input")
	}
}

func TestTranslateTextFailure(t *testing.T) {
	env := newTestEnv(t)
	errModel := errors.New("model exploded")
	env.factory.New = fakeTranslations(nil, map[string]error{"Hello": errModel})

	err := env.processor(t).TranslateText(context.Background(), "Hello")
	assert.ErrorIs(t, err, errModel)
	assert.Empty(t, env.historyTexts(t))
}

func TestTranslateTextLoadFailure(t *testing.T) {
	env := newTestEnv(t)
	env.factory.LoadErr = errors.New("no such model")

	err := env.processor(t).TranslateText(context.Background(), "Hello")
	assert.ErrorIs(t, err, env.factory.LoadErr)
}

func TestTranslateTextJSON(t *testing.T) {
	env := newTestEnv(t)
	env.flags.JSON = true
	env.factory.New = fakeTranslations(map[string]string{"Hello": "Báwo"}, nil)

	require.NoError(t, env.processor(t).TranslateText(context.Background(), "Hello"))

	var types []string
	var last map[string]any
	for _, line := range strings.Split(strings.TrimSpace(env.stdout.String()), "\n") {
		last = map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &last))
		types = append(types, last["type"].(string))
	}

	assert.Equal(t, []string{"initiate", "done", "ready", "completed"}, types)
	assert.Equal(t, "Báwo", last["data"])
	assert.Equal(t, float64(0), last["index"])
}

func TestProcessBatch(t *testing.T) {
	env := newTestEnv(t)
	viper.Set("translate.workers", 2)
	viper.Set("output.format", "csv")
	env.flags.BatchFile = testutil.CreateBatchFile(t, t.TempDir(), "Hello", "Good morning", "", "Hello", "Thank you")
	env.factory.New = fakeTranslations(map[string]string{"Hello": "Báwo"}, nil)

	require.NoError(t, env.processor(t).ProcessBatch(context.Background()))

	records := env.readReport(t, "csv")
	assert.Equal(t, [][]string{
		{"English", "Yoruba"},
		{"Hello", "Báwo"},
		{"Good morning", "yo:Good morning"},
		{"Thank you", "yo:Thank you"},
	}, records)

	out := env.stdout.String()
	assert.Contains(t, out, "Translating 3 lines with 2 worker(s)")
	assert.Contains(t, out, "=== Bulk Translation Summary ===")
	assert.Contains(t, out, "Report saved to: "+env.reportsDir)
	assert.Len(t, env.factory.Created(), 2)
	assert.Empty(t, env.historyTexts(t), "bulk runs are not recorded by default")
}

func TestProcessBatchFailedItems(t *testing.T) {
	env := newTestEnv(t)
	viper.Set("output.format", "csv")
	env.flags.BatchFile = testutil.CreateBatchFile(t, t.TempDir(), "Hello", "Broken", "Thank you")
	env.flags.SaveHistory = true
	env.flags.ShowTable = true
	env.factory.New = fakeTranslations(nil, map[string]error{"Broken": errors.New("model exploded")})

	require.NoError(t, env.processor(t).ProcessBatch(context.Background()))

	records := env.readReport(t, "csv")
	assert.Equal(t, [][]string{
		{"English", "Yoruba"},
		{"Hello", "yo:Hello"},
		{"Broken", ""},
		{"Thank you", "yo:Thank you"},
	}, records)

	out := env.stdout.String()
	assert.Contains(t, out, "error: model exploded")
	assert.Contains(t, out, "Failed: 1")
	assert.Contains(t, out, "Saved 2 translation(s) to history")
	assert.ElementsMatch(t, []string{"Hello=yo:Hello", "Thank you=yo:Thank you"}, env.historyTexts(t))
}

func TestProcessBatchStdin(t *testing.T) {
	env := newTestEnv(t)
	env.flags.BatchFile = "-"
	env.flags.NoReport = true
	env.stdin.WriteString("Hello\r\nHello\r\nGood night\r\n")

	require.NoError(t, env.processor(t).ProcessBatch(context.Background()))

	assert.Contains(t, env.stdout.String(), "Translating 2 lines")
	_, err := os.Stat(env.reportsDir)
	assert.True(t, os.IsNotExist(err), "no report directory without a report")
}

func TestProcessBatchJSON(t *testing.T) {
	env := newTestEnv(t)
	env.flags.JSON = true
	env.flags.NoReport = true
	env.flags.BatchFile = testutil.CreateBatchFile(t, t.TempDir(), "Hello", "Thank you")

	require.NoError(t, env.processor(t).ProcessBatch(context.Background()))

	completed := map[float64]string{}
	for _, line := range strings.Split(strings.TrimSpace(env.stdout.String()), "\n") {
		ev := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &ev), "stdout carries only events: %q", line)
		if ev["type"] == "completed" {
			completed[ev["index"].(float64)] = ev["data"].(string)
		}
	}

	assert.Equal(t, map[float64]string{0: "yo:Hello", 1: "yo:Thank you"}, completed)
	assert.Contains(t, env.stderr.String(), "=== Bulk Translation Summary ===")
}

func TestProcessBatchErrors(t *testing.T) {
	tests := map[string]struct {
		setup  func(t *testing.T, env *testEnv)
		expErr error
	}{
		"A non text file is rejected.": {
			setup: func(t *testing.T, env *testEnv) {
				path := filepath.Join(t.TempDir(), "input.csv")
				testutil.CreateTestFile(t, path, []byte("Hello\n"))
				env.flags.BatchFile = path
			},
			expErr: batch.ErrNotPlainText,
		},
		"An unsupported report format is rejected before translating.": {
			setup: func(t *testing.T, env *testEnv) {
				viper.Set("output.format", "pdf")
				env.flags.BatchFile = testutil.CreateBatchFile(t, t.TempDir(), "Hello")
			},
			expErr: export.ErrUnsupportedFormat,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t)
			test.setup(t, env)

			err := env.processor(t).ProcessBatch(context.Background())
			assert.ErrorIs(t, err, test.expErr)
			assert.Empty(t, env.factory.Created())
		})
	}
}

func TestProcessBatchCancel(t *testing.T) {
	env := newTestEnv(t)
	env.flags.BatchFile = testutil.CreateBatchFile(t, t.TempDir(), "Hello")
	gate := make(chan struct{})
	env.factory.New = func(int) *testutil.FakePipeline { return &testutil.FakePipeline{Gate: gate} }

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer cancel()
		assert.Eventually(t, func() bool {
			created := env.factory.Created()
			return len(created) == 1 && len(created[0].Calls()) == 1
		}, 2*time.Second, time.Millisecond)
	}()

	err := env.processor(t).ProcessBatch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(env.reportsDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestHistoryCommands(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.processor(t)

	// Empty history
	require.NoError(t, p.ListHistory(ctx))
	assert.Equal(t, "No translations in history yet.\n", env.stdout.String())

	entry, err := env.store.Add(ctx, history.Entry{Text: "Hello", TranslatedText: "Báwo", Backend: translation.BackendNLLB})
	require.NoError(t, err)
	_, err = env.store.Add(ctx, history.Entry{Text: "Thank you", TranslatedText: "Ẹ ṣé"})
	require.NoError(t, err)

	env.stdout.Reset()
	require.NoError(t, p.ListHistory(ctx))
	assert.Contains(t, env.stdout.String(), entry.ID[:8])
	assert.Contains(t, env.stdout.String(), "Thank you")

	env.stdout.Reset()
	require.NoError(t, p.ShowHistory(ctx, entry.ID[:8]))
	assert.Contains(t, env.stdout.String(), "ID:      "+entry.ID)
	assert.Contains(t, env.stdout.String(), "Backend: nllb")
	assert.Contains(t, env.stdout.String(), "Báwo")

	assert.ErrorIs(t, p.ShowHistory(ctx, "nope"), history.ErrNotFound)

	// Export to a file and import into a fresh store
	exportPath := filepath.Join(t.TempDir(), "history.json")
	env.stdout.Reset()
	require.NoError(t, p.ExportHistory(ctx, exportPath))
	assert.Equal(t, "Exported 2 translation(s) to "+exportPath+"\n", env.stdout.String())
	testutil.AssertFileContains(t, exportPath, `"translatedText": "Báwo"`)

	env.stdout.Reset()
	require.NoError(t, p.DeleteHistory(ctx, entry.ID))
	assert.Equal(t, "Deleted "+entry.ID+"\n", env.stdout.String())
	assert.Equal(t, []string{"Thank you=Ẹ ṣé"}, env.historyTexts(t))

	env.stdout.Reset()
	require.NoError(t, p.ClearHistory(ctx))
	assert.Equal(t, "Cleared 1 translation(s)\n", env.stdout.String())
	assert.Empty(t, env.historyTexts(t))

	env.stdout.Reset()
	require.NoError(t, p.ImportHistory(ctx, exportPath))
	assert.Equal(t, "Imported 2 translation(s)\n", env.stdout.String())
	assert.ElementsMatch(t, []string{"Hello=Báwo", "Thank you=Ẹ ṣé"}, env.historyTexts(t))
}

func TestHistoryExportImportStdio(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.processor(t)

	_, err := env.store.Add(ctx, history.Entry{Text: "Hello", TranslatedText: "Báwo"})
	require.NoError(t, err)

	require.NoError(t, p.ExportHistory(ctx, ""))
	var exported []map[string]any
	require.NoError(t, json.Unmarshal(env.stdout.Bytes(), &exported))
	require.Len(t, exported, 1)
	assert.Equal(t, "Báwo", exported[0]["translatedText"])

	env.stdin.WriteString(`[{"text":"Good night","translatedText":"O dàárọ̀","date":"2024-05-01T12:00:00Z"}]`)
	env.stdout.Reset()
	require.NoError(t, p.ImportHistory(ctx, "-"))
	assert.Equal(t, "Imported 1 translation(s)\n", env.stdout.String())
	assert.Len(t, env.historyTexts(t), 2)
}

func TestArchiveReports(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateTestFile(t, filepath.Join(env.reportsDir, "translation_report_x.csv"), []byte("English,Yoruba\n"))

	require.NoError(t, env.processor(t).ArchiveReports())

	prefix := "Reports directory archived to: "
	out := strings.TrimSpace(env.stdout.String())
	require.True(t, strings.HasPrefix(out, prefix), out)
	archived := strings.TrimPrefix(out, prefix)
	assert.True(t, strings.HasPrefix(archived, filepath.Join(filepath.Dir(env.reportsDir), "archive", "reports-")), archived)
	testutil.AssertFileExists(t, filepath.Join(archived, "translation_report_x.csv"))
	testutil.AssertFileNotExists(t, env.reportsDir)
}

func TestListModelsNLLB(t *testing.T) {
	env := newTestEnv(t)
	viper.Set("translate.backend", translation.BackendNLLB)

	require.NoError(t, env.processor(t).ListModels(context.Background()))
	assert.Contains(t, env.stdout.String(), translation.DefaultNLLBModel+" (selected)")
}
