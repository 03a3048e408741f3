package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"codeberg.org/snonux/ynlb/internal"
	"codeberg.org/snonux/ynlb/internal/archive"
	"codeberg.org/snonux/ynlb/internal/batch"
	"codeberg.org/snonux/ynlb/internal/cli"
	"codeberg.org/snonux/ynlb/internal/dispatcher"
	"codeberg.org/snonux/ynlb/internal/export"
	"codeberg.org/snonux/ynlb/internal/history"
	"codeberg.org/snonux/ynlb/internal/log"
	"codeberg.org/snonux/ynlb/internal/models"
	"codeberg.org/snonux/ynlb/internal/protocol"
	"codeberg.org/snonux/ynlb/internal/terminal"
	"codeberg.org/snonux/ynlb/internal/translation"
	"codeberg.org/snonux/ynlb/internal/worker"
)

// ErrEmptyInput is returned when there is nothing to translate
var ErrEmptyInput = errors.New("empty input")

// Config is the configuration of the processor.
type Config struct {
	Flags *cli.Flags
	// Factory overrides the backend built from the configuration.
	Factory translation.Factory
	// History overrides the store opened at cli.HistoryPath. The caller
	// keeps ownership.
	History *history.Store
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	Logger  log.Logger
}

func (c *Config) defaults() error {
	if c.Flags == nil {
		c.Flags = cli.NewFlags()
	}
	if c.Stdin == nil {
		c.Stdin = os.Stdin
	}
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "processor.Processor"})
	return nil
}

// Processor handles the translation modes and the history commands
type Processor struct {
	flags   *cli.Flags
	factory translation.Factory
	backend string
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	logger  log.Logger

	history     *history.Store
	ownsHistory bool
}

// NewProcessor creates a new processor
func NewProcessor(cfg Config) (*Processor, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Processor{
		flags:   cfg.Flags,
		factory: cfg.Factory,
		backend: cli.TranslationConfig().Backend,
		stdin:   cfg.Stdin,
		stdout:  cfg.Stdout,
		stderr:  cfg.Stderr,
		logger:  cfg.Logger,
		history: cfg.History,
	}, nil
}

// Close releases the history store if the processor opened it
func (p *Processor) Close() error {
	if p.ownsHistory && p.history != nil {
		err := p.history.Close()
		p.history = nil
		return err
	}
	return nil
}

// TranslateText translates one text with a single worker, streaming
// partial output. A text of "-" is read from stdin.
func (p *Processor) TranslateText(ctx context.Context, text string) error {
	if text == "-" {
		data, err := io.ReadAll(p.stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(data)
	}

	text = translation.Normalize(text)
	if text == "" {
		return ErrEmptyInput
	}

	opts, err := cli.TranslationOptions()
	if err != nil {
		return err
	}
	factory, err := p.pipelineFactory()
	if err != nil {
		return err
	}

	events := make(chan protocol.Event, 16)
	h, err := worker.Start(ctx, worker.Config{
		Factory: factory,
		Options: opts,
		Timeout: cli.Timeout(),
		Logger:  p.logger,
	}, events)
	if err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	defer h.Terminate()

	if err := h.Submit(protocol.Request{Text: text, Stream: true}); err != nil {
		return fmt.Errorf("failed to submit translation: %w", err)
	}

	render := p.eventRenderer()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if err := render(ev); err != nil {
				return err
			}

			switch e := ev.(type) {
			case protocol.Completed:
				p.recordSingle(ctx, text, e.Text)
				return nil
			case protocol.Failed:
				return fmt.Errorf("translation failed: %w", e.Err)
			}
		}
	}
}

func (p *Processor) eventRenderer() func(protocol.Event) error {
	if p.flags.JSON {
		enc := protocol.NewEncoder(p.stdout)
		return enc.Encode
	}

	w := terminal.NewEventWriter(p.stdout)
	return func(ev protocol.Event) error {
		w.Handle(ev)
		return nil
	}
}

func (p *Processor) recordSingle(ctx context.Context, text, translated string) {
	if p.flags.NoHistory {
		return
	}

	store, err := p.historyStore(ctx)
	if err != nil {
		p.logger.Warningf("Could not open history: %s", err)
		return
	}
	if _, err := store.Add(ctx, history.Entry{Text: text, TranslatedText: translated, Backend: p.backend}); err != nil {
		p.logger.Warningf("Could not save translation to history: %s", err)
	}
}

// ProcessBatch translates every unique line of the batch file across the
// configured number of workers. A batch file of "-" is read from stdin.
func (p *Processor) ProcessBatch(ctx context.Context) error {
	format := strings.ToLower(cli.ReportFormat())
	if !p.flags.NoReport && !slices.Contains(export.Formats, format) {
		return fmt.Errorf("%s: %w", format, export.ErrUnsupportedFormat)
	}

	lines, err := p.readBatch()
	if err != nil {
		return err
	}

	opts, err := cli.TranslationOptions()
	if err != nil {
		return err
	}
	factory, err := p.pipelineFactory()
	if err != nil {
		return err
	}

	var observer dispatcher.Observer = terminal.NewBulkPrinter(p.stdout)
	var jsonObserver *terminal.JSONObserver
	if p.flags.JSON {
		jsonObserver = terminal.NewJSONObserver(p.stdout)
		observer = terminal.Observers{terminal.NewBulkPrinter(p.stderr), jsonObserver}
	}

	d, err := dispatcher.New(dispatcher.Config{
		Workers:  cli.Workers(),
		Factory:  factory,
		Options:  opts,
		Timeout:  cli.Timeout(),
		Logger:   p.logger,
		Observer: observer,
	})
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	defer func() {
		if err := d.Close(); err != nil {
			p.logger.Warningf("Could not close dispatcher: %s", err)
		}
	}()

	if err := d.Load(lines); err != nil {
		return err
	}

	summary, err := d.Run(ctx)
	if err != nil {
		return fmt.Errorf("bulk translation: %w", err)
	}
	if jsonObserver != nil && jsonObserver.Err() != nil {
		return fmt.Errorf("failed to write events: %w", jsonObserver.Err())
	}

	items := d.Items()
	out := p.infoWriter()

	if p.flags.ShowTable {
		fmt.Fprintln(out, terminal.ItemsTable(items))
	}

	if !p.flags.NoReport && d.Finished() {
		path := filepath.Join(cli.ReportsDir(), p.reportName(summary.RunID, format))
		if err := export.Write(path, reportRows(items)); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Fprintf(out, "Report saved to: %s\n", path)
	}

	if p.flags.SaveHistory {
		p.recordBatch(ctx, items)
	}

	return nil
}

// reportName is translation_report_<input>_<run id>.<format>
func (p *Processor) reportName(runID, format string) string {
	input := "stdin"
	if p.flags.BatchFile != "-" {
		base := filepath.Base(p.flags.BatchFile)
		input = internal.SanitizeFilename(strings.TrimSuffix(base, filepath.Ext(base)))
	}
	return fmt.Sprintf("translation_report_%s_%s.%s", input, runID, format)
}

func (p *Processor) readBatch() ([]string, error) {
	if p.flags.BatchFile == "-" {
		return batch.ReadLines(p.stdin)
	}
	return batch.ReadTextFile(p.flags.BatchFile)
}

// infoWriter is where human messages go; stdout carries NDJSON in json mode
func (p *Processor) infoWriter() io.Writer {
	if p.flags.JSON {
		return p.stderr
	}
	return p.stdout
}

func (p *Processor) recordBatch(ctx context.Context, items []dispatcher.Item) {
	store, err := p.historyStore(ctx)
	if err != nil {
		p.logger.Warningf("Could not open history: %s", err)
		return
	}

	saved := 0
	for _, item := range items {
		if item.Status != dispatcher.StatusCompleted {
			continue
		}
		if _, err := store.Add(ctx, history.Entry{Text: item.Source, TranslatedText: item.Translation, Backend: p.backend}); err != nil {
			p.logger.Warningf("Could not save %q to history: %s", item.Source, err)
			continue
		}
		saved++
	}
	fmt.Fprintf(p.infoWriter(), "Saved %d translation(s) to history\n", saved)
}

// reportRows lists every item; failed ones have an empty translation
func reportRows(items []dispatcher.Item) []export.Row {
	rows := make([]export.Row, 0, len(items))
	for _, item := range items {
		row := export.Row{Source: item.Source}
		if item.Status == dispatcher.StatusCompleted {
			row.Translation = item.Translation
		}
		rows = append(rows, row)
	}
	return rows
}

// ListModels prints the models of the configured backend
func (p *Processor) ListModels(ctx context.Context) error {
	return models.NewLister(cli.TranslationConfig(), p.stdout).ListAvailableModels(ctx)
}

// ArchiveReports moves the reports directory aside
func (p *Processor) ArchiveReports() error {
	path, err := archive.ArchiveReports(cli.ReportsDir())
	if err != nil {
		return fmt.Errorf("failed to archive reports: %w", err)
	}
	fmt.Fprintf(p.stdout, "Reports directory archived to: %s\n", path)
	return nil
}

func (p *Processor) pipelineFactory() (translation.Factory, error) {
	if p.factory != nil {
		return p.factory, nil
	}

	cfg := cli.TranslationConfig()
	cfg.OnBreakerChange = func(name, from, to string) {
		p.logger.Warningf("Circuit breaker %s changed from %s to %s", name, from, to)
	}

	factory, err := translation.NewFactory(cfg)
	if err != nil {
		return nil, err
	}
	p.factory = factory
	return factory, nil
}

func (p *Processor) historyStore(ctx context.Context) (*history.Store, error) {
	if p.history != nil {
		return p.history, nil
	}

	store, err := history.NewStore(ctx, history.Config{DBPath: cli.HistoryPath(), Logger: p.logger})
	if err != nil {
		return nil, err
	}
	p.history = store
	p.ownsHistory = true
	return store, nil
}
