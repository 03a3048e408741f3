package cli

import "time"

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile    string
	BatchFile  string
	OutputDir  string
	ListModels bool
	Archive    bool
	JSON       bool

	// Translation flags
	Backend    string
	Model      string
	SourceLang string
	TargetLang string
	MaxLength  int
	Workers    int
	Timeout    time.Duration

	// Report flags
	ReportFormat string
	NoReport     bool
	ShowTable    bool

	// History flags
	SaveHistory  bool
	NoHistory    bool
	HistoryLimit int

	// Logging flags
	Debug     bool
	NoLog     bool
	LogFormat string
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		Backend:      "nllb",
		SourceLang:   "en",
		TargetLang:   "yo",
		MaxLength:    1000,
		Workers:      1,
		Timeout:      2 * time.Minute,
		ReportFormat: "xlsx",
		HistoryLimit: 20,
		LogFormat:    LoggerTypeDefault,
	}
}
