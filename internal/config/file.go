package config

import "time"

// NetworkSection holds socket settings from the configuration file.
type NetworkSection struct {
	// Bind is the local "host:port" the listener binds to.
	Bind string `yaml:"bind,omitempty"`

	// Target is the default destination for send and chat.
	Target string `yaml:"target,omitempty"`

	// ReceiveBuffer is the per-read buffer size in bytes.
	ReceiveBuffer int `yaml:"receiveBuffer,omitempty"`

	// SocketBuffer sets SO_RCVBUF. Zero keeps the OS default.
	SocketBuffer int `yaml:"socketBuffer,omitempty"`

	// PollInterval is the read deadline used to observe stop requests.
	PollInterval time.Duration `yaml:"pollInterval,omitempty"`

	// TTL is the IPv4 time-to-live for sent datagrams.
	TTL int `yaml:"ttl,omitempty"`
}

// AnalysisSection holds classifier tunables.
type AnalysisSection struct {
	// PrintableThreshold is the minimum printable ratio for text.
	PrintableThreshold float64 `yaml:"printableThreshold,omitempty"`

	// Encodings is the ordered decode table, e.g. [utf-8, ascii, latin-1].
	Encodings []string `yaml:"encodings,omitempty"`
}

// ReportSection holds presentation preferences.
type ReportSection struct {
	// Format is one of "text", "json" or "markdown".
	Format string `yaml:"format,omitempty"`

	// HexLimit is the largest payload whose hex dump is printed in text reports.
	HexLimit *int `yaml:"hexLimit,omitempty"`

	// StatsInterval is how often running statistics are logged while listening.
	StatsInterval time.Duration `yaml:"statsInterval,omitempty"`
}

// SessionSection controls session history.
type SessionSection struct {
	// Save stores aggregate session summaries when the listener stops.
	Save *bool `yaml:"save,omitempty"`

	// DBDir overrides the history database directory.
	DBDir string `yaml:"dbDir,omitempty"`
}

// File represents the structure of the .udpscope configuration file.
// Every field is optional; unset fields keep the value already in Config.
type File struct {
	Network  NetworkSection  `yaml:"network,omitempty"`
	Analysis AnalysisSection `yaml:"analysis,omitempty"`
	Report   ReportSection   `yaml:"report,omitempty"`
	Session  SessionSection  `yaml:"session,omitempty"`
}

// Report format names accepted in the configuration file.
const (
	ReportFormatText     = "text"
	ReportFormatJSON     = "json"
	ReportFormatMarkdown = "markdown"
)

// Apply merges the file settings into cfg.
// Zero values in the file are treated as "not set". Apply returns
// ErrUnknownReportFormat when report.format is not recognized.
func (cf *File) Apply(cfg *Config) error {
	n := cf.Network
	if n.Bind != "" {
		cfg.BindAddress = n.Bind
	}
	if n.Target != "" {
		cfg.TargetAddress = n.Target
	}
	if n.ReceiveBuffer != 0 {
		cfg.ReceiveBufferSize = n.ReceiveBuffer
	}
	if n.SocketBuffer != 0 {
		cfg.SocketBufferSize = n.SocketBuffer
	}
	if n.PollInterval != 0 {
		cfg.PollInterval = n.PollInterval
	}
	if n.TTL != 0 {
		cfg.TTL = n.TTL
	}

	if cf.Analysis.PrintableThreshold != 0 {
		cfg.PrintableThreshold = cf.Analysis.PrintableThreshold
	}
	if len(cf.Analysis.Encodings) > 0 {
		cfg.Encodings = append([]string(nil), cf.Analysis.Encodings...)
	}

	switch cf.Report.Format {
	case "":
	case ReportFormatText:
		cfg.JSONReport, cfg.MarkdownReport = false, false
	case ReportFormatJSON:
		cfg.JSONReport, cfg.MarkdownReport = true, false
	case ReportFormatMarkdown:
		cfg.JSONReport, cfg.MarkdownReport = false, true
	default:
		return ErrUnknownReportFormat
	}
	if cf.Report.HexLimit != nil {
		cfg.HexDisplayLimit = *cf.Report.HexLimit
	}
	if cf.Report.StatsInterval != 0 {
		cfg.StatsInterval = cf.Report.StatsInterval
	}

	if cf.Session.Save != nil {
		cfg.SaveSession = *cf.Session.Save
	}
	if cf.Session.DBDir != "" {
		cfg.DBDir = cf.Session.DBDir
	}
	return nil
}
