// Package cli wires configuration, storage, and the engine into the two
// entry points: the API server and the one-shot reconcile run.
package cli

import "flag"

// ServeFlags holds the CLI flags for the serve command.
type ServeFlags struct {
	Port    int
	Verbose bool
}

// ParseServeFlags parses command line flags for the serve command.
func ParseServeFlags() *ServeFlags {
	flags := &ServeFlags{}
	flag.IntVar(&flags.Port, "port", 0, "Port to listen on (overrides config)")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")
	flag.Parse()
	return flags
}

// RunFlags holds the CLI flags for a one-shot reconciliation run.
type RunFlags struct {
	InvoicePath string
	Type        string
	RangeStart  string
	RangeEnd    string
	CreatedBy   string
	DryRun      bool
	Verbose     bool
}

// ParseRunFlags parses command line flags for the reconcile command.
func ParseRunFlags() *RunFlags {
	flags := &RunFlags{}
	flag.StringVar(&flags.InvoicePath, "invoice", "", "Path to the invoice CSV file (required)")
	flag.StringVar(&flags.Type, "type", "retail", "Reconciliation type: lessons, retail, wholesale")
	flag.StringVar(&flags.RangeStart, "start", "", "Range start date YYYY-MM-DD (required)")
	flag.StringVar(&flags.RangeEnd, "end", "", "Range end date YYYY-MM-DD (required)")
	flag.StringVar(&flags.CreatedBy, "created-by", "", "Operator name recorded on the session")
	flag.BoolVar(&flags.DryRun, "dry-run", false, "Run without persisting the session")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")
	flag.Parse()
	return flags
}
