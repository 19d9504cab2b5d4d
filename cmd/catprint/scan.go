package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/srg/catprint/internal/device"
	"github.com/srg/catprint/internal/groutine"
	"github.com/srg/catprint/internal/printer"
	"github.com/srg/catprint/scanner"
)

var validFormats = []string{"table", "json"}

type scanFlags struct {
	duration time.Duration
	format   string
	all      bool
	watch    bool
	allow    []string
	block    []string
}

func newScanCmd() *cobra.Command {
	f := &scanFlags{}
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan for cat printers",
		Long: `Scan for nearby BLE thermal printers and report their address, name,
signal strength and printer variant.

By default the scan stops at the first printer found; use --all to keep
listening for the whole duration. --watch prints each advertisement as it
arrives ("+" for a new printer, "~" for an update) before the final table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(cmd, f)
		},
	}

	cmd.Flags().DurationVarP(&f.duration, "duration", "d", 0, "Scan duration (default from config, 10s)")
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Output format (table, json); default from config")
	cmd.Flags().BoolVarP(&f.all, "all", "a", false, "Report every printer seen during the scan window")
	cmd.Flags().BoolVarP(&f.watch, "watch", "w", false, "Print printers live as they advertise (table format only)")
	cmd.Flags().StringSliceVar(&f.allow, "allow", nil, "Only report printers with these addresses")
	cmd.Flags().StringSliceVar(&f.block, "block", nil, "Ignore printers with these addresses")
	return cmd
}

func runScan(cmd *cobra.Command, f *scanFlags) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	format := cfg.OutputFormat
	if f.format != "" {
		format = f.format
	}
	if !isValidFormat(format) {
		return fmt.Errorf("invalid format '%s': must be one of %v", format, validFormats)
	}
	if f.watch && format != "table" {
		return fmt.Errorf("--watch requires table format")
	}

	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	opts := cfg.ScanOptions()
	if f.duration > 0 {
		opts.Duration = f.duration
	}
	opts.FirstMatch = !f.all
	opts.AllowList = f.allow
	opts.BlockList = f.block

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	s := scanner.NewScanner(newTransport(logger), opts, logger)

	var stopFeedback func()
	if f.watch {
		stopFeedback = watchEvents(out, s)
	} else {
		progress := newProgress(cmd.ErrOrStderr(), "Scanning for printers", "Scanning")
		progress.Start()
		stopFeedback = progress.Stop
	}

	found, err := s.Scan(ctx, opts)
	stopFeedback()

	switch {
	case errors.Is(err, printer.ErrScanTimeout), errors.Is(err, printer.ErrNoMatchingDevice):
		found, err = nil, nil
	case errors.Is(err, context.Canceled):
		// report what was found before Ctrl+C
		if len(found) == 0 {
			return err
		}
	case err != nil:
		logger.WithError(err).Error("scan failed")
		return err
	}

	if format == "json" {
		return displayPrintersJSON(out, found)
	}
	return displayPrintersTable(out, found)
}

func isValidFormat(format string) bool {
	for _, f := range validFormats {
		if f == format {
			return true
		}
	}
	return false
}

// watchEvents prints scanner events to out until the returned stop func is
// called. stop drains what is still buffered before returning.
func watchEvents(out io.Writer, s *scanner.Scanner) (stop func()) {
	done := make(chan struct{})
	finished := make(chan struct{})

	groutine.Go(context.Background(), "scan-watch", func(context.Context) {
		defer close(finished)
		for {
			select {
			case ev := <-s.Events():
				printEvent(out, ev)
			case <-done:
				for {
					select {
					case ev := <-s.Events():
						printEvent(out, ev)
					default:
						return
					}
				}
			}
		}
	})

	return func() {
		close(done)
		<-finished
	}
}

func printEvent(out io.Writer, ev scanner.Event) {
	marker := color.New(color.FgGreen).Sprint("+")
	if ev.Type == scanner.EventUpdated {
		marker = "~"
	}
	d := ev.Discovery
	fmt.Fprintf(out, "%s %s %s %d dBm %s\n", marker, displayName(d.Name), d.Address, d.RSSI, d.Variant.Name)
}

// displayName truncates long names on rune boundaries.
func displayName(name string) string {
	if name == "" {
		return "(unnamed)"
	}
	if r := []rune(name); len(r) > 20 {
		return string(r[:17]) + "..."
	}
	return name
}

func shortServices(uuids []string) string {
	short := make([]string, len(uuids))
	for i, u := range uuids {
		short[i] = device.ShortenUUID(u)
	}
	return strings.Join(short, ",")
}

func displayPrintersTable(out io.Writer, found []printer.Discovery) error {
	if len(found) == 0 {
		fmt.Fprintln(out, "No printers discovered")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tADDRESS\tRSSI\tVARIANT\tSERVICES")
	fmt.Fprintln(w, "----\t-------\t----\t-------\t--------")
	for _, d := range found {
		fmt.Fprintf(w, "%s\t%s\t%d dBm\t%s\t%s\n", displayName(d.Name), d.Address, d.RSSI, d.Variant.Name, shortServices(d.Services))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	color.New(color.FgGreen).Fprintf(out, "Found %d printer(s)\n", len(found))
	return nil
}

func displayPrintersJSON(out io.Writer, found []printer.Discovery) error {
	if found == nil {
		found = []printer.Discovery{}
	}
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(found)
}
