package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/srg/catprint/internal/escpos"
	"github.com/srg/catprint/internal/printer"
	"github.com/srg/catprint/scanner"
)

func newPrintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "print",
		Short: "Print text, raw bytes or an image",
		Long: fmt.Sprintf(`Connects to a printer, sends one job and waits until the printer reports ready.

Unless a variant is configured, a short scan for the address runs first to
learn which characteristic set (AE30 or AF30) the printer uses.

%s`, deviceAddressNote),
	}
	cmd.PersistentFlags().String("variant", "", "Skip the scan and assume this printer variant (ae30, af30)")

	cmd.AddCommand(newPrintTextCmd())
	cmd.AddCommand(newPrintRawCmd())
	cmd.AddCommand(newPrintImageCmd())
	return cmd
}

func newPrintTextCmd() *cobra.Command {
	var (
		align       string
		lineSpacing int
	)
	cmd := &cobra.Command{
		Use:   "text <device-address> <text>...",
		Short: "Print a line of text",
		Long: fmt.Sprintf(`Prints the arguments joined by spaces, followed by a line feed.

Examples:
  catprint print text %s "hello world"
  catprint print text %s --align center --line-spacing 48 Title`, exampleDeviceAddress, exampleDeviceAddress),
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			style, err := parseTextStyle(align, lineSpacing, cmd.Flags().Changed("line-spacing"))
			if err != nil {
				return err
			}
			text := strings.Join(args[1:], " ")
			return runPrint(cmd, args[0], func(ctx context.Context, m *printer.Manager) error {
				return m.PrintText(ctx, text, style)
			})
		},
	}
	cmd.Flags().StringVar(&align, "align", "", "Text alignment (left, center, right)")
	cmd.Flags().IntVar(&lineSpacing, "line-spacing", 0, "Line spacing in dots (0-255)")
	return cmd
}

// parseTextStyle turns the --align and --line-spacing flags into a text style.
func parseTextStyle(align string, lineSpacing int, spacingSet bool) (escpos.TextStyle, error) {
	var style escpos.TextStyle
	if align != "" {
		a, ok := escpos.ParseAlignment(align)
		if !ok {
			return style, fmt.Errorf("invalid alignment '%s': must be left, center or right", align)
		}
		style.Align = &a
	}
	if spacingSet {
		if lineSpacing < 0 || lineSpacing > 255 {
			return style, fmt.Errorf("line spacing %d out of range 0-255", lineSpacing)
		}
		n := byte(lineSpacing)
		style.LineSpacing = &n
	}
	return style, nil
}

func newPrintRawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "raw <device-address> <hex>",
		Short: "Send raw command bytes",
		Long: fmt.Sprintf(`Sends hex-encoded bytes unchanged. Spaces, colons, dashes and 0x prefixes are ignored.

Examples:
  catprint print raw %s "1b 40 0a"`, exampleDeviceAddress),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseHexData(args[1])
			if err != nil {
				return fmt.Errorf("failed to parse data: %w", err)
			}
			return runPrint(cmd, args[0], func(ctx context.Context, m *printer.Manager) error {
				return m.PrintRaw(ctx, data)
			})
		},
	}
}

// parseHexData decodes hex input, tolerating common separators.
func parseHexData(s string) ([]byte, error) {
	cleaned := strings.NewReplacer(" ", "", ":", "", "-", "", "0x", "", "0X", "").Replace(s)
	data, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("invalid hex data: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("no data")
	}
	return data, nil
}

func newPrintImageCmd() *cobra.Command {
	var (
		threshold float64
		invert    bool
	)
	cmd := &cobra.Command{
		Use:   "image <device-address> <file.png>",
		Short: "Print a PNG image",
		Long: fmt.Sprintf(`Converts a PNG to one bit per pixel and prints it as a raster image.
The image should already be scaled to the print head width (384 dots on most models).

Examples:
  catprint print image %s logo.png --threshold 0.6`, exampleDeviceAddress),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if threshold <= 0 || threshold >= 1 {
				return fmt.Errorf("threshold %.2f must be between 0 and 1", threshold)
			}
			img, err := loadPNG(args[1])
			if err != nil {
				return err
			}
			withPack := func(opts *printer.ManagerOptions) {
				opts.Pack = escpos.PackOptions{Threshold: threshold, InvertInk: invert}
			}
			return runPrint(cmd, args[0], func(ctx context.Context, m *printer.Manager) error {
				return m.PrintImage(ctx, img)
			}, withPack)
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", escpos.DefaultThreshold, "Luminance threshold between 0 and 1")
	cmd.Flags().BoolVar(&invert, "invert", true, "Burn dark pixels (set --invert=false to burn light ones)")
	return cmd
}

func loadPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// printFunc runs one job on a connected manager.
type printFunc func(ctx context.Context, m *printer.Manager) error

func runPrint(cmd *cobra.Command, address string, job printFunc, configure ...func(*printer.ManagerOptions)) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("variant"); v != "" {
		cfg.Variant = v
	}
	mopts, err := cfg.ManagerOptions()
	if err != nil {
		return err
	}
	for _, fn := range configure {
		fn(&mopts)
	}

	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	transport := newTransport(logger)
	scanOpts := cfg.ScanOptions()
	scanOpts.AllowList = []string{address}
	m := printer.NewManager(transport, scanner.NewScanner(transport, scanOpts, logger), mopts, logger)

	progress := newProgress(cmd.ErrOrStderr(), "Printing to "+address, "Connecting")
	progress.Start()
	defer progress.Stop()

	if mopts.Variant == nil {
		progress.SetPhase("Scanning")
		if _, err := m.Scan(ctx); err != nil {
			return err
		}
	}

	progress.SetPhase("Connecting")
	if err := m.Connect(ctx, address); err != nil {
		return err
	}
	defer func() {
		if err := m.Disconnect(); err != nil {
			logger.WithError(err).Debug("Disconnect failed")
		}
	}()

	progress.SetPhase("Printing")
	err = job(ctx, m)
	progress.Stop()
	if err != nil {
		return err
	}

	color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Printed to %s\n", address)
	return nil
}
