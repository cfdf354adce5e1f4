package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/trainerkit/scan-engine/dolphin"
	"github.com/trainerkit/scan-engine/scanner"
	"github.com/trainerkit/scan-engine/script"
	"github.com/trainerkit/scan-engine/variant"
)

func main() {
	var (
		typeName    = flag.String("type", "uint32", "Value type (uint8..int64, float, double, ascii, wide)")
		valueStr    = flag.String("value", "", "Value to scan for; min..max for a range, ? for unknown")
		maskStr     = flag.String("mask", "eq", "Comparator mask (eq,ne,gt,lt,ge,le)")
		limit       = flag.Int("limit", 32, "Maximum results to print")
		scriptFile  = flag.String("script", "", "Path to a wasm scan script")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		debug       = flag.Bool("debug", false, "Verbose logging")
	)
	flag.Parse()

	logger := zap.NewNop()
	if *debug {
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	dolphin.SetLogger(logger)
	scanner.SetLogger(logger)
	script.SetLogger(logger)

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *scriptFile != "" {
		if err := runScript(*scriptFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *valueStr == "" {
		fmt.Fprintln(os.Stderr, "Usage: scan -type <type> -value <value> [-mask eq,gt,...]")
		fmt.Fprintln(os.Stderr, "       scan -script <file.wasm>")
		fmt.Fprintln(os.Stderr, "       scan -i  (interactive mode)")
		os.Exit(1)
	}

	if err := runOnce(*typeName, *valueStr, *maskStr, *limit); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runOnce(typeName, valueStr, maskStr string, limit int) error {
	needle, err := parseNeedle(typeName, valueStr)
	if err != nil {
		return err
	}
	mask, err := parseMask(maskStr)
	if err != nil {
		return err
	}

	target := dolphin.New()
	if err := target.Attach(0); err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	defer target.Detach()

	sc := scanner.New(target)
	if err := sc.FirstScan(needle, mask); err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	results := sc.Results()
	fmt.Printf("%d match(es)\n", sc.ResultCount())
	for i, r := range results {
		if i >= limit {
			fmt.Printf("... and %d more\n", len(results)-limit)
			break
		}
		fmt.Printf("  %#010x = %s\n", uint64(r.Address), r.Value.ToString())
	}
	return nil
}

func runScript(path string) error {
	wasmBytes, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	target := dolphin.New()
	defer target.Detach()
	sc := scanner.New(target)

	engine, err := script.NewEngine(ctx, target, sc)
	if err != nil {
		return err
	}
	defer engine.Close(ctx)

	if err := engine.LoadScript(ctx, wasmBytes); err != nil {
		return err
	}

	// The script stays alive as long as it keeps scheduling ticks.
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for engine.PendingEvents() > 0 {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			engine.Think(ctx)
		}
	}
	return nil
}

// parseNeedle builds a scan pattern from a type name and value text.
// Numeric values accept min..max ranges and ? placeholders.
func parseNeedle(typeName, valueStr string) (variant.Variant, error) {
	switch typeName {
	case "ascii":
		v := variant.FromASCIIString(valueStr)
		if v.IsNull() {
			return v, fmt.Errorf("empty string value")
		}
		return v, nil
	case "wide":
		v := variant.FromWideString(valueStr)
		if v.IsNull() {
			return v, fmt.Errorf("empty string value")
		}
		return v, nil
	}

	num, ok := variant.NumericTypeByName(typeName)
	if !ok {
		return variant.MakeNull(), fmt.Errorf("unknown type %q", typeName)
	}

	if valueStr == "?" {
		return variant.MakePlaceholder(num), nil
	}

	if lo, hi, found := strings.Cut(valueStr, ".."); found {
		min, err := parseScalar(lo, num)
		if err != nil {
			return variant.MakeNull(), err
		}
		max, err := parseScalar(hi, num)
		if err != nil {
			return variant.MakeNull(), err
		}
		r := variant.FromVariantRange(min, max)
		if r.IsNull() {
			return r, fmt.Errorf("invalid range %q", valueStr)
		}
		return r, nil
	}

	return parseScalar(valueStr, num)
}

func parseScalar(s string, num variant.NumericType) (variant.Variant, error) {
	s = strings.TrimSpace(s)
	switch num {
	case variant.Float32, variant.Float64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return variant.MakeNull(), fmt.Errorf("bad float %q", s)
		}
		if num == variant.Float32 {
			return variant.FromFloat32(float32(f)), nil
		}
		return variant.FromFloat64(f), nil
	}

	if strings.HasPrefix(s, "-") {
		i, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return variant.MakeNull(), fmt.Errorf("bad integer %q", s)
		}
		return variant.FromInt(i, num), nil
	}
	u, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return variant.MakeNull(), fmt.Errorf("bad integer %q", s)
	}
	return variant.FromNumber(u, num), nil
}

func parseMask(s string) (variant.Flags, error) {
	var mask variant.Flags
	for _, part := range strings.Split(s, ",") {
		switch strings.TrimSpace(part) {
		case "eq":
			mask |= variant.FlagEquals
		case "ne":
			mask |= variant.FlagNotEqual
		case "gt":
			mask |= variant.FlagGreaterThan
		case "lt":
			mask |= variant.FlagLessThan
		case "ge":
			mask |= variant.FlagGreaterThanOrEqual
		case "le":
			mask |= variant.FlagLessThanOrEqual
		case "":
		default:
			return 0, fmt.Errorf("unknown comparator %q", part)
		}
	}
	if mask == 0 {
		return 0, fmt.Errorf("empty comparator mask")
	}
	return mask, nil
}
