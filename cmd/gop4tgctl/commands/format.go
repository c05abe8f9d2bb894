package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/dantte-lp/gop4tg/internal/tgen"
)

const (
	formatJSON  = "json"
	formatTable = "table"
	valueNA     = "N/A"
)

// errUnsupportedFormat is returned when the requested output format is not supported.
var errUnsupportedFormat = errors.New("unsupported output format")

// formatRateMap renders a frame-size -> value map in the requested format.
func formatRateMap(header string, values map[uint32]float64, format string) (string, error) {
	switch format {
	case formatJSON:
		return marshalJSON(values)
	case formatTable:
		return rateMapTable(header, values), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

// formatFrameLoss renders the frame-loss matrix in the requested format.
func formatFrameLoss(results map[uint32]map[uint32]float64, format string) (string, error) {
	switch format {
	case formatJSON:
		return marshalJSON(results)
	case formatTable:
		return frameLossTable(results), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

// formatResults renders the full result record in the requested format.
func formatResults(result tgen.TestResult, format string) (string, error) {
	switch format {
	case formatJSON:
		return marshalJSON(result)
	case formatTable:
		return resultsTable(result), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func marshalJSON(v any) (string, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal json: %w", err)
	}
	return string(raw), nil
}

// sortedKeys returns the map keys in ascending order.
func sortedKeys[V any](m map[uint32]V) []uint32 {
	keys := make([]uint32, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func rateMapTable(header string, values map[uint32]float64) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "FRAME SIZE\t%s\n", strings.ToUpper(header))
	for _, size := range sortedKeys(values) {
		fmt.Fprintf(w, "%d\t%.3f\n", size, values[size])
	}

	_ = w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

func frameLossTable(results map[uint32]map[uint32]float64) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "FRAME SIZE\tRATE %\tLOSS %")
	for _, size := range sortedKeys(results) {
		rates := results[size]
		keys := sortedKeys(rates)
		// Highest offered rate first, the order the sweep ran in.
		slices.Reverse(keys)
		for _, reduction := range keys {
			fmt.Fprintf(w, "%d\t%d\t%.3f\n", size, reduction, rates[reduction])
		}
	}

	_ = w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

func resultsTable(result tgen.TestResult) string {
	var b strings.Builder

	state := "idle"
	if result.Running {
		state = "running"
		if result.CurrentTest != "" {
			state = "running: " + result.CurrentTest
		}
	}
	fmt.Fprintf(&b, "State: %s\n\n", state)

	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FRAME SIZE\tTHROUGHPUT GBIT/S\tLATENCY µS\tRESET S")

	sizes := sortedKeys(result.Throughput)
	for _, size := range sortedKeys(result.Latency) {
		if !slices.Contains(sizes, size) {
			sizes = append(sizes, size)
		}
	}
	for _, size := range sortedKeys(result.Reset) {
		if !slices.Contains(sizes, size) {
			sizes = append(sizes, size)
		}
	}
	slices.Sort(sizes)

	for _, size := range sizes {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			size,
			cellFloat(result.Throughput, size),
			cellFloat(result.Latency, size),
			cellFloat(result.Reset, size),
		)
	}
	_ = w.Flush()

	if len(result.FrameLossRate) > 0 {
		fmt.Fprintf(&b, "\nFrame loss:\n%s\n", frameLossTable(result.FrameLossRate))
	}

	return strings.TrimRight(b.String(), "\n")
}

func cellFloat(m map[uint32]float64, key uint32) string {
	v, ok := m[key]
	if !ok {
		return valueNA
	}
	return fmt.Sprintf("%.3f", v)
}
