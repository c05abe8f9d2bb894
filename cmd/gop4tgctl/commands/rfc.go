package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dantte-lp/gop4tg/internal/tgen"
)

// errNoStreams indicates the payload file carries no streams.
var errNoStreams = errors.New("payload must contain at least one stream")

// rfcCmd groups the four RFC 2544 benchmark commands.
func rfcCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rfc",
		Short: "Run RFC 2544 benchmarks",
	}

	cmd.AddCommand(throughputCmd())
	cmd.AddCommand(latencyCmd())
	cmd.AddCommand(frameLossCmd())
	cmd.AddCommand(resetCmd())

	return cmd
}

// payloadFlags holds the flags shared by the four benchmark commands.
type payloadFlags struct {
	file      string
	rate      float64
	frameSize uint32
}

func (f *payloadFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.file, "payload", "",
		"YAML file with a full traffic-gen descriptor")
	cmd.Flags().Float64Var(&f.rate, "rate", 10,
		"initial offered rate in Gbit/s (ignored with --payload)")
	cmd.Flags().Uint32Var(&f.frameSize, "frame-size", 64,
		"frame size in bytes (ignored with --payload)")
}

// load builds the benchmark payload from the flags: either the YAML file or
// a single CBR stream from --rate/--frame-size.
func (f *payloadFlags) load() (*tgen.TrafficGenData, error) {
	if f.file == "" {
		return &tgen.TrafficGenData{
			Streams: []tgen.Stream{{
				FrameSize:   f.frameSize,
				TrafficRate: f.rate,
			}},
		}, nil
	}

	raw, err := os.ReadFile(f.file)
	if err != nil {
		return nil, fmt.Errorf("read payload file: %w", err)
	}

	payload := &tgen.TrafficGenData{}
	if err := yaml.Unmarshal(raw, payload); err != nil {
		return nil, fmt.Errorf("parse payload file %s: %w", f.file, err)
	}
	if len(payload.Streams) == 0 {
		return nil, fmt.Errorf("payload file %s: %w", f.file, errNoStreams)
	}

	return payload, nil
}

func throughputCmd() *cobra.Command {
	flags := &payloadFlags{}
	cmd := &cobra.Command{
		Use:   "throughput",
		Short: "Run the throughput benchmark (RFC 2544 Section 25.1)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			payload, err := flags.load()
			if err != nil {
				return err
			}

			var results map[uint32]float64
			if err := apiPost("/api/rfc/throughput", payload, &results); err != nil {
				return err
			}

			out, err := formatRateMap("Throughput (Gbit/s)", results, outputFormat)
			if err != nil {
				return err
			}
			cmd.Println(out)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func latencyCmd() *cobra.Command {
	flags := &payloadFlags{}
	cmd := &cobra.Command{
		Use:   "latency",
		Short: "Run the latency benchmark (RFC 2544 Section 25.2)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			payload, err := flags.load()
			if err != nil {
				return err
			}

			var results map[uint32]float64
			if err := apiPost("/api/rfc/latency", payload, &results); err != nil {
				return err
			}

			out, err := formatRateMap("Latency (µs)", results, outputFormat)
			if err != nil {
				return err
			}
			cmd.Println(out)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func frameLossCmd() *cobra.Command {
	flags := &payloadFlags{}
	cmd := &cobra.Command{
		Use:   "frameloss",
		Short: "Run the frame loss rate benchmark (RFC 2544 Section 25.3)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			payload, err := flags.load()
			if err != nil {
				return err
			}

			var results map[uint32]map[uint32]float64
			if err := apiPost("/api/rfc/frame_loss", payload, &results); err != nil {
				return err
			}

			out, err := formatFrameLoss(results, outputFormat)
			if err != nil {
				return err
			}
			cmd.Println(out)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func resetCmd() *cobra.Command {
	flags := &payloadFlags{}
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Run the reset benchmark (RFC 2544 Section 25.6)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			payload, err := flags.load()
			if err != nil {
				return err
			}

			var recovery float64
			if err := apiPost("/api/rfc/reset", payload, &recovery); err != nil {
				return err
			}

			if recovery == 0 {
				cmd.Println("No reset observed.")
				return nil
			}
			cmd.Printf("Recovery time: %.3f s\n", recovery)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
