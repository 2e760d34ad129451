// Command gesture-replay runs a recorded capture through the gesture engine
// and prints the gestures it produces.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/gesture-sensor/internal/action"
	"github.com/sweeney/gesture-sensor/internal/capture"
	"github.com/sweeney/gesture-sensor/internal/config"
	"github.com/sweeney/gesture-sensor/internal/gesture"
	"github.com/sweeney/gesture-sensor/internal/mqtt"
)

type options struct {
	configPath string
	reasons    bool
	json       bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "gesture-replay <capture|->",
		Short: "Replay a sample capture through the gesture engine",
		Long: `gesture-replay reads a capture written by gesture-sensor -record
(or any file of "<t_ns>,<ax>,<ay>,<az>" lines) and prints every gesture the
engine fires, with its offset from the start of the capture.

Each START line begins a new session: the engine is reset and the session is
laid after the previous one. Use "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := gesture.DefaultConfig()
			if opts.configPath != "" {
				c, err := config.Load(opts.configPath)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				cfg = c.Tuning.Gesture()
			}

			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			_, err := replay(cmd.OutOrStdout(), in, cfg, opts)
			return err
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "YAML config whose tuning section replaces the defaults")
	cmd.Flags().BoolVar(&opts.reasons, "reasons", false, "Also print each change of the up/down suppression reason")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print gestures as MQTT event payloads, one per line")
	return cmd
}

// replay prints the gestures found in the capture and returns the totals.
func replay(w io.Writer, r io.Reader, cfg gesture.Config, opts options) (gesture.GestureCounts, error) {
	records, err := capture.NewReader(r).ReadAll()
	if err != nil {
		return gesture.GestureCounts{}, fmt.Errorf("read capture: %w", err)
	}

	origin := time.Unix(0, 0).UTC()
	engine := gesture.NewEngine(cfg, origin)
	sessions, samples := 1, 0
	lastReason := gesture.ReasonNone

	var werr error
	printf := func(format string, args ...interface{}) {
		if werr == nil {
			_, werr = fmt.Fprintf(w, format, args...)
		}
	}

	reset := func() {
		engine.Reset()
		sessions++
		lastReason = gesture.ReasonNone
	}

	capture.Replay(records, origin, reset, func(now time.Time, s gesture.Sample) {
		samples++
		offset := now.Sub(origin).Seconds()
		for _, ev := range engine.Process(s, now) {
			if opts.json {
				payload, err := mqtt.FormatPayload(ev)
				if err != nil {
					werr = err
					return
				}
				printf("%s\n", payload)
				continue
			}
			name, _ := action.For(ev.Gesture)
			printf("%9.3fs  %-5s  %-17s  %dms\n", offset, ev.Gesture, name, ev.Duration.Milliseconds())
		}
		if opts.reasons && engine.LastReason() != lastReason {
			lastReason = engine.LastReason()
			printf("%9.3fs  reason %s\n", offset, lastReason)
		}
	})
	if werr != nil {
		return gesture.GestureCounts{}, werr
	}

	counts := engine.Counts()
	if !opts.json {
		printf("sessions=%d samples=%d left=%d right=%d up=%d down=%d\n",
			sessions, samples, counts.Left, counts.Right, counts.Up, counts.Down)
	}
	return counts, werr
}
