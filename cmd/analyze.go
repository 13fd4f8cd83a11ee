package main

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"text/tabwriter"
	"time"

	"github.com/0xlemi/timpletune/internal/audio"
	"github.com/0xlemi/timpletune/internal/pitch"
	"github.com/0xlemi/timpletune/internal/tuning"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/sync/errgroup"
)

// statusOrder is the order of the summary histogram
var statusOrder = []tuning.Status{
	tuning.StatusInTune,
	tuning.StatusSharp,
	tuning.StatusFlat,
	tuning.StatusNoisy,
	tuning.StatusAwaiting,
}

func newAnalyzeCommand(opts *options) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Print the tuning readings of every frame of a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags(), opts)
			if err != nil {
				return err
			}
			logger, closeLog, err := newLogger(cfg.LogLevel.Slog(), opts.logFile, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			clip, err := readClip(args[0])
			if err != nil {
				return err
			}

			// Frames are fed through Process; the session needs no source.
			session, provider, err := newPipeline(cfg, nil, logger)
			if err != nil {
				return err
			}

			var progress io.Writer = cmd.ErrOrStderr()
			if quiet {
				progress = io.Discard
			}
			readings, err := analyzeClip(cmd.Context(), session, clip, cfg.Audio.FrameSize, progress)
			if err != nil {
				return err
			}

			printReadings(cmd.OutOrStdout(), readings, clip.SampleRate, cfg.Audio.FrameSize)
			return finishMetrics(provider, cfg.Metrics.Textfile, logger)
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide the progress bar")
	return cmd
}

// analyzeClip processes every full frame of clip. Frames are independent,
// so they are classified in parallel; readings keep frame order.
func analyzeClip(ctx context.Context, session *tuning.Session, clip *audio.Clip, frameSize int, progress io.Writer) ([]tuning.Reading, error) {
	n := clip.FrameCount(frameSize)
	if n == 0 {
		return nil, fmt.Errorf("clip holds %d samples, less than one frame of %d", len(clip.Samples), frameSize)
	}

	p := mpb.NewWithContext(ctx, mpb.WithOutput(progress), mpb.WithWidth(64))
	bar := p.AddBar(int64(n),
		mpb.PrependDecorators(
			decor.Name("Analyzing: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.EwmaETA(decor.ET_STYLE_GO, 60),
		),
	)

	readings := make([]tuning.Reading, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	i := 0
	for frame := range clip.Frames(frameSize) {
		idx := i
		i++
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			readings[idx] = session.Process(frame)
			bar.EwmaIncrement(time.Since(start))
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		bar.Abort(false)
	}
	p.Wait()
	return readings, err
}

func printReadings(w io.Writer, readings []tuning.Reading, sampleRate, frameSize int) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tHZ\tNOTE\tCENTS\tSTATUS\tSTRING")

	counts := make(map[tuning.Status]int, len(statusOrder))
	for i, r := range readings {
		counts[r.Status]++

		at := time.Duration(i*frameSize) * time.Second / time.Duration(sampleRate)
		hz, note, cents, str := "-", "-", "-", "-"
		if r.Frequency != nil {
			hz = fmt.Sprintf("%.2f", *r.Frequency)
			note = pitch.NoteFor(*r.Frequency).String()
		}
		if r.CentsOff != nil {
			cents = fmt.Sprintf("%+.1f", *r.CentsOff)
		}
		if r.Matched != nil {
			str = r.Matched.Label
		}
		fmt.Fprintf(tw, "%.2fs\t%s\t%s\t%s\t%s\t%s\n", at.Seconds(), hz, note, cents, r.Status, str)
	}
	tw.Flush()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d frames\n", len(readings))
	for _, s := range statusOrder {
		if counts[s] > 0 {
			fmt.Fprintf(w, "  %-9s %5d  %5.1f%%\n", s, counts[s], 100*float64(counts[s])/float64(len(readings)))
		}
	}
}
