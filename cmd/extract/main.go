// Program extract implements Program A: it reads a time range out of a
// day-spanning sequence of DRF files and writes decoded, optionally
// downsampled and filtered, sample rows to stdout or a file.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/seismicdata/drf-fanout/internal/config"
	"github.com/seismicdata/drf-fanout/internal/drf"
	"github.com/seismicdata/drf-fanout/internal/logging"
	"github.com/seismicdata/drf-fanout/internal/textfmt"
	"github.com/seismicdata/drf-fanout/internal/timeutil"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "extract [flags] <start_time> <minutes>",
		Short:             "Extract a time range from DRF day-files into text rows",
		Long: "start_time is MMDD_HHMM, MMDDYY_HHMM, MMDD_HHMMSS, or MMDDYY_HHMMSS,\n" +
			"UTC unless -l is given.",
		Version:           fmt.Sprintf("%s (%s)", version, commit),
		Args:              cobra.ExactArgs(2),
		RunE:              runExtract,
		SilenceUsage:      true,
		DisableAutoGenTag: true,
	}

	flags := cmd.Flags()
	flags.StringP("output", "o", "", "output file path (default: stdout)")
	flags.IntP("downsample", "d", 1, "downsample factor, 1..1000000")
	flags.StringP("channel", "c", "", "channel name filter")
	flags.StringP("main-ini", "w", "winsdr.ini", "main config file")
	flags.BoolP("dump-header", "h", false, "dump header only, no data")
	flags.BoolP("full-header", "f", false, "full header (volts/count per channel)")
	flags.BoolP("psn", "p", false, "PSN header (requires -c; incompatible with -t)")
	flags.BoolP("local-time", "l", false, "interpret the start time as local rather than UTC")
	flags.BoolP("no-header", "n", false, "suppress the header entirely")
	flags.BoolP("offset-time", "t", false, "prepend offset-from-start seconds to each row")
	flags.BoolP("epoch-time", "T", false, "prepend unix epoch seconds to each row")
	flags.BoolP("space-separator", "s", false, "use a space instead of a comma between values")
	flags.StringP("config-root", "P", ".", "config root directory")
	flags.StringP("record-root", "R", "", "record root directory (overrides winsdr.ini)")

	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	startArg := args[0]
	minutesStr := args[1]

	minutes, err := parsePositiveInt(minutesStr)
	if err != nil {
		return fmt.Errorf("extract: invalid minutes %q: %w", minutesStr, err)
	}

	downsample, err := flags.GetInt("downsample")
	if err != nil {
		return err
	}
	if downsample < 1 || downsample > 1_000_000 {
		return fmt.Errorf("extract: downsample factor %d out of range 1..1000000", downsample)
	}

	channelName, _ := flags.GetString("channel")
	mainIni, _ := flags.GetString("main-ini")
	fullHeader, _ := flags.GetBool("full-header")
	psn, _ := flags.GetBool("psn")
	localTime, _ := flags.GetBool("local-time")
	noHeader, _ := flags.GetBool("no-header")
	offsetTime, _ := flags.GetBool("offset-time")
	epochTime, _ := flags.GetBool("epoch-time")
	spaceSep, _ := flags.GetBool("space-separator")
	configRoot, _ := flags.GetString("config-root")
	recordRoot, _ := flags.GetString("record-root")
	output, _ := flags.GetString("output")
	dumpHeader, _ := flags.GetBool("dump-header")

	if psn && channelName == "" {
		return fmt.Errorf("extract: -p requires -c")
	}
	if psn && offsetTime {
		return fmt.Errorf("extract: -p is incompatible with -t")
	}

	extractCfg, err := config.LoadExtractConfig(configRoot, mainIni, recordRoot)
	if err != nil {
		return fmt.Errorf("extract: load config: %w", err)
	}

	start, err := timeutil.ParseStartTime(startArg, localTime, time.Now())
	if err != nil {
		return fmt.Errorf("extract: invalid start time: %w", err)
	}
	start = start.UTC()

	channelIndex := 0
	if channelName != "" {
		channelIndex = extractCfg.ChannelIndex(channelName)
		if channelIndex == 0 {
			return fmt.Errorf("extract: unknown channel %q", channelName)
		}
	}

	sep := ","
	if spaceSep {
		sep = " "
	}
	timestamps := textfmt.TimestampNone
	switch {
	case epochTime:
		timestamps = textfmt.TimestampEpoch
	case offsetTime:
		timestamps = textfmt.TimestampOffset
	}

	voltsPerCount := make([]float64, len(extractCfg.Channels))
	for i, ch := range extractCfg.Channels {
		voltsPerCount[i] = ch.VoltsPerCount()
	}
	adcBits, pgaGain := 0, 0.0
	if channelIndex > 0 {
		ch := extractCfg.Channels[channelIndex-1]
		adcBits = ch.ADCBits
		pgaGain = ch.ADCGain
	}

	opts := drf.EmitOptions{
		StartTime:     start,
		Minutes:       minutes,
		Channel:       channelIndex,
		SaveNth:       downsample,
		FullHeader:    fullHeader,
		PSN:           psn,
		NoHeader:      noHeader,
		Timestamps:    timestamps,
		Separator:     sep,
		VoltsPerCount: voltsPerCount,
		ADCBits:       adcBits,
		PGAGain:       pgaGain,
	}

	opener := dayFileOpener(extractCfg, extractCfg.SystemNumber)

	w := os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("extract: create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if dumpHeader {
		return dumpOnlyHeader(opener, start, w)
	}

	ex := drf.NewExtractor(opener, opts)
	ex.Log = logging.New(config.LogLevelWarn)
	if err := ex.Run(w); err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	return nil
}

func dumpOnlyHeader(opener drf.DayFileOpener, start time.Time, w *os.File) error {
	_, hdr, found, err := opener(start)
	if err != nil {
		return fmt.Errorf("extract: open day file: %w", err)
	}
	if !found {
		return drf.ErrNoStartFile
	}
	fmt.Fprintf(w, "Sample Rate: %d\n", hdr.SampleRate)
	fmt.Fprintf(w, "Number of Channels: %d\n", hdr.NumChannels)
	fmt.Fprintf(w, "Number of Blocks: %d\n", len(hdr.Index))
	return nil
}

func dayFileOpener(cfg *config.ExtractConfig, sysNumber int) drf.DayFileOpener {
	return func(day time.Time) (io.ReadSeeker, drf.Header, bool, error) {
		name := timeutil.DayFileName(sysNumber, day)
		path := filepath.Join(cfg.RecordPath, name)
		f, err := os.Open(path)
		if os.IsNotExist(err) {
			return nil, drf.Header{}, false, nil
		}
		if err != nil {
			return nil, drf.Header{}, false, err
		}
		hdr, err := drf.ReadHeader(f, cfg.NumberChannels)
		if err != nil {
			f.Close()
			return nil, drf.Header{}, false, err
		}
		return f, hdr, true, nil
	}
}

func parsePositiveInt(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return n, nil
}
