package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Eyevinn/mp2ts-prerollvalve/internal"
	"github.com/Eyevinn/mp2ts-prerollvalve/internal/demux"
	"github.com/Eyevinn/mp2ts-prerollvalve/internal/valve"
	"go.uber.org/zap"
)

var usg = `Usage of %s:

%s holds back one elementary stream of a transport stream until the valve
opens, then releases it starting at the oldest buffered keyframe.
The valve is opened by -open, a schedule, SCTE-35 splice inserts or at
runtime with SIGUSR1 (open) and SIGUSR2 (close).
Flags override values from the -config file; -set is applied last.
`

func parseOptions() internal.Options {
	opts := internal.Options{ShowFlushes: true, ShowStatistics: true}
	flag.StringVar(&opts.ConfigFile, "config", "", "YAML config file")
	flag.BoolVar(&opts.Open, "open", valve.DefaultOpen, "start with the valve open")
	flag.Uint64Var(&opts.MaxHistoryMs, "max-history", uint64(valve.DefaultMaxHistory/time.Millisecond), "max buffered history in ms of stream time")
	flag.BoolVar(&opts.Debug, "debug", valve.DefaultDebug, "trace every frame (logs at debug level)")
	flag.Var(&opts.Properties, "set", "set a valve property as name=value (open, max-history, debug), repeatable")
	flag.UintVar(&opts.PID, "pid", 0, "elementary stream PID (0 selects the first video stream)")
	flag.BoolVar(&opts.Cue, "cue", false, "open and close on SCTE-35 splice inserts")
	flag.StringVar(&opts.OpenOn, "open-on", "out", "splice insert direction that opens the valve (out or in)")
	flag.StringVar(&opts.Schedule, "schedule", "", "open/close schedule relative to the first frame, e.g. \"open@20s,close@40s\"")
	flag.StringVar(&opts.OutPutTo, "output", "-", "save the TS packets into the given file (filepath) or stdout (-)")
	flag.StringVar(&opts.MetricsFile, "metrics", "", "write prometheus metrics to this file at end of stream")
	flag.StringVar(&opts.LogLevel, "loglevel", "info", "log level (debug, info, warn, error)")
	flag.IntVar(&opts.MaxNrPictures, "max", 0, "max nr frames to process")
	flag.BoolVar(&opts.ShowStreamInfo, "streams", false, "print the elementary streams")
	flag.BoolVar(&opts.Indent, "indent", false, "indent JSON output")
	flag.BoolVar(&opts.Version, "version", false, "print version")

	flag.Usage = func() {
		parts := strings.Split(os.Args[0], "/")
		name := parts[len(parts)-1]
		fmt.Fprintf(os.Stderr, usg, name, name)
		fmt.Fprintf(os.Stderr, "\nRun as: %s [options] file.ts (- for stdin) with options:\n\n", name)
		flag.PrintDefaults()
	}

	flag.Parse()
	opts.SetFlags = internal.VisitedFlags()
	return opts
}

func run(ctx context.Context, w io.Writer, f io.Reader, o internal.Options) error {
	cfg, err := internal.BuildConfig(o)
	if err != nil {
		return err
	}
	assignments, err := internal.ParseAssignments(o.Properties)
	if err != nil {
		return err
	}
	trace := internal.Traces(cfg.Valve.Debug, assignments)
	logger, err := internal.NewLogger(os.Stderr, o.LogLevel, trace)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	outPutToFile := o.OutPutTo != "-"
	var textOutput io.Writer
	var tsOutput io.Writer
	// If we output to ts files, print analysis to stdout
	if outPutToFile {
		if err := internal.RemoveFileIfExists(o.OutPutTo); err != nil {
			return err
		}
		file, err := internal.OpenFileAndAppend(o.OutPutTo)
		if err != nil {
			return err
		}
		tsOutput = file
		textOutput = w
		defer file.Close()
	} else { // If we output to stdout, print analysis to stderr
		tsOutput = w
		textOutput = os.Stderr
	}

	p, err := internal.NewPipeline(ctx, cfg, tsOutput, textOutput, o, logger)
	if err != nil {
		return err
	}
	internal.ApplyAssignments(p.Valve(), assignments, logger)
	go toggleOnSignals(ctx, p.Valve(), logger)
	return p.Run(ctx, f)
}

func toggleOnSignals(ctx context.Context, v *valve.Valve[*demux.Sample], logger *zap.Logger) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-ch:
			logger.Info("signal received", zap.Stringer("signal", sig))
			v.SetOpen(sig == syscall.SIGUSR1)
		}
	}
}

func main() {
	o, inFile := internal.ParseParams(parseOptions)
	err := internal.Execute(os.Stdout, o, inFile, run)
	if err != nil {
		log.Fatal(err)
	}
}
