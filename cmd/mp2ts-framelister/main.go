package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/Eyevinn/mp2ts-prerollvalve/internal"
)

var usg = `Usage of %s:

%s lists the frames of one elementary stream with timestamps, rai and the
keyframe decision used by mp2ts-prerollvalve.
`

func parseOptions() internal.Options {
	opts := internal.Options{ShowStreamInfo: true, ShowStatistics: true}
	flag.UintVar(&opts.PID, "pid", 0, "elementary stream PID (0 selects the first video stream)")
	flag.IntVar(&opts.MaxNrPictures, "max", 0, "max nr pictures to parse")
	flag.BoolVar(&opts.ShowNALU, "nalu", false, "list NAL unit types")
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
	return opts
}

func listFrames(ctx context.Context, w io.Writer, f io.Reader, o internal.Options) error {
	return internal.ListFrames(ctx, w, f, o)
}

func main() {
	o, inFile := internal.ParseParams(parseOptions)
	err := internal.Execute(os.Stdout, o, inFile, listFrames)
	if err != nil {
		log.Fatal(err)
	}
}
