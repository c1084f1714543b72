package internal

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Eyevinn/mp2ts-prerollvalve/internal/config"
	"github.com/Eyevinn/mp2ts-prerollvalve/internal/schedule"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	ConfigFile     string
	Open           bool
	Debug          bool
	MaxHistoryMs   uint64
	PID            uint
	Cue            bool
	OpenOn         string
	Schedule       string
	MaxNrPictures  int
	Version        bool
	Indent         bool
	LogLevel       string
	OutPutTo       string
	MetricsFile    string
	ShowStreamInfo bool
	ShowFlushes    bool
	ShowNALU       bool
	ShowStatistics bool
	Properties     PropertyList
	// SetFlags holds the names of flags given on the command line.
	SetFlags map[string]bool
}

type OptionParseFunc func() Options
type RunableFunc func(ctx context.Context, w io.Writer, f io.Reader, o Options) error

// VisitedFlags returns the names of the flags set on the command line.
func VisitedFlags() map[string]bool {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// BuildConfig layers defaults, the config file and explicitly set flags.
func BuildConfig(o Options) (config.Config, error) {
	cfg := config.Default()
	if o.ConfigFile != "" {
		var err error
		if cfg, err = config.Load(o.ConfigFile); err != nil {
			return config.Config{}, err
		}
	}
	set := o.SetFlags
	if set["open"] {
		cfg.Valve.Open = o.Open
	}
	if set["debug"] {
		cfg.Valve.Debug = o.Debug
	}
	if set["max-history"] {
		cfg.Valve.MaxHistoryMs = o.MaxHistoryMs
	}
	if set["pid"] {
		cfg.PID = uint16(o.PID)
	}
	if set["cue"] {
		cfg.Cue.Enabled = o.Cue
	}
	if set["open-on"] {
		cfg.Cue.OpenOn = o.OpenOn
	}
	if set["schedule"] {
		entries, err := schedule.Parse(o.Schedule)
		if err != nil {
			return config.Config{}, err
		}
		cfg.Schedule = entries
	}
	if o.PID > 0x1FFF {
		return config.Config{}, fmt.Errorf("pid %d out of range", o.PID)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// NewLogger writes console-encoded logs to w at the given level. trace
// lowers the level to debug so per-frame valve traces are not dropped.
func NewLogger(w io.Writer, level string, trace bool) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	if trace && lvl.Level() > zapcore.DebugLevel {
		lvl.SetLevel(zapcore.DebugLevel)
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}

func RemoveFileIfExists(file string) error {
	_, err := os.Stat(file)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return os.Remove(file)
}

func OpenFileAndAppend(file string) (*os.File, error) {
	fo, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("creating output file %w", err)
	}
	return fo, nil
}

func ParseParams(function OptionParseFunc) (o Options, inFile string) {
	o = function()
	if o.Version {
		fmt.Printf("%s version %s\n", filepath.Base(os.Args[0]), GetVersion())
		os.Exit(0)
	}
	if len(flag.Args()) < 1 {
		flag.Usage()
		os.Exit(1)
	}
	inFile = flag.Args()[0]
	return o, inFile
}

func Execute(w io.Writer, o Options, inFile string, function RunableFunc) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()

	var f io.Reader
	if inFile == "-" {
		f = os.Stdin
	} else {
		fh, err := os.Open(inFile)
		if err != nil {
			log.Fatal(err)
		}
		f = fh
		defer fh.Close()
	}

	return function(ctx, w, f, o)
}
