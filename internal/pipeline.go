package internal

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Eyevinn/mp2ts-prerollvalve/internal/config"
	"github.com/Eyevinn/mp2ts-prerollvalve/internal/cue"
	"github.com/Eyevinn/mp2ts-prerollvalve/internal/demux"
	"github.com/Eyevinn/mp2ts-prerollvalve/internal/mux"
	"github.com/Eyevinn/mp2ts-prerollvalve/internal/schedule"
	"github.com/Eyevinn/mp2ts-prerollvalve/internal/valve"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Pipeline demuxes one elementary stream, runs it through a valve and
// muxes what comes out.
type Pipeline struct {
	cfg    config.Config
	o      Options
	logger *zap.Logger
	jp     *JsonPrinter
	reg    *prometheus.Registry
	valve  *valve.Valve[*demux.Sample]
	sink   *mux.Sink
	sched  *schedule.Schedule
	cues   *cue.Watcher
	stats  *StreamStatistics
}

// NewPipeline writes the transport stream to tsOut and JSON reports to
// textOut.
func NewPipeline(ctx context.Context, cfg config.Config, tsOut, textOut io.Writer, o Options, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		cfg:    cfg,
		o:      o,
		logger: logger,
		jp:     &JsonPrinter{W: textOut, Indent: o.Indent},
		reg:    prometheus.NewRegistry(),
	}
	p.sink = mux.NewSink(ctx, tsOut, mux.WithPushObserver(p.recordForwarded))

	v, err := valve.New[*demux.Sample](p.sink,
		valve.WithSettings[*demux.Sample](cfg.Valve.Settings()),
		valve.WithLogger[*demux.Sample](logger),
		valve.WithMetrics[*demux.Sample](valve.NewMetrics(p.reg, nil)),
		valve.WithFlushObserver[*demux.Sample](p.onFlush),
	)
	if err != nil {
		return nil, fmt.Errorf("creating valve: %w", err)
	}
	p.valve = v

	if len(cfg.Schedule) > 0 {
		if p.sched, err = schedule.New(cfg.Schedule); err != nil {
			return nil, err
		}
	}
	if cfg.Cue.Enabled {
		dir, err := cue.ParseDirection(cfg.Cue.OpenOn)
		if err != nil {
			return nil, err
		}
		p.cues = cue.NewWatcher(dir, logger)
	}
	return p, nil
}

// Valve gives access to the running valve, e.g. for signal handlers.
func (p *Pipeline) Valve() *valve.Valve[*demux.Sample] {
	return p.valve
}

// Run processes r until end of input or cancellation of ctx.
func (p *Pipeline) Run(ctx context.Context, r io.Reader) error {
	opts := demux.Options{PID: p.cfg.PID, OnPMT: p.onPMT}
	if p.cues != nil {
		opts.Hook = p.cues.Inspect
	}
	rd := demux.NewReader(ctx, r, opts)
	nrFrames := 0
dataLoop:
	for {
		select {
		case <-ctx.Done():
			break dataLoop
		default:
		}

		item, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break dataLoop
		}
		if err != nil {
			return p.abort(err)
		}
		if item.Stream != nil {
			if err := p.link(item.Stream); err != nil {
				return p.abort(err)
			}
			continue
		}

		f := *item.Frame
		p.control(f)
		if err := p.valve.OnFrame(f); err != nil {
			return p.abort(fmt.Errorf("frame at %s: %w", f.Timestamp, err))
		}
		nrFrames++
		if p.o.MaxNrPictures > 0 && nrFrames >= p.o.MaxNrPictures {
			break dataLoop
		}
	}

	if !p.valve.OnControlEvent(valve.Event{Type: valve.EventEOS}) {
		return errors.New("flushing output at end of stream")
	}
	return p.report()
}

// abort writes out what the sink has buffered and returns err.
func (p *Pipeline) abort(err error) error {
	if ferr := p.sink.Flush(); ferr != nil {
		p.logger.Warn("flushing output after error", zap.Error(ferr))
	}
	return err
}

func (p *Pipeline) onPMT(streams []demux.StreamInfo, scte35PIDs []uint16) {
	for _, s := range streams {
		p.jp.Print(s, p.o.ShowStreamInfo)
	}
	if p.cues != nil {
		p.cues.AddPIDs(scte35PIDs...)
	}
}

func (p *Pipeline) link(info *demux.StreamInfo) error {
	p.stats = NewStreamStatistics(info)
	p.valve.OnControlEvent(valve.Event{Type: valve.EventStreamStart})
	if !p.valve.OnControlEvent(valve.Event{Type: valve.EventFormat, Data: info}) {
		return fmt.Errorf("output rejected %s stream on pid %d", info.Codec, info.PID)
	}
	p.logger.Info("stream linked", zap.Uint16("pid", info.PID), zap.String("codec", info.Codec))
	return nil
}

// control applies schedule entries and cues that are due at f.
func (p *Pipeline) control(f valve.Frame[*demux.Sample]) {
	if p.sched != nil {
		for _, e := range p.sched.Due(f.Timestamp) {
			p.setOpen(e.Action == schedule.ActionOpen, "schedule", zap.Duration("at", e.At))
		}
	}
	if p.cues != nil && f.Payload.HasPTS {
		for _, c := range p.cues.Due(f.Payload.PTS) {
			p.setOpen(c.Open, "scte35", zap.Uint32("event_id", c.EventID))
		}
	}
}

func (p *Pipeline) setOpen(open bool, source string, fields ...zap.Field) {
	p.logger.Debug("valve control", append(fields, zap.String("source", source), zap.Bool("open", open))...)
	p.valve.SetOpen(open)
}

func (p *Pipeline) onFlush(r valve.FlushReport) {
	p.jp.PrintFlush(r, p.o.ShowFlushes)
}

func (p *Pipeline) recordForwarded(f valve.Frame[*demux.Sample]) {
	if p.stats != nil {
		p.stats.Add(f.Payload, f.Keyframe)
	}
}

func (p *Pipeline) report() error {
	if p.stats != nil {
		p.jp.PrintStatistics(*p.stats, p.o.ShowStatistics)
	}
	p.jp.PrintValve(p.valve.Settings(), p.valve.Stats(), p.o.ShowStatistics)
	if p.o.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(p.o.MetricsFile, p.reg); err != nil {
			return fmt.Errorf("writing metrics %w", err)
		}
	}
	return p.jp.Error()
}
