package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-css/dsp/css"
	"github.com/cwbudde/algo-css/dsp/frame"
	"github.com/cwbudde/algo-css/dsp/iqio"
	"github.com/cwbudde/algo-css/dsp/window"
	"github.com/cwbudde/algo-css/measure/occupancy"
	"github.com/cwbudde/algo-css/stream"
)

// outputs collects the sinks of one run and releases them in reverse order.
type outputs struct {
	sinks   []css.Sink
	closers []func() error
}

func (o *outputs) add(sink css.Sink, closers ...func() error) {
	o.sinks = append(o.sinks, sink)
	o.closers = append(o.closers, closers...)
}

func (o *outputs) close() error {
	var first error
	for i := len(o.closers) - 1; i >= 0; i-- {
		if err := o.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	o.closers = nil
	return first
}

func run(ctx context.Context, cfg Config, log logrus.FieldLogger) (err error) {
	synth, err := css.New(cfg.Radio)
	if err != nil {
		return errors.Wrap(err, "create synthesizer")
	}
	builder, err := frame.NewBuilder(synth, cfg.Frame.Layout)
	if err != nil {
		return errors.Wrap(err, "create frame builder")
	}

	payload := cfg.Frame.Payload
	if len(payload) == 0 {
		payload = frame.RandomPayload(cfg.Radio, cfg.Frame.PayloadLength, cfg.Frame.Seed)
	}

	log.WithFields(logrus.Fields{
		"bandwidth":   cfg.Radio.Bandwidth,
		"sf":          cfg.Radio.SpreadingFactor,
		"sample_rate": cfg.Radio.SampleRate,
		"offset_hz":   synth.FrequencyOffset(),
	}).Info("synthesizer ready")
	log.WithField("payload", payload).Debug("frame payload")

	var out outputs
	defer func() {
		if cerr := out.close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close outputs")
		}
	}()

	if err := openFiles(&out, cfg); err != nil {
		return err
	}

	var report *iqio.Collector
	if cfg.Output.Report {
		report = iqio.NewCollector(synth.SamplesPerSymbol())
		out.add(report)
	}

	if cfg.Serve.Addr != "" {
		if err := serve(ctx, &out, cfg.Serve, log); err != nil {
			return err
		}
	}

	start := time.Now()
	if err := builder.Write(payload, iqio.Tee(out.sinks...)); err != nil {
		return errors.Wrap(err, "write frame")
	}

	log.WithFields(logrus.Fields{
		"symbols":  builder.Layout().HeaderLength() + len(payload),
		"samples":  builder.NumSamples(len(payload)),
		"air_time": builder.Duration(len(payload)),
		"elapsed":  time.Since(start),
	}).Info("frame written")

	if report != nil {
		logOccupancy(report.Samples, cfg.Radio, cfg.Output.ReportWindow, log)
	}

	return nil
}

func openFiles(out *outputs, cfg Config) error {
	if cfg.Output.Path != "" {
		format, err := iqio.ParseFormat(cfg.Output.Format)
		if err != nil {
			return errors.Wrap(err, "output format")
		}
		f, err := os.Create(cfg.Output.Path)
		if err != nil {
			return errors.Wrap(err, "create output")
		}
		w := iqio.NewWriter(f, format)
		out.add(w, f.Close, w.Flush)
	}

	if cfg.Output.WAV != "" {
		f, err := os.Create(cfg.Output.WAV)
		if err != nil {
			return errors.Wrap(err, "create wav")
		}
		w, err := iqio.NewWAVWriter(f, cfg.Radio.SampleRate)
		if err != nil {
			f.Close()
			return errors.Wrap(err, "write wav header")
		}
		out.add(w, f.Close, w.Close)
	}

	if cfg.Output.Parquet != "" {
		f, err := os.Create(cfg.Output.Parquet)
		if err != nil {
			return errors.Wrap(err, "create parquet")
		}
		w, err := iqio.NewParquetWriter(f, cfg.Radio, 0)
		if err != nil {
			f.Close()
			return errors.Wrap(err, "create parquet writer")
		}
		out.add(w, f.Close, w.Close)
	}

	return nil
}

// serve starts the websocket server and blocks until the first client
// connects, the wait times out or ctx is done.
func serve(ctx context.Context, out *outputs, cfg ServeConfig, log logrus.FieldLogger) error {
	format, err := iqio.ParseFormat(cfg.Format)
	if err != nil {
		return errors.Wrap(err, "serve format")
	}

	hub := stream.NewHub(log)
	sink, err := hub.Sink(format, cfg.BlockSamples)
	if err != nil {
		return errors.Wrap(err, "stream sink")
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return errors.Wrap(err, "listen")
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, hub)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("websocket server stopped")
		}
	}()

	shutdown := func() error {
		hub.Close()

		drainCtx, cancel := context.WithTimeout(context.Background(), cfg.DrainTimeout)
		defer cancel()
		drainErr := hub.Wait(drainCtx)
		log.WithField("messages", hub.Sent()).Info("websocket stream closed")

		stopCtx, cancelStop := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancelStop()
		if err := srv.Shutdown(stopCtx); err != nil {
			return errors.Wrap(err, "shutdown websocket server")
		}
		return errors.Wrap(drainErr, "drain websocket clients")
	}
	out.add(sink, shutdown, sink.Flush)

	log.WithFields(logrus.Fields{"addr": ln.Addr().String(), "path": cfg.Path}).Info("waiting for websocket client")

	var timeout <-chan time.Time
	if cfg.WaitTimeout > 0 {
		timer := time.NewTimer(cfg.WaitTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-hub.Joined():
		return nil
	case <-timeout:
		return errors.Errorf("no websocket client within %v", cfg.WaitTimeout)
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for websocket client")
	}
}

func logOccupancy(iq []complex128, radio css.Config, windowName string, log logrus.FieldLogger) {
	win, err := window.ParseType(windowName)
	if err != nil {
		log.WithError(err).Warn("occupancy analysis failed")
		return
	}

	res, err := occupancy.Analyze(iq, float64(radio.SampleRate), occupancy.WithWindow(win))
	if err != nil {
		log.WithError(err).Warn("occupancy analysis failed")
		return
	}

	log.WithFields(logrus.Fields{
		"peak_hz":            res.PeakHz,
		"low_edge_hz":        res.LowEdgeHz,
		"high_edge_hz":       res.HighEdgeHz,
		"bandwidth_hz":       res.BandwidthHz,
		"dc_level_db":        res.DCLevelDB,
		"peak_level_db":      res.PeakLevelDB,
		"noise_bandwidth_hz": res.NoiseBandwidthHz,
		"window":             win.String(),
	}).Info("occupied band of first symbol")
}
