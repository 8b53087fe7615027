package occupancy_test

import (
	"fmt"

	"github.com/cwbudde/algo-css/dsp/css"
	"github.com/cwbudde/algo-css/dsp/iqio"
	"github.com/cwbudde/algo-css/measure/occupancy"
)

func ExampleAnalyze() {
	cfg := css.Config{Bandwidth: 125000, SpreadingFactor: 10, SampleRate: 500000}
	synth, err := css.New(cfg)
	if err != nil {
		panic(err)
	}

	rec := iqio.NewCollector(0)
	if err := synth.Synthesize(css.Symbol{Value: 0}, rec); err != nil {
		panic(err)
	}

	res, err := occupancy.Analyze(rec.Samples, float64(cfg.SampleRate))
	if err != nil {
		panic(err)
	}

	fmt.Println(res.FFTSize, res.Contains(125000), res.Contains(0))
	// Output: 4096 true false
}

func ExampleInstantaneousFrequency() {
	cfg := css.Config{Bandwidth: 125000, SpreadingFactor: 8, SampleRate: 1000000}
	synth, err := css.New(cfg)
	if err != nil {
		panic(err)
	}

	rec := iqio.NewCollector(0)
	if err := synth.Synthesize(css.Symbol{Value: 32}, rec); err != nil {
		panic(err)
	}

	f := occupancy.InstantaneousFrequency(rec.Samples, float64(cfg.SampleRate))
	fmt.Printf("%.0f Hz\n", f[0]-synth.FrequencyOffset())
	// Output: 15625 Hz
}
