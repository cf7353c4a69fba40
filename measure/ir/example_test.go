package ir_test

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-reverb/measure/ir"
)

func ExampleAnalyzer_Analyze() {
	const fs = 48000.0
	// 60 dB per second.
	resp := make([]float64, 3*int(fs))
	for i := range resp {
		resp[i] = math.Pow(10, -3*float64(i)/fs)
	}

	m, err := ir.NewAnalyzer(fs).Analyze(resp)
	if err != nil {
		panic(err)
	}
	idx, err := ir.EnvelopeCrossing(resp, 480, 60)
	if err != nil {
		panic(err)
	}
	fmt.Printf("RT60 %.2f s, EDT %.2f s, -60 dB after %.2f s\n", m.RT60, m.EDT, float64(idx)/fs)

	// Output:
	// RT60 1.00 s, EDT 1.00 s, -60 dB after 1.00 s
}
