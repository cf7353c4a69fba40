// Package reverb is an evolving stereo reverberator built from several
// feedback-delay-network voices.
//
// A Unit is one voice: input tone shaping, parallel velvet-noise diffusers
// mixed by a Hadamard transform into an fdn.Network, a pitch modulator that
// smears the feedback spectrum, output tone shaping and a level
// normalisation derived from RT60 and diffusion.
//
// The Orchestrator keeps one Unit Active and lets previously active units
// fade out. A spectral-correlation measurement between the dry input and the
// Active unit's output decides when to hand over to the next unit, so the
// reverb character changes over time without jump cuts.
//
// Engine wraps the Orchestrator with a dry/wet mix, goroutine-safe setters,
// bounded-chunk processing and NaN protection:
//
//	e, err := reverb.NewEngine(48000, 16, 0.02, 0.8, 16, 256)
//	if err != nil {
//		return err
//	}
//	defer e.Destroy()
//	_ = e.SetRT60Decay(2.5)
//	err = e.ProcessStereo(inL, inR, outL, outR, len(inL), false)
package reverb
