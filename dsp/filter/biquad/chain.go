package biquad

// Chain runs sections in series.
type Chain struct {
	sections []Section
}

// NewChain returns a cleared cascade of the given sections.
func NewChain(coeffs ...Coefficients) *Chain {
	c := &Chain{sections: make([]Section, len(coeffs))}
	for i, k := range coeffs {
		c.sections[i].Coefficients = k
	}
	return c
}

// Len returns the number of sections.
func (c *Chain) Len() int { return len(c.sections) }

// ProcessSample filters one sample through every section.
func (c *Chain) ProcessSample(x float64) float64 {
	for i := range c.sections {
		x = c.sections[i].ProcessSample(x)
	}
	return x
}

// ProcessBlock filters buf in place. Identity sections are skipped.
func (c *Chain) ProcessBlock(buf []float64) {
	for i := range c.sections {
		if c.sections[i].IsIdentity() {
			continue
		}
		c.sections[i].ProcessBlock(buf)
	}
}

// Reset clears every section.
func (c *Chain) Reset() {
	for i := range c.sections {
		c.sections[i].Reset()
	}
}

// MagnitudeDB returns the cascade magnitude at freq Hz in decibels.
func (c *Chain) MagnitudeDB(freq, sampleRate float64) float64 {
	var db float64
	for i := range c.sections {
		db += c.sections[i].MagnitudeDB(freq, sampleRate)
	}
	return db
}
