// Package core holds the processor settings and sample helpers shared by the
// reverb building blocks.
package core
