// Package window builds the analysis windows used for spectral framing.
package window
