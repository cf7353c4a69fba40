// Command fdnverb renders audio through the evolving FDN reverb.
//
// Usage:
//
//	fdnverb render [flags] input.wav output.wav
//	fdnverb impulse [flags] [--out ir.wav]
//
// Examples:
//
//	fdnverb render --rt60 2.5 --wet 0.4 vocal.wav vocal_verb.wav
//	fdnverb render --progress --tail 4 drums.wav drums_verb.wav
//	fdnverb impulse --rt60 1.5 --delays 16 --length 4 --out ir.wav
package main

import (
	"os"

	"github.com/alecthomas/kong"

	"github.com/cwbudde/algo-reverb/internal/cli"
)

var version = "0.1.0"

// Globals are the flags shared by every command.
type Globals struct {
	Verbose bool `short:"v" help:"Log progress and engine statistics."`
}

// CLI defines the command-line interface.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Show version information."`
	Render  RenderCmd        `cmd:"" help:"Render a WAV file through the reverb."`
	Impulse ImpulseCmd       `cmd:"" help:"Render and analyse an impulse response."`
}

func main() {
	var c CLI
	ctx := kong.Parse(&c,
		kong.Name("fdnverb"),
		kong.Description("Evolving feedback delay network reverb"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars{"version": version},
	)
	if err := ctx.Run(&c.Globals); err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
}
