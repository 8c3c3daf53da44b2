// Package ffmpeg builds and observes ffmpeg publisher invocations.
// The command-line contract (input file, publish URL, loop directive) is
// isolated here so the exact encoder invocation can change without touching
// registry or API logic.
package ffmpeg

import (
	"fmt"
	"strings"
)

// LoopForever requests infinite repetition of the source file.
// A loop count of 0 plays the file once; N > 0 plays it N+1 times,
// matching ffmpeg's -stream_loop semantics.
const LoopForever = -1

// PublishParams describes one publisher invocation.
type PublishParams struct {
	// Input is the absolute path to the source video file.
	Input string

	// OutputURL is the RTSP publish URL on the media server.
	OutputURL string

	// LoopCount follows the -stream_loop contract: -1 forever, 0 once,
	// N > 0 for N additional repeats.
	LoopCount int

	// ExtraArgs are appended before the output URL, after all generated args.
	ExtraArgs []string
}

// BuildPublishCommand builds the ffmpeg command that reads a video file at
// native frame rate and republishes it to the media server over RTSP.
// The stream is copied, not transcoded.
func BuildPublishCommand(p *PublishParams) string {
	var cmd strings.Builder

	cmd.WriteString("ffmpeg -nostdin -hide_banner -loglevel level+info")

	// -re reads at native frame rate; without it the whole file is pushed
	// as fast as the media server accepts it.
	cmd.WriteString(" -re")

	if p.LoopCount != 0 {
		cmd.WriteString(fmt.Sprintf(" -stream_loop %d", p.LoopCount))
	}

	cmd.WriteString(" -i " + quoteArg(p.Input))
	cmd.WriteString(" -c copy")

	for _, arg := range p.ExtraArgs {
		cmd.WriteString(" " + arg)
	}

	cmd.WriteString(" -f rtsp -rtsp_transport tcp ")
	cmd.WriteString(p.OutputURL)

	return cmd.String()
}

// quoteArg quotes an argument when it contains spaces so the command
// string survives tokenization.
func quoteArg(s string) string {
	if strings.ContainsAny(s, " \t") {
		return `"` + s + `"`
	}
	return s
}
