package compiler

import "fmt"

// Input is one ffmpeg input declaration. Args are the per-input options that
// precede -i (for example -loop/-t on looping image inputs).
type Input struct {
	Path string
	Args []string
}

// Program is the compiled, ordered description of processing stages handed to
// the encoding engine. It is plain data: the compiler fills it, the encoder
// turns it into an argv. Given identical compile inputs the whole struct,
// FilterComplex text included, is byte-identical.
type Program struct {
	Inputs        []Input
	FilterComplex string

	// VideoLabel is always set; AudioLabel is empty when no item contributed
	// an audio sub-chain.
	VideoLabel string
	AudioLabel string

	VideoCodec   string
	AudioCodec   string
	AudioBitrate string
	Preset       string
	CRF          int
	PixelFormat  string
	FrameRate    int

	// Duration is the hard output cap (-t); it guards against filter-stage
	// drift producing a longer file than the timeline declares.
	Duration float64
}

// Args assembles the deterministic ffmpeg argument list for the program,
// excluding the binary name and the output path.
func (p *Program) Args(outputPath string) []string {
	args := make([]string, 0, 32)
	for _, in := range p.Inputs {
		args = append(args, in.Args...)
		args = append(args, "-i", in.Path)
	}
	args = append(args, "-filter_complex", p.FilterComplex)
	args = append(args, "-map", "["+p.VideoLabel+"]")
	if p.AudioLabel != "" {
		args = append(args, "-map", "["+p.AudioLabel+"]")
		args = append(args, "-c:a", p.AudioCodec, "-b:a", p.AudioBitrate)
	}
	args = append(args,
		"-c:v", p.VideoCodec,
		"-preset", p.Preset,
		"-crf", fmt.Sprintf("%d", p.CRF),
		"-pix_fmt", p.PixelFormat,
		"-r", fmt.Sprintf("%d", p.FrameRate),
		"-t", secs(p.Duration),
		"-movflags", "+faststart",
		outputPath,
	)
	return args
}
