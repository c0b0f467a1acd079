package ffmpeg

import "fmt"

// BaseArgs returns the global flags placed before any input.
func BaseArgs(levelTags bool) []string {
	if !levelTags {
		return nil
	}
	return []string{"-hide_banner", "-loglevel", "level+info"}
}

// BuildArgs builds the ffmpeg argument vector from p. The first element is
// the binary; the rest are passed to exec without a shell, so paths with
// spaces or shell metacharacters stay a single argument.
func BuildArgs(p *Params) ([]string, error) {
	if p.SourcePath == "" {
		return nil, fmt.Errorf("source path is required")
	}
	if p.Format == "" {
		return nil, fmt.Errorf("output format is required")
	}
	if p.OutputURL == "" {
		return nil, fmt.Errorf("output url is required")
	}

	binary := p.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	codec := p.VideoCodec
	if codec == "" {
		codec = DefaultVideoCodec
	}

	args := []string{binary}
	args = append(args, BaseArgs(p.LevelTags)...)

	// Read input at native frame rate so the stream plays in real time
	args = append(args, "-re", "-i", p.SourcePath)
	args = append(args, "-c:v", codec)
	args = append(args, "-f", p.Format, p.OutputURL)
	return args, nil
}

// StreamArgs formats the argv for streaming sourcePath over protocol p to
// playbackURL using the table's output format.
func StreamArgs(table ProtocolTable, p Protocol, sourcePath, playbackURL string, base Params) ([]string, error) {
	spec, err := table.Lookup(p)
	if err != nil {
		return nil, err
	}
	base.SourcePath = sourcePath
	base.Format = spec.Format
	base.OutputURL = playbackURL
	return BuildArgs(&base)
}
