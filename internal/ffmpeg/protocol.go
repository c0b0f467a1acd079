package ffmpeg

import (
	"fmt"
	"slices"
	"strings"
)

// Protocol is a supported streaming protocol.
type Protocol string

// Supported protocols.
const (
	ProtocolSRT  Protocol = "SRT"
	ProtocolRTSP Protocol = "RTSP"
	ProtocolRTMP Protocol = "RTMP"
	ProtocolRTP  Protocol = "RTP"
)

// Template placeholders substituted by FormatURL.
const (
	PlaceholderAddress = "{address}"
	PlaceholderPort    = "{port}"
)

// ProtocolSpec ties a protocol to its playback URL template and the ffmpeg
// output format (-f) that muxes for it. Keeping both in one record keeps the
// URL and command tables in lockstep.
type ProtocolSpec struct {
	URLTemplate string `toml:"url" json:"url_template" doc:"Playback URL template"`
	Format      string `toml:"format" json:"format" doc:"ffmpeg output format"`
}

// ProtocolTable maps every supported protocol to its spec.
type ProtocolTable map[Protocol]ProtocolSpec

// DefaultProtocols returns the built-in protocol table.
func DefaultProtocols() ProtocolTable {
	return ProtocolTable{
		ProtocolSRT:  {URLTemplate: "srt://{address}:{port}?mode=listener", Format: "mpegts"},
		ProtocolRTSP: {URLTemplate: "rtsp://{address}:{port}/stream", Format: "rtsp"},
		ProtocolRTMP: {URLTemplate: "rtmp://{address}:{port}/live", Format: "flv"},
		ProtocolRTP:  {URLTemplate: "rtp://{address}:{port}", Format: "rtp"},
	}
}

// ParseProtocol parses a protocol name case-insensitively.
func ParseProtocol(name string) (Protocol, error) {
	p := Protocol(strings.ToUpper(strings.TrimSpace(name)))
	switch p {
	case ProtocolSRT, ProtocolRTSP, ProtocolRTMP, ProtocolRTP:
		return p, nil
	}
	return "", fmt.Errorf("unknown protocol %q", name)
}

// Protocols returns the table's protocols in a stable order.
func (t ProtocolTable) Protocols() []Protocol {
	out := make([]Protocol, 0, len(t))
	for p := range t {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Lookup returns the spec for p.
func (t ProtocolTable) Lookup(p Protocol) (ProtocolSpec, error) {
	spec, ok := t[p]
	if !ok {
		return ProtocolSpec{}, fmt.Errorf("unknown protocol %q", p)
	}
	return spec, nil
}

// Validate checks that every entry defines both a URL template and a format.
func (t ProtocolTable) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("protocol table is empty")
	}
	for _, p := range t.Protocols() {
		spec := t[p]
		if spec.URLTemplate == "" {
			return fmt.Errorf("protocol %s: missing url template", p)
		}
		if spec.Format == "" {
			return fmt.Errorf("protocol %s: missing output format", p)
		}
	}
	return nil
}

// Merge returns a copy of t with non-empty fields from overrides applied.
// Overrides for unknown protocol names are rejected.
func (t ProtocolTable) Merge(overrides map[string]ProtocolSpec) (ProtocolTable, error) {
	merged := make(ProtocolTable, len(t))
	for p, spec := range t {
		merged[p] = spec
	}
	for name, o := range overrides {
		p, err := ParseProtocol(name)
		if err != nil {
			return nil, err
		}
		spec := merged[p]
		if o.URLTemplate != "" {
			spec.URLTemplate = o.URLTemplate
		}
		if o.Format != "" {
			spec.Format = o.Format
		}
		merged[p] = spec
	}
	return merged, nil
}

// FormatURL substitutes address and port into the protocol's URL template.
// The port is inserted verbatim; no reachability checks are made.
func FormatURL(table ProtocolTable, p Protocol, address, port string) (string, error) {
	spec, err := table.Lookup(p)
	if err != nil {
		return "", err
	}
	r := strings.NewReplacer(PlaceholderAddress, address, PlaceholderPort, port)
	return r.Replace(spec.URLTemplate), nil
}
