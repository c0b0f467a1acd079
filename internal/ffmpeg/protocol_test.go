package ffmpeg

import "testing"

func TestFormatURL(t *testing.T) {
	table := DefaultProtocols()

	tests := []struct {
		protocol Protocol
		address  string
		port     string
		want     string
	}{
		{ProtocolSRT, "10.0.0.5", "9999", "srt://10.0.0.5:9999?mode=listener"},
		{ProtocolRTSP, "192.168.1.10", "9000", "rtsp://192.168.1.10:9000/stream"},
		{ProtocolRTMP, "172.16.0.2", "1935", "rtmp://172.16.0.2:1935/live"},
		{ProtocolRTP, "192.168.0.7", "5004", "rtp://192.168.0.7:5004"},
		{ProtocolRTSP, "media.local", "8554", "rtsp://media.local:8554/stream"},
	}

	for _, tt := range tests {
		t.Run(string(tt.protocol), func(t *testing.T) {
			got, err := FormatURL(table, tt.protocol, tt.address, tt.port)
			if err != nil {
				t.Fatalf("FormatURL() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("FormatURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatURLPortVerbatim(t *testing.T) {
	got, err := FormatURL(DefaultProtocols(), ProtocolRTP, "10.0.0.1", "05004")
	if err != nil {
		t.Fatalf("FormatURL() error = %v", err)
	}
	if got != "rtp://10.0.0.1:05004" {
		t.Errorf("port should be inserted verbatim, got %q", got)
	}
}

func TestFormatURLUnknownProtocol(t *testing.T) {
	if _, err := FormatURL(DefaultProtocols(), Protocol("HLS"), "10.0.0.1", "80"); err == nil {
		t.Error("expected error for unknown protocol")
	}
}

func TestParseProtocol(t *testing.T) {
	tests := []struct {
		in      string
		want    Protocol
		wantErr bool
	}{
		{"SRT", ProtocolSRT, false},
		{"srt", ProtocolSRT, false},
		{" rtmp ", ProtocolRTMP, false},
		{"Rtsp", ProtocolRTSP, false},
		{"rtp", ProtocolRTP, false},
		{"hls", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProtocol(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseProtocol(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseProtocol(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDefaultProtocolsInLockstep(t *testing.T) {
	table := DefaultProtocols()
	if err := table.Validate(); err != nil {
		t.Fatalf("default table invalid: %v", err)
	}
	for _, p := range []Protocol{ProtocolSRT, ProtocolRTSP, ProtocolRTMP, ProtocolRTP} {
		if _, err := table.Lookup(p); err != nil {
			t.Errorf("protocol %s missing from default table", p)
		}
	}
	if got := len(table.Protocols()); got != 4 {
		t.Errorf("expected 4 protocols, got %d", got)
	}
}

func TestValidateRejectsHalfDefinedEntries(t *testing.T) {
	table := ProtocolTable{ProtocolSRT: {URLTemplate: "srt://{address}:{port}"}}
	if err := table.Validate(); err == nil {
		t.Error("expected error for entry without format")
	}

	table = ProtocolTable{ProtocolSRT: {Format: "mpegts"}}
	if err := table.Validate(); err == nil {
		t.Error("expected error for entry without url template")
	}

	if err := (ProtocolTable{}).Validate(); err == nil {
		t.Error("expected error for empty table")
	}
}

func TestMerge(t *testing.T) {
	base := DefaultProtocols()
	merged, err := base.Merge(map[string]ProtocolSpec{
		"srt": {URLTemplate: "srt://{address}:{port}?mode=listener&latency=200000"},
	})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	srt := merged[ProtocolSRT]
	if srt.URLTemplate != "srt://{address}:{port}?mode=listener&latency=200000" {
		t.Errorf("url template not overridden: %q", srt.URLTemplate)
	}
	if srt.Format != "mpegts" {
		t.Errorf("format should be kept when override is empty, got %q", srt.Format)
	}
	if base[ProtocolSRT].URLTemplate != "srt://{address}:{port}?mode=listener" {
		t.Error("Merge must not modify the receiver")
	}

	if _, err := base.Merge(map[string]ProtocolSpec{"webrtc": {Format: "whip"}}); err == nil {
		t.Error("expected error for unknown protocol override")
	}
}
