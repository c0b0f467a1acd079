package session

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/smazurov/filecast/internal/ffmpeg"
)

// Port bounds accepted by Start.
const (
	MinPort = 1
	MaxPort = 65535
)

// Request asks the controller to stream a local file. Port is text as the
// user typed it; it is validated and then inserted into the URL verbatim.
type Request struct {
	SourcePath string
	Protocol   string
	Address    string
	Port       string
}

// validated is a Request that passed validation.
type validated struct {
	source   string
	protocol ffmpeg.Protocol
	address  string
	port     string
}

func validate(req Request, table ffmpeg.ProtocolTable) (*validated, error) {
	protocol, err := ffmpeg.ParseProtocol(req.Protocol)
	if err != nil {
		return nil, &ValidationError{Field: FieldProtocol, Reason: fmt.Sprintf("unsupported protocol %q", req.Protocol)}
	}
	if _, err := table.Lookup(protocol); err != nil {
		return nil, &ValidationError{Field: FieldProtocol, Reason: fmt.Sprintf("protocol %s is not configured", protocol)}
	}

	port := req.Port
	if err := validatePort(port); err != nil {
		return nil, err
	}

	address := strings.TrimSpace(req.Address)
	if address == "" {
		return nil, &ValidationError{Field: FieldAddress, Reason: "address is required"}
	}
	// URL templates splice the address in unbracketed, so a colon
	// (IPv6 literal or host:port) would corrupt the playback URL.
	if strings.ContainsAny(address, " /?#@:[]") {
		return nil, &ValidationError{Field: FieldAddress, Reason: fmt.Sprintf("%q is not a host name or IPv4 address", address)}
	}

	if err := validateSource(req.SourcePath); err != nil {
		return nil, err
	}

	return &validated{
		source:   req.SourcePath,
		protocol: protocol,
		address:  address,
		port:     port,
	}, nil
}

func validatePort(port string) error {
	if port == "" {
		return &ValidationError{Field: FieldPort, Reason: "port is required"}
	}
	for _, r := range port {
		if r < '0' || r > '9' {
			return &ValidationError{Field: FieldPort, Reason: fmt.Sprintf("%q is not a number", port)}
		}
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < MinPort || n > MaxPort {
		return &ValidationError{Field: FieldPort, Reason: fmt.Sprintf("%s is outside %d-%d", port, MinPort, MaxPort)}
	}
	return nil
}

func validateSource(path string) error {
	if path == "" {
		return &ValidationError{Field: FieldSource, Reason: "no video file selected"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return &ValidationError{Field: FieldSource, Reason: "file not accessible", Err: err}
	}
	if !info.Mode().IsRegular() {
		return &ValidationError{Field: FieldSource, Reason: fmt.Sprintf("%s is not a regular file", path)}
	}
	f, err := os.Open(path)
	if err != nil {
		return &ValidationError{Field: FieldSource, Reason: "file not readable", Err: err}
	}
	return f.Close()
}
