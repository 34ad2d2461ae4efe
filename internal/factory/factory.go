// Package factory turns a reader configuration into the backend for its protocol.
package factory

import (
	"strings"

	"github.com/pkg/errors"

	"rfid_llrp_go/internal/bri"
	"rfid_llrp_go/sdk"
)

// Builder constructs a reader backend from its configuration.
type Builder func(cfg sdk.ReaderConfig) sdk.Reader

var ErrUnknownProtocol = errors.New("unknown reader protocol")

var builders = map[string]Builder{
	sdk.ProtocolLLRP: func(cfg sdk.ReaderConfig) sdk.Reader { return sdk.NewClient(cfg) },
	sdk.ProtocolBRI:  func(cfg sdk.ReaderConfig) sdk.Reader { return bri.NewClient(cfg) },
}

// New builds the reader for cfg.Protocol; an empty protocol means LLRP.
func New(cfg sdk.ReaderConfig) (sdk.Reader, error) {
	protocol := strings.ToLower(strings.TrimSpace(cfg.Protocol))
	if protocol == "" {
		protocol = sdk.ProtocolLLRP
	}
	build, ok := builders[protocol]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownProtocol, "%q", cfg.Protocol)
	}
	if cfg.Endpoint.Host == "" {
		return nil, errors.New("reader host is required")
	}
	cfg.Protocol = protocol
	return build(cfg), nil
}

// Protocols lists the supported protocol names.
func Protocols() []string {
	return []string{sdk.ProtocolLLRP, sdk.ProtocolBRI}
}
