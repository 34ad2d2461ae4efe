package factory

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfid_llrp_go/internal/bri"
	"rfid_llrp_go/sdk"
)

func TestNewPicksBackend(t *testing.T) {
	cases := []struct {
		protocol string
		check    func(sdk.Reader) bool
	}{
		{"", func(r sdk.Reader) bool { _, ok := r.(*sdk.Client); return ok }},
		{"llrp", func(r sdk.Reader) bool { _, ok := r.(*sdk.Client); return ok }},
		{" LLRP ", func(r sdk.Reader) bool { _, ok := r.(*sdk.Client); return ok }},
		{"bri", func(r sdk.Reader) bool { _, ok := r.(*bri.Client); return ok }},
	}
	for _, tc := range cases {
		r, err := New(sdk.ReaderConfig{Endpoint: sdk.Endpoint{Host: "reader.local"}, Protocol: tc.protocol})
		require.NoError(t, err, tc.protocol)
		assert.True(t, tc.check(r), "protocol %q", tc.protocol)
		assert.Equal(t, sdk.StateIdle, r.State())
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(sdk.ReaderConfig{Endpoint: sdk.Endpoint{Host: "reader.local"}, Protocol: "snmp"})
	assert.Equal(t, ErrUnknownProtocol, errors.Cause(err))

	_, err = New(sdk.ReaderConfig{Protocol: "llrp"})
	assert.Error(t, err)
}

func TestProtocols(t *testing.T) {
	assert.ElementsMatch(t, []string{"llrp", "bri"}, Protocols())
}
