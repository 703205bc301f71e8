package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFederation(t *testing.T) {
	t.Parallel()

	for _, fed := range Federations() {
		got, err := ParseFederation(string(fed))
		require.NoError(t, err)
		assert.Equal(t, fed, got)
	}

	_, err := ParseFederation("uiaa")
	require.ErrorIs(t, err, ErrUnknownFederation)

	// Matching is exact, not case-folded.
	_, err = ParseFederation("IFSC")
	require.ErrorIs(t, err, ErrUnknownFederation)

	_, err = ParseFederation("")
	require.ErrorIs(t, err, ErrUnknownFederation)
}

func TestProfileURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://ifsc.results.info/athlete/12345", ProfileURL(FederationIFSC, 12345))
	assert.Equal(t, "https://dav.results.info/athlete/7", ProfileURL(FederationDAV, 7))
}
