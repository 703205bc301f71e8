package scrape

import (
	"errors"
	"fmt"
)

// Federation identifies one governing body's results site. The set is closed:
// each federation maps to its own results host and its own age table.
type Federation string

// Supported federations.
const (
	FederationIFSC Federation = "ifsc"
	FederationDAV  Federation = "dav"
)

// ErrUnknownFederation is returned for selectors outside the closed set.
var ErrUnknownFederation = errors.New("unknown federation")

// Federations returns every supported federation.
func Federations() []Federation {
	return []Federation{FederationIFSC, FederationDAV}
}

// ParseFederation validates a CLI selector against the closed set.
func ParseFederation(raw string) (Federation, error) {
	fed := Federation(raw)
	for _, known := range Federations() {
		if fed == known {
			return fed, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFederation, raw)
}

// ProfileURL builds the athlete profile address for a federation.
func ProfileURL(fed Federation, athleteID int64) string {
	return fmt.Sprintf("https://%s.results.info/athlete/%d", fed, athleteID)
}
