package cycle

import "time"

// Mode selects which of the three doHarvest/getRequestDate policies a
// Cycle run applies.
type Mode string

const (
	ModeNormal  Mode = "normal"
	ModeRetry   Mode = "retry"
	ModeRefresh Mode = "refresh"
)

// epoch is the zero request date used whenever a full re-harvest is
// called for — the Unix epoch, not Go's zero time.Time, so it serializes
// as a concrete, greppable timestamp in the overview file and in logs.
var epoch = time.Unix(0, 0).UTC()

// Endpoint is the persistent per-provider record the Cycle owns.
// Invariants: Harvested <= Attempted; Attempted == Harvested iff the
// last attempt succeeded.
type Endpoint struct {
	URI                     string    `xml:"uri,attr"`
	Group                   string    `xml:"group,attr"`
	Blocked                 bool      `xml:"blocked,attr"`
	Retry                   bool      `xml:"retry,attr"`
	AllowIncrementalHarvest bool      `xml:"allowIncrementalHarvest,attr"`
	Attempted               time.Time `xml:"attempted"`
	Harvested               time.Time `xml:"harvested"`
}

// Succeeded reports whether the endpoint's last attempt was a success,
// i.e. Attempted == Harvested — the invariant tests directly.
func (e *Endpoint) Succeeded() bool {
	return e.Attempted.Equal(e.Harvested)
}

// newEndpoint builds a freshly-seen endpoint with both timestamps at
// the epoch, so it is immediately eligible for a full harvest.
func newEndpoint(uri, group string) *Endpoint {
	return &Endpoint{URI: uri, Group: group, AllowIncrementalHarvest: true, Attempted: epoch, Harvested: epoch}
}
