package types

import "fmt"

// VenueTimeoutError wraps a venue call that exceeded its deadline. No partial
// state may be assumed committed when this is returned.
type VenueTimeoutError struct {
	Call string
	Err  error
}

func (e *VenueTimeoutError) Error() string {
	return fmt.Sprintf("venue call %s timed out: %v", e.Call, e.Err)
}

func (e *VenueTimeoutError) Unwrap() error {
	return e.Err
}

// VenueRejectionError carries a failure the venue reported for a call,
// verbatim. Write paths surface it as-is and never guess at partial
// application.
type VenueRejectionError struct {
	Call   string
	Detail string
}

func (e *VenueRejectionError) Error() string {
	return fmt.Sprintf("venue rejected %s: %s", e.Call, e.Detail)
}
