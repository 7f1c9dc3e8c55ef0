package domain

import "fmt"

// ProviderHTTPError carries the status code and a snippet of the response body
// from a failed provider call. It is caught inside the dispatch loop and never
// propagated raw to callers.
type ProviderHTTPError struct {
	Provider Provider
	Status   int
	Body     string
}

func (e *ProviderHTTPError) Error() string {
	return fmt.Sprintf("%s error (%d): %s", e.Provider, e.Status, e.Body)
}
