// Package stack decides which services a launch will run.
//
// Selection starts from the configured default set, an explicit override
// replaces it wholesale, and the web front end rides along only when asked
// for. Order is preserved because compose starts services in the order they
// are named.
package stack

import (
	"errors"
	"slices"
	"strings"
)

// ErrEmptyServices reports an explicitly supplied override that named no
// services after trimming.
var ErrEmptyServices = errors.New("service override names no services")

// Selection carries the inputs of one launch's service choice.
type Selection struct {
	Defaults []string
	// Override replaces Defaults when OverrideSet is true. Supplying an
	// override that trims down to nothing is a caller error, distinct
	// from not supplying one at all.
	Override    []string
	OverrideSet bool
	// WebService is appended when WebRequested is true and it is not
	// already part of the selection.
	WebService   string
	WebRequested bool
}

// Select resolves the final service list for a launch.
func Select(sel Selection) ([]string, error) {
	var services []string
	if sel.OverrideSet {
		services = cleanList(sel.Override)
		if len(services) == 0 {
			return nil, ErrEmptyServices
		}
	} else {
		services = cleanList(sel.Defaults)
	}

	if sel.WebRequested {
		web := strings.TrimSpace(sel.WebService)
		if web != "" && !slices.Contains(services, web) {
			services = append(services, web)
		}
	}
	return services, nil
}

func cleanList(values []string) []string {
	cleaned := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value != "" {
			cleaned = append(cleaned, value)
		}
	}
	return cleaned
}
