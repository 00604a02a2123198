// Package source defines the external data source the pipeline observes.
// The real social platform client lives behind these interfaces; rate
// limiting and backoff are the collaborator's problem, not ours.
package source

import "context"

// Account is an account discovered as a follower of the tracked handle.
type Account struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Locale string `json:"locale,omitempty"`
}

// FollowerSource produces the current follower ids for a subject.
type FollowerSource interface {
	FollowerIDs(ctx context.Context, subject string) ([]string, error)
}

// DiscoverySource lists the accounts currently following the tracked handle,
// i.e. the people asking to be tracked.
type DiscoverySource interface {
	Followers(ctx context.Context) ([]Account, error)
}
