// Package profile defines the subscriber profile consumed by matching. The
// profile store is read-only to this core: profiles are owned by the account
// system and treated as immutable snapshots per matching invocation.
package profile

import "context"

// Tier is the subscription plan level. It controls match volume and cadence,
// enforced by the external delivery component.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// Profile is the matching-relevant snapshot of a subscriber.
type Profile struct {
	SubscriberID string   `json:"subscriber_id"`
	Cities       []string `json:"cities,omitempty"`
	Countries    []string `json:"countries,omitempty"`
	RemoteOK     bool     `json:"remote_ok"`
	RoleFamily   string   `json:"role_family,omitempty"`
	Seniority    string   `json:"seniority,omitempty"`
	Languages    []string `json:"languages,omitempty"`
	WorkEnv      string   `json:"work_env,omitempty"`
	Tier         Tier     `json:"tier"`
}

// Store reads profiles.
type Store interface {
	Get(ctx context.Context, subscriberID string) (*Profile, error)
}
