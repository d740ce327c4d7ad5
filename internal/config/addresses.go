package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Addresses holds the listen addresses of the three network surfaces.
// Values come from the environment and may be overridden by flags in main.
type Addresses struct {
	// EventListen is the TCP address the broadcast stream listens on.
	EventListen string `env:"TABLETOP_EVENT_LISTEN" envDefault:"127.0.0.1:8765"`

	// TrackListen is the UDP address canonical tracking records arrive on.
	TrackListen string `env:"TABLETOP_TRACK_LISTEN" envDefault:"0.0.0.0:3333"`

	// HandListen is the UDP address hand-frame records arrive on.
	HandListen string `env:"TABLETOP_HAND_LISTEN" envDefault:"127.0.0.1:3334"`

	// AdminListen is the HTTP address of the admin surface.
	AdminListen string `env:"TABLETOP_ADMIN_LISTEN" envDefault:"127.0.0.1:8080"`
}

// LoadAddresses reads Addresses from the environment.
func LoadAddresses() (Addresses, error) {
	a, err := env.ParseAs[Addresses]()
	if err != nil {
		return Addresses{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return a, nil
}
