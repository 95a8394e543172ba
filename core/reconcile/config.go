package reconcile

import (
	"fmt"
	"time"
)

const (
	DestinationCommunity   = "community"
	DestinationObjectStore = "objectstore"
)

// Config holds the run-level knobs of a sync.
type Config struct {
	// DryRun reports what would be uploaded without uploading.
	DryRun bool `mapstructure:"dry_run" default:"false"`
	// Destination selects the content store (community, objectstore).
	Destination string `mapstructure:"destination" default:"community"`
	// UnknownCodePolicy is strict, tolerate-all or tolerate-prefixes.
	UnknownCodePolicy string `mapstructure:"unknown_code_policy" default:"strict"`
	// UnknownCodePrefixes lists the prefixes tolerated by tolerate-prefixes.
	UnknownCodePrefixes []string `mapstructure:"unknown_code_prefixes" default:""`
	// ItemDelayMin is the lower bound of the random delay before each exam.
	ItemDelayMin time.Duration `mapstructure:"item_delay_min" default:"1s"`
	// ItemDelayMax is the upper bound of the random delay before each exam.
	ItemDelayMax time.Duration `mapstructure:"item_delay_max" default:"5s"`
	// PageDelay is the fixed delay between catalog pages.
	PageDelay time.Duration `mapstructure:"page_delay" default:"15s"`
	// KnownBad lists extra hex fingerprints to always skip.
	KnownBad []string `mapstructure:"known_bad" default:""`
}

// IsValidDestination checks if the configured destination is supported.
func (c Config) IsValidDestination() bool {
	switch c.Destination {
	case DestinationCommunity, DestinationObjectStore:
		return true
	default:
		return false
	}
}

// Options turns the configuration into engine options. startPage is passed through.
func (c Config) Options(startPage int) (Options, error) {
	policy, err := PolicyFromConfig(c.UnknownCodePolicy, c.UnknownCodePrefixes)
	if err != nil {
		return Options{}, err
	}
	knownBad, err := DefaultKnownBadSet(c.KnownBad...)
	if err != nil {
		return Options{}, fmt.Errorf("known bad list: %w", err)
	}
	if c.ItemDelayMin < 0 || c.ItemDelayMax < 0 || c.PageDelay < 0 {
		return Options{}, fmt.Errorf("delays must not be negative")
	}
	return Options{
		DryRun:    c.DryRun,
		Policy:    policy,
		KnownBad:  knownBad,
		Pacer:     NewPacer(c.ItemDelayMin, c.ItemDelayMax, c.PageDelay),
		StartPage: startPage,
	}, nil
}
