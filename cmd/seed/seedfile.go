package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/iliyamo/ticket-ledger/internal/wallet"
)

// SeedFile lists events to create as one organizer.
type SeedFile struct {
	Organizer string      `yaml:"organizer"`
	Events    []SeedEvent `yaml:"events"`
}

// SeedEvent mirrors the POST /v1/events body plus the validators to grant.
type SeedEvent struct {
	Name            string    `yaml:"name"`
	StartsAt        time.Time `yaml:"starts_at"`
	Location        string    `yaml:"location"`
	BasePrice       uint64    `yaml:"base_price"`
	MaxResaleFactor uint64    `yaml:"max_resale_factor"`
	Capacity        uint64    `yaml:"capacity"`
	MetadataCID     string    `yaml:"metadata_cid"`
	MaxPerWallet    uint64    `yaml:"max_per_wallet"`
	Cooldown        string    `yaml:"cooldown"`
	Validators      []string  `yaml:"validators"`
}

// loadSeedFile reads path, expanding ${VAR} references first.
func loadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var f SeedFile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &f); err != nil {
		return nil, fmt.Errorf("parse seed yaml: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("validate seed file: %w", err)
	}
	return &f, nil
}

func (f *SeedFile) validate() error {
	if _, err := wallet.Parse(f.Organizer); err != nil {
		return fmt.Errorf("organizer: %w", err)
	}
	if len(f.Events) == 0 {
		return fmt.Errorf("no events")
	}
	for i, ev := range f.Events {
		if ev.Name == "" {
			return fmt.Errorf("events[%d]: name is required", i)
		}
		if ev.StartsAt.IsZero() {
			return fmt.Errorf("events[%d]: starts_at is required", i)
		}
		if _, err := ev.cooldown(); err != nil {
			return fmt.Errorf("events[%d]: cooldown: %w", i, err)
		}
		for _, v := range ev.Validators {
			if _, err := wallet.Parse(v); err != nil {
				return fmt.Errorf("events[%d]: validator %q: %w", i, v, err)
			}
		}
	}
	return nil
}

func (ev SeedEvent) cooldown() (time.Duration, error) {
	if ev.Cooldown == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(ev.Cooldown)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", d)
	}
	return d, nil
}

// requestBody is the JSON body of POST /v1/events.
func (ev SeedEvent) requestBody() map[string]any {
	cd, _ := ev.cooldown()
	return map[string]any{
		"name":              ev.Name,
		"starts_at":         ev.StartsAt.UTC(),
		"location":          ev.Location,
		"base_price":        ev.BasePrice,
		"max_resale_factor": ev.MaxResaleFactor,
		"capacity":          ev.Capacity,
		"metadata_cid":      ev.MetadataCID,
		"max_per_wallet":    ev.MaxPerWallet,
		"cooldown_seconds":  uint64(cd / time.Second),
	}
}
