// Package house defines the competing teams of the house points competition.
package house

import (
	"strings"
)

// House is a team that students belong to for the length of their enrollment.
// Houses are reference data: created once at setup, never deleted.
type House struct {
	ID    int64
	Name  string
	Color string
}

// Defaults are the houses seeded by setup when the ledger is empty.
func Defaults() []House {
	return []House{
		{Name: "Athena", Color: "#6A0DAD"},
		{Name: "Poseidon", Color: "#1E90FF"},
		{Name: "Artemis", Color: "#2E8B57"},
		{Name: "Apollo", Color: "#FFB300"},
	}
}

// FindByName returns the house with the given name, ignoring case.
func FindByName(houses []House, name string) (House, bool) {
	for _, h := range houses {
		if strings.EqualFold(h.Name, strings.TrimSpace(name)) {
			return h, true
		}
	}
	return House{}, false
}

// Index maps houses by ID.
func Index(houses []House) map[int64]House {
	m := make(map[int64]House, len(houses))
	for _, h := range houses {
		m[h.ID] = h
	}
	return m
}
