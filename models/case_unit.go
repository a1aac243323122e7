package models

import (
	"encoding/hex"
	"sort"

	"golang.org/x/crypto/blake2b"
)

// Roster is the full party list of a submission, used for captions
type Roster struct {
	Plaintiffs []Party `json:"plaintiffs"`
	Defendants []Party `json:"defendants"`
}

// CaseUnit pairs one head-of-household plaintiff with one defendant
type CaseUnit struct {
	ID        string `json:"id"`
	Index     int    `json:"index"`
	Plaintiff Party  `json:"plaintiff"`
	Defendant Party  `json:"defendant"`
	Roster    Roster `json:"-"`
}

// Household returns the head of household and the other plaintiffs in the
// same unit, in roster order. Another head of household is never a member,
// and a head with no unit has a household of one.
func (u CaseUnit) Household() []Party {
	members := make([]Party, 0, len(u.Roster.Plaintiffs))
	for _, p := range u.Roster.Plaintiffs {
		switch {
		case p.ID == u.Plaintiff.ID:
			members = append(members, p)
		case p.IsHeadOfHousehold, u.Plaintiff.Unit == "":
		case p.Unit == u.Plaintiff.Unit:
			members = append(members, p)
		}
	}
	return members
}

// Flags maps flag names to derived boolean values
type Flags map[string]bool

// Get returns the flag value; unknown names are false
func (f Flags) Get(name string) bool {
	return f[name]
}

// Names returns all flag names in sorted order
func (f Flags) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Digest returns a stable blake2b-256 fingerprint of the flag values
func (f Flags) Digest() string {
	h, _ := blake2b.New256(nil)
	for _, name := range f.Names() {
		h.Write([]byte(name))
		if f[name] {
			h.Write([]byte("=1\n"))
		} else {
			h.Write([]byte("=0\n"))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
