// Package skills provides the read-only team-skills directory consumed by the
// prompt assembler. The directory maps a shared user key to an identifier,
// a soft-skills list, and hard skills grouped by programming and tools.
package skills

import "context"

// HardSkills groups a user's hard skills.
type HardSkills struct {
	Programming []string `json:"programming"`
	Tools       []string `json:"tools"`
}

// Record is the full team-skills snapshot. All three maps are keyed by the
// same user key.
type Record struct {
	Identifiers map[string]string     `json:"user_id"`
	Soft        map[string][]string   `json:"soft_skills"`
	Hard        map[string]HardSkills `json:"hard_skills"`
}

// Empty reports whether the record carries no users at all.
func (r *Record) Empty() bool {
	return r == nil || len(r.Identifiers) == 0
}

// Directory is the lookup interface for team skills.
type Directory interface {
	// Lookup returns the current team-skills record.
	Lookup(ctx context.Context) (*Record, error)

	// Close releases any resources held by the directory.
	Close() error
}
