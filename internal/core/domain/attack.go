package domain

import "time"

// AttackObject is one entry of the ATT&CK reference catalog.
// Catalog rows are created by the attack-data load and never mutated by the
// mapping pipeline; Mappings reference them by ID without owning them.
type AttackObject struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	AttackID   string    `json:"attack_id"`  // e.g. "T1552.005"
	AttackURL  string    `json:"attack_url"` // canonical attack.mitre.org URL
	Matrix     string    `json:"matrix"`     // e.g. "mitre-attack"
	AttackType string    `json:"attack_type"`
	StixType   string    `json:"stix_type"` // e.g. "attack-pattern"
	StixID     string    `json:"stix_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Attack object types as stored in AttackType.
const (
	AttackTypeTechnique    = "technique"
	AttackTypeSubTechnique = "sub-technique"
	AttackTypeTactic       = "tactic"
)

// IsSubTechnique reports whether the object is a sub-technique
// (attack id of the form "T1552.005").
func (a *AttackObject) IsSubTechnique() bool {
	return a.AttackType == AttackTypeSubTechnique
}
