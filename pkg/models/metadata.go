package models

// Rating is a coarse ordered assessment used by metadata attributes
// such as business value and technical risk. The zero value means
// the attribute was never set.
type Rating string

const (
	// RatingLow is the lowest assessment.
	RatingLow Rating = "low"
	// RatingMedium is a middling assessment.
	RatingMedium Rating = "medium"
	// RatingHigh is a strong assessment.
	RatingHigh Rating = "high"
	// RatingCritical is the highest assessment.
	RatingCritical Rating = "critical"
)

// Valid returns true if the rating is a known value. The empty
// string is not valid; callers treat it as unset.
func (r Rating) Valid() bool {
	switch r {
	case RatingLow, RatingMedium, RatingHigh, RatingCritical:
		return true
	default:
		return false
	}
}

// Provenance records how a generated task came to exist.
type Provenance struct {
	// Strategy is the decomposition strategy that produced the task.
	Strategy string `json:"strategy"`
	// Component is the phase or component name within the strategy.
	Component string `json:"component,omitempty"`
	// Sequence is the generation order within the batch, starting at 0.
	Sequence int `json:"sequence"`
	// SourceTaskID is the task that was decomposed.
	SourceTaskID string `json:"source_task_id,omitempty"`
}

// Metadata is the extensible attribute bag attached to every task.
// Known attributes get typed fields; anything else goes in Extra.
type Metadata struct {
	// BusinessValue is the assessed value of delivering the task.
	BusinessValue Rating `json:"business_value,omitempty"`
	// TechnicalRisk is the assessed risk of implementing the task.
	TechnicalRisk Rating `json:"technical_risk,omitempty"`
	// UserImpact is the assessed effect on end users.
	UserImpact Rating `json:"user_impact,omitempty"`
	// Domain is the functional area the task belongs to.
	Domain string `json:"domain,omitempty"`
	// Generated records decomposition provenance, nil for manual tasks.
	Generated *Provenance `json:"generated,omitempty"`
	// Extra holds forward-compatible attributes with no typed field.
	Extra map[string]string `json:"extra,omitempty"`
}

// Clone returns a deep copy of the metadata.
func (m Metadata) Clone() Metadata {
	c := m
	if m.Generated != nil {
		g := *m.Generated
		c.Generated = &g
	}
	if m.Extra != nil {
		c.Extra = make(map[string]string, len(m.Extra))
		for k, v := range m.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// IsEmpty returns true if no attribute has been set.
func (m Metadata) IsEmpty() bool {
	return m.BusinessValue == "" && m.TechnicalRisk == "" && m.UserImpact == "" &&
		m.Domain == "" && m.Generated == nil && len(m.Extra) == 0
}
