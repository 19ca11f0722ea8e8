// Package models defines shared data types for the application.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ID is an opaque, stable identifier. The backend emits both numeric and
// string identifiers, so it decodes from either.
type ID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// OfferKind is the closed set of offer types.
type OfferKind string

// OfferKind constants define the supported offer types.
const (
	OfferFullTime   OfferKind = "full_time"
	OfferInternship OfferKind = "internship"
	OfferFreelance  OfferKind = "freelance"
	OfferVolunteer  OfferKind = "volunteer"
)

// OfferKinds lists every offer kind in display order.
var OfferKinds = []OfferKind{OfferFullTime, OfferInternship, OfferFreelance, OfferVolunteer}

// ParseOfferKind maps backend spellings onto an OfferKind.
func ParseOfferKind(s string) (OfferKind, bool) {
	switch normalizeToken(s) {
	case "full_time", "fulltime", "cdi", "cdd", "emploi", "job", "employment":
		return OfferFullTime, true
	case "internship", "stage", "intern":
		return OfferInternship, true
	case "freelance", "mission", "contract":
		return OfferFreelance, true
	case "volunteer", "benevolat", "volontariat":
		return OfferVolunteer, true
	}
	return "", false
}

// UnmarshalJSON normalizes known spellings and keeps unknown ones verbatim.
func (k *OfferKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if parsed, ok := ParseOfferKind(s); ok {
		*k = parsed
		return nil
	}
	*k = OfferKind(s)
	return nil
}

// ExperienceLevel is the required seniority of an offer.
type ExperienceLevel string

// ExperienceLevel constants.
const (
	LevelEntry        ExperienceLevel = "entry"
	LevelIntermediate ExperienceLevel = "intermediate"
	LevelExpert       ExperienceLevel = "expert"
)

// ExperienceLevels lists every level in display order.
var ExperienceLevels = []ExperienceLevel{LevelEntry, LevelIntermediate, LevelExpert}

// ParseExperienceLevel maps backend spellings onto an ExperienceLevel.
func ParseExperienceLevel(s string) (ExperienceLevel, bool) {
	switch normalizeToken(s) {
	case "entry", "junior", "debutant", "beginner":
		return LevelEntry, true
	case "intermediate", "mid", "confirme":
		return LevelIntermediate, true
	case "expert", "senior":
		return LevelExpert, true
	}
	return "", false
}

// UnmarshalJSON normalizes known spellings and keeps unknown ones verbatim.
func (l *ExperienceLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if parsed, ok := ParseExperienceLevel(s); ok {
		*l = parsed
		return nil
	}
	*l = ExperienceLevel(s)
	return nil
}

// JobStatus is the server-authoritative publication state of an offer.
type JobStatus string

// JobStatus constants.
const (
	JobStatusDraft     JobStatus = "draft"
	JobStatusPublished JobStatus = "published"
	JobStatusExpired   JobStatus = "expired"
)

// Valid reports whether s is a known publication state.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusDraft, JobStatusPublished, JobStatusExpired:
		return true
	}
	return false
}

// Salary is either free text or a numeric range (in thousands).
type Salary struct {
	Text string   `json:"text,omitempty"`
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
}

// UnmarshalJSON accepts a string, a number or a {min,max} object.
func (s *Salary) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*s = Salary{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		s.Text = text
		if v, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil {
			s.Min, s.Max = &v, &v
		}
		return nil
	case '{':
		type raw Salary
		var r raw
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		*s = Salary(r)
		return nil
	default:
		var v float64
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("salary: %w", err)
		}
		s.Min, s.Max = &v, &v
		return nil
	}
}

// InRange reports whether the salary overlaps [lo, hi]. Text-only salaries
// carry no numeric information and never match a numeric constraint.
func (s Salary) InRange(lo, hi float64) bool {
	if s.Min == nil && s.Max == nil {
		return false
	}
	low, high := s.Min, s.Max
	if low == nil {
		low = high
	}
	if high == nil {
		high = low
	}
	return *high >= lo && *low <= hi
}

func (s Salary) String() string {
	switch {
	case s.Text != "":
		return s.Text
	case s.Min != nil && s.Max != nil && *s.Min != *s.Max:
		return fmt.Sprintf("%gk-%gk", *s.Min, *s.Max)
	case s.Min != nil:
		return fmt.Sprintf("%gk", *s.Min)
	case s.Max != nil:
		return fmt.Sprintf("%gk", *s.Max)
	}
	return ""
}

// JobPosting represents one offer as the client sees it.
type JobPosting struct {
	ID              ID              `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	Company         string          `json:"company"`
	Location        string          `json:"location,omitempty"`
	Category        string          `json:"category,omitempty"`
	Salary          Salary          `json:"salary"`
	Kind            OfferKind       `json:"kind"`
	ExperienceLevel ExperienceLevel `json:"experience_level,omitempty"`
	Skills          []string        `json:"skills,omitempty"`
	Proposals       int             `json:"proposals,omitempty"`
	PublishedAt     *time.Time      `json:"published_at,omitempty"`
	Status          JobStatus       `json:"status,omitempty"`

	// client-local annotations, never sent back to the server
	Bookmarked bool `json:"bookmarked,omitempty"`
	Applied    bool `json:"applied,omitempty"`
}

// Clone returns a deep copy.
func (j JobPosting) Clone() JobPosting {
	out := j
	if j.Skills != nil {
		out.Skills = append([]string(nil), j.Skills...)
	}
	return out
}

func normalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "_", " ", "_", "é", "e", "è", "e", "ê", "e").Replace(s)
	return s
}
