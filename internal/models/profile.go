// Package models defines the core data structures for NorthForm.
//
// It includes the user Profile accumulated during onboarding, the request and
// response shapes of the analyze gateway, and shared API response types.
package models

// Horizon is the planning horizon a user selects for their goals.
type Horizon string

const (
	Horizon7d  Horizon = "7d"
	Horizon30d Horizon = "30d"
	Horizon90d Horizon = "90d"
	Horizon12m Horizon = "12m"
	Horizon3y  Horizon = "3y"
)

// IsValidHorizon checks if the given horizon is one of the supported values.
func IsValidHorizon(h Horizon) bool {
	switch h {
	case Horizon7d, Horizon30d, Horizon90d, Horizon12m, Horizon3y:
		return true
	default:
		return false
	}
}

// Conversations holds pasted snippets of real conversations, one slot per
// relationship sphere (family, friends, work).
type Conversations struct {
	Fam string `json:"fam,omitempty"`
	Frd string `json:"frd,omitempty"`
	Wrk string `json:"wrk,omitempty"`
}

// ConversationTags holds short labels the user attached to each conversation
// slot.
type ConversationTags struct {
	Fam []string `json:"fam,omitempty"`
	Frd []string `json:"frd,omitempty"`
	Wrk []string `json:"wrk,omitempty"`
}

// Links holds up to five optional external identity URLs.
type Links struct {
	Facebook  string `json:"facebook,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	X         string `json:"x,omitempty"`
	Personal  string `json:"personal,omitempty"`
}

// Count returns the number of links that are set.
func (l *Links) Count() int {
	if l == nil {
		return 0
	}
	n := 0
	for _, u := range []string{l.Facebook, l.Instagram, l.LinkedIn, l.X, l.Personal} {
		if u != "" {
			n++
		}
	}
	return n
}

// Consent records explicit opt-ins. Pointers distinguish "not answered" from
// an explicit false so merges never resurrect a revoked consent.
type Consent struct {
	AnalyzeLinks *bool `json:"analyzeLinks,omitempty"`
	Voice        *bool `json:"voice,omitempty"`
}

// Profile is a user's self-disclosed decision profile. Every field is
// optional; the zero value is the empty profile and is valid.
type Profile struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`

	LifeVision string   `json:"lifeVision,omitempty"`
	Values     []string `json:"values,omitempty"`
	AntiValues []string `json:"antiValues,omitempty"`

	NonNegs     []string `json:"nonNegs,omitempty"`
	Constraints []string `json:"constraints,omitempty"`

	Horizon Horizon `json:"horizon,omitempty"`
	Goal90d string  `json:"goal90d,omitempty"`
	Goal12m string  `json:"goal12m,omitempty"`

	DecisionStyle string `json:"decisionStyle,omitempty"`

	Conv *Conversations    `json:"conv,omitempty"`
	Tags *ConversationTags `json:"tags,omitempty"`

	Links *Links `json:"links,omitempty"`

	// Patterns maps a behavioral pattern id to a slider intensity (0-5).
	Patterns map[string]int `json:"patterns,omitempty"`

	BiasNotes string   `json:"biasNotes,omitempty"`
	Consent   *Consent `json:"consent,omitempty"`
}

// Merge returns a new profile combining p with patch. Top-level scalar
// fields and the values/antiValues/nonNegs/constraints sequences are
// wholesale replaced when present in the patch; the nested conv, tags,
// links, patterns and consent records are merged key-by-key with patch
// keys winning. Neither receiver nor patch is modified.
func (p Profile) Merge(patch Profile) Profile {
	next := p

	if patch.Name != "" {
		next.Name = patch.Name
	}
	if patch.Email != "" {
		next.Email = patch.Email
	}
	if patch.LifeVision != "" {
		next.LifeVision = patch.LifeVision
	}
	if patch.Values != nil {
		next.Values = append([]string(nil), patch.Values...)
	}
	if patch.AntiValues != nil {
		next.AntiValues = append([]string(nil), patch.AntiValues...)
	}
	if patch.NonNegs != nil {
		next.NonNegs = append([]string(nil), patch.NonNegs...)
	}
	if patch.Constraints != nil {
		next.Constraints = append([]string(nil), patch.Constraints...)
	}
	if patch.Horizon != "" {
		next.Horizon = patch.Horizon
	}
	if patch.Goal90d != "" {
		next.Goal90d = patch.Goal90d
	}
	if patch.Goal12m != "" {
		next.Goal12m = patch.Goal12m
	}
	if patch.DecisionStyle != "" {
		next.DecisionStyle = patch.DecisionStyle
	}
	if patch.BiasNotes != "" {
		next.BiasNotes = patch.BiasNotes
	}

	next.Conv = mergeConversations(p.Conv, patch.Conv)
	next.Tags = mergeTags(p.Tags, patch.Tags)
	next.Links = mergeLinks(p.Links, patch.Links)
	next.Patterns = mergePatterns(p.Patterns, patch.Patterns)
	next.Consent = mergeConsent(p.Consent, patch.Consent)

	return next
}

func mergeConversations(curr, patch *Conversations) *Conversations {
	if curr == nil && patch == nil {
		return nil
	}
	out := Conversations{}
	if curr != nil {
		out = *curr
	}
	if patch != nil {
		if patch.Fam != "" {
			out.Fam = patch.Fam
		}
		if patch.Frd != "" {
			out.Frd = patch.Frd
		}
		if patch.Wrk != "" {
			out.Wrk = patch.Wrk
		}
	}
	return &out
}

func mergeTags(curr, patch *ConversationTags) *ConversationTags {
	if curr == nil && patch == nil {
		return nil
	}
	out := ConversationTags{}
	if curr != nil {
		out = *curr
	}
	if patch != nil {
		if patch.Fam != nil {
			out.Fam = append([]string(nil), patch.Fam...)
		}
		if patch.Frd != nil {
			out.Frd = append([]string(nil), patch.Frd...)
		}
		if patch.Wrk != nil {
			out.Wrk = append([]string(nil), patch.Wrk...)
		}
	}
	return &out
}

func mergeLinks(curr, patch *Links) *Links {
	if curr == nil && patch == nil {
		return nil
	}
	out := Links{}
	if curr != nil {
		out = *curr
	}
	if patch != nil {
		if patch.Facebook != "" {
			out.Facebook = patch.Facebook
		}
		if patch.Instagram != "" {
			out.Instagram = patch.Instagram
		}
		if patch.LinkedIn != "" {
			out.LinkedIn = patch.LinkedIn
		}
		if patch.X != "" {
			out.X = patch.X
		}
		if patch.Personal != "" {
			out.Personal = patch.Personal
		}
	}
	return &out
}

func mergePatterns(curr, patch map[string]int) map[string]int {
	if curr == nil && patch == nil {
		return nil
	}
	out := make(map[string]int, len(curr)+len(patch))
	for k, v := range curr {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

func mergeConsent(curr, patch *Consent) *Consent {
	if curr == nil && patch == nil {
		return nil
	}
	out := Consent{}
	if curr != nil {
		out = *curr
	}
	if patch != nil {
		if patch.AnalyzeLinks != nil {
			out.AnalyzeLinks = patch.AnalyzeLinks
		}
		if patch.Voice != nil {
			out.Voice = patch.Voice
		}
	}
	return &out
}
