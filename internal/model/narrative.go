package model

// Narrative is an optional plain-language account of a receipt written by a
// language model. It never changes the decision.
type Narrative struct {
	Enabled       bool     `json:"enabled"`
	Provider      string   `json:"provider,omitempty"`
	Model         string   `json:"model,omitempty"`
	StrictAmounts bool     `json:"strictAmounts"`
	Text          string   `json:"text,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}
