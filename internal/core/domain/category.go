package domain

// CategoryEntry is one explicitly registered category name. Predefined
// entries are the curated seed set shown separately in selection UIs;
// non-predefined entries were added by the user.
type CategoryEntry struct {
	Name       string `json:"name"`
	Predefined bool   `json:"predefined"`
}
