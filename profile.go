package stackauth

// Profile is the provider agnostic representation of an authenticated identity
type Profile struct {
	Provider    string `json:"provider"`
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`

	// Optional provider fields, left empty when not returned
	UserID       string `json:"userId,omitempty"`
	ProfileImage string `json:"profileImage,omitempty"`
	Link         string `json:"link,omitempty"`
	Reputation   int64  `json:"reputation,omitempty"`
	UserType     string `json:"userType,omitempty"`

	// Raw response body and its parsed form, kept for diagnostics
	Raw  string         `json:"-"`
	JSON map[string]any `json:"-"`
}

// ToMap flattens the profile into the map shape stored on users and channels
func (p *Profile) ToMap() map[string]any {
	out := map[string]any{
		"provider":    p.Provider,
		"id":          p.ID,
		"displayName": p.DisplayName,
	}
	if p.UserID != "" {
		out["userId"] = p.UserID
	}
	if p.ProfileImage != "" {
		out["profileImage"] = p.ProfileImage
	}
	if p.Link != "" {
		out["link"] = p.Link
	}
	if p.Reputation != 0 {
		out["reputation"] = p.Reputation
	}
	if p.UserType != "" {
		out["userType"] = p.UserType
	}
	return out
}
