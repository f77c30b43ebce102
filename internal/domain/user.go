package domain

import (
	"encoding/json"
	"time"
)

// User is the user object returned by the auth endpoints. Fields the client
// does not interpret are kept in Extra.
type User struct {
	Username string         `json:"username"`
	Email    string         `json:"email,omitempty"`
	Extra    map[string]any `json:"-"`
}

func (u *User) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	u.Username, _ = raw["username"].(string)
	u.Email, _ = raw["email"].(string)
	delete(raw, "username")
	delete(raw, "email")
	u.Extra = raw
	return nil
}

// Profile flattens the user back into the map stored with an Identity.
func (u *User) Profile() map[string]any {
	profile := make(map[string]any, len(u.Extra)+2)
	for k, v := range u.Extra {
		profile[k] = v
	}
	profile["username"] = u.Username
	if u.Email != "" {
		profile["email"] = u.Email
	}
	return profile
}

// Identity is the authenticated session held by the session store.
// Token is opaque to everything except the auth gateway and the realtime
// transport; it currently carries the server's session cookies.
type Identity struct {
	Username  string         `json:"username" validate:"required,username"`
	Token     string         `json:"token,omitempty"`
	LoginTime time.Time      `json:"loginTime"`
	Profile   map[string]any `json:"profile,omitempty"`
}

// Validate checks the identity loaded from disk or built after login.
func (i *Identity) Validate() error {
	return validatorInstance.Struct(i)
}

// Clone returns a copy that shares no maps with i.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	if i.Profile != nil {
		c.Profile = make(map[string]any, len(i.Profile))
		for k, v := range i.Profile {
			c.Profile[k] = v
		}
	}
	return &c
}
