package session

import "strings"

// Role is a named permission grouping attached to an Identity.
type Role struct {
	Name string `json:"name"`
}

// Identity is the authenticated principal as reported by the server.
type Identity struct {
	ID          string         `json:"id"`
	Username    string         `json:"username"`
	FirstName   string         `json:"first_name,omitempty"`
	LastName    string         `json:"last_name,omitempty"`
	Email       string         `json:"email,omitempty"`
	Roles       []Role         `json:"roles,omitempty"`
	IsSuperuser bool           `json:"is_superuser,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// IdentityPatch carries the fields UpdateUser merges into the current
// identity. Nil pointers leave the field untouched; Metadata entries are
// merged key by key.
type IdentityPatch struct {
	Username    *string
	FirstName   *string
	LastName    *string
	Email       *string
	Roles       []Role
	IsSuperuser *bool
	Metadata    map[string]any
}

// DisplayName returns the best human-readable name available.
func (i *Identity) DisplayName() string {
	if i == nil {
		return ""
	}
	full := strings.TrimSpace(strings.TrimSpace(i.FirstName) + " " + strings.TrimSpace(i.LastName))
	if full != "" {
		return full
	}
	return i.Username
}

// Clone returns a deep copy so callers can hold snapshots without
// sharing mutable state with the Manager.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	out := *i
	if i.Roles != nil {
		out.Roles = make([]Role, len(i.Roles))
		copy(out.Roles, i.Roles)
	}
	if i.Metadata != nil {
		out.Metadata = make(map[string]any, len(i.Metadata))
		for k, v := range i.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

// Merge returns a copy of the identity with the patch applied. The
// receiver is never mutated.
func (i *Identity) Merge(patch IdentityPatch) *Identity {
	out := i.Clone()
	if out == nil {
		return nil
	}
	if patch.Username != nil {
		out.Username = *patch.Username
	}
	if patch.FirstName != nil {
		out.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		out.LastName = *patch.LastName
	}
	if patch.Email != nil {
		out.Email = *patch.Email
	}
	if patch.IsSuperuser != nil {
		out.IsSuperuser = *patch.IsSuperuser
	}
	if patch.Roles != nil {
		out.Roles = make([]Role, len(patch.Roles))
		copy(out.Roles, patch.Roles)
	}
	if len(patch.Metadata) > 0 {
		if out.Metadata == nil {
			out.Metadata = make(map[string]any, len(patch.Metadata))
		}
		for k, v := range patch.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
