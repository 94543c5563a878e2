package session

// Well-known role names used by the capability checks.
const (
	// RoleAdmin grants every capability.
	RoleAdmin = "admin"
	// RoleEditor grants edit and delete over any post.
	RoleEditor = "editor"
	// RoleWriter grants post creation and editing of own posts.
	RoleWriter = "writer"
)

// PostRef is the slice of a post the capability checks need.
type PostRef struct {
	AuthorID string `json:"author_id"`
}

// HasRole checks if the identity's role set contains name. A nil
// identity (anonymous) has no roles.
func (i *Identity) HasRole(name string) bool {
	if i == nil {
		return false
	}
	for _, r := range i.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// HasAnyRole checks if HasRole holds for at least one of names. Admins
// satisfy any named requirement.
func (i *Identity) HasAnyRole(names ...string) bool {
	if i == nil || len(names) == 0 {
		return false
	}
	if i.IsAdmin() {
		return true
	}
	for _, name := range names {
		if i.HasRole(name) {
			return true
		}
	}
	return false
}

// IsAdmin checks for the superuser flag or the admin role.
func (i *Identity) IsAdmin() bool {
	if i == nil {
		return false
	}
	return i.IsSuperuser || i.HasRole(RoleAdmin)
}

// IsEditor checks for editor-level capability. Admins are editors.
func (i *Identity) IsEditor() bool {
	return i.IsAdmin() || i.HasRole(RoleEditor)
}

// CanCreatePosts checks if the identity may author new posts.
func (i *Identity) CanCreatePosts() bool {
	if i == nil {
		return false
	}
	return i.IsAdmin() || i.HasAnyRole(RoleEditor, RoleWriter)
}

// CanEditPost checks if the identity may edit the given post. Authors
// can edit their own posts.
func (i *Identity) CanEditPost(post PostRef) bool {
	if i == nil {
		return false
	}
	if i.IsAdmin() || i.IsEditor() {
		return true
	}
	return post.AuthorID != "" && post.AuthorID == i.ID
}

// CanDeletePost checks if the identity may delete the given post.
// Authorship grants edit rights only; deletion requires editor or admin.
func (i *Identity) CanDeletePost(post PostRef) bool {
	if i == nil {
		return false
	}
	return i.IsAdmin() || i.IsEditor()
}
