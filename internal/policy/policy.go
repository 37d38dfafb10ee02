// Package policy decides what an identity may do to a blog.
package policy

import "inkwell/internal/models"

// CanMutate reports whether id may edit blog: admins, the author, and any collaborator.
// blog.Collaborators must be loaded.
func CanMutate(blog *models.Blog, id models.Identity) bool {
	if blog == nil {
		return false
	}
	if id.IsAdmin() {
		return true
	}
	if id.UserID != 0 && blog.AuthorID == id.UserID {
		return true
	}
	return id.UserID != 0 && blog.HasCollaborator(id.UserID)
}

// CanDelete reports whether id may delete blog. Deletion is reserved to admins.
func CanDelete(blog *models.Blog, id models.Identity) bool {
	return blog != nil && id.IsAdmin()
}
