package models

import (
	"time"

	"gorm.io/gorm"
)

// Blog is a collaboratively edited document.
type Blog struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Title         string         `gorm:"size:200;not null" json:"title"`
	Content       string         `gorm:"type:text;not null" json:"content"`
	Tags          []string       `gorm:"serializer:json;type:text" json:"tags"`
	AuthorID      uint           `gorm:"not null;index" json:"author_id"`
	Author        User           `gorm:"foreignKey:AuthorID" json:"-"`
	Collaborators []User         `gorm:"many2many:blog_collaborators;" json:"-"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// HasCollaborator reports whether userID is listed as a collaborator.
func (b *Blog) HasCollaborator(userID uint) bool {
	for i := range b.Collaborators {
		if b.Collaborators[i].ID == userID {
			return true
		}
	}
	return false
}

// BlogView is the API representation of a Blog with its references resolved.
type BlogView struct {
	ID            uint      `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Tags          []string  `json:"tags"`
	Author        UserRef   `json:"author"`
	Collaborators []UserRef `json:"collaborators"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// View resolves b into its API representation. Author and Collaborators must be preloaded.
func (b *Blog) View() BlogView {
	tags := b.Tags
	if tags == nil {
		tags = []string{}
	}
	collaborators := make([]UserRef, 0, len(b.Collaborators))
	for i := range b.Collaborators {
		collaborators = append(collaborators, b.Collaborators[i].Ref())
	}
	return BlogView{
		ID:            b.ID,
		Title:         b.Title,
		Content:       b.Content,
		Tags:          tags,
		Author:        b.Author.Ref(),
		Collaborators: collaborators,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}
