package store

import "time"

// ContentType identifies one of the searchable content collections.
type ContentType string

const (
	ContentTypeTool    ContentType = "tool"
	ContentTypeLesson  ContentType = "lesson"
	ContentTypeQuiz    ContentType = "quiz"
	ContentTypeProject ContentType = "project"
)

// AllContentTypes returns every searchable content type, in canonical order.
func AllContentTypes() []ContentType {
	return []ContentType{ContentTypeTool, ContentTypeLesson, ContentTypeQuiz, ContentTypeProject}
}

// Valid reports whether the content type is one of the closed set.
func (c ContentType) Valid() bool {
	switch c {
	case ContentTypeTool, ContentTypeLesson, ContentTypeQuiz, ContentTypeProject:
		return true
	}
	return false
}

// UserGenerated reports whether items of this type are user-generated
// content. User-generated collections carry the mandatory visibility filter
// on every search.
func (c ContentType) UserGenerated() bool {
	// Tools are a curated directory; everything else is member-submitted.
	return c != ContentTypeTool
}

// UserTags holds a user's explicit preference tags.
type UserTags struct {
	Tools      []string
	Categories []string
	Topics     []string
}

// UserEngagement holds a user's interaction history.
type UserEngagement struct {
	LikedItemIDs  []string
	ViewedItemIDs []string
}

// Item is a content row from the relational store. The engine consumes items
// read-only; the system of record lives outside this module.
type Item struct {
	ID         string
	Type       ContentType
	Title      string
	OwnerID    string
	Tags       []string
	Categories []string
	Topics     []string
	LikeCount  int
	IsPrivate  bool
	IsArchived bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
