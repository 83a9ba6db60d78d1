package store

import (
	"context"
	"time"

	"github.com/fuad-rahat/school-website/internal/models"
)

// Collection names.
const (
	CollectionNotices    = "notices"
	CollectionTeachers   = "teachers"
	CollectionResults    = "results"
	CollectionAlumni     = "alumni"
	CollectionActivities = "activities"
	CollectionAbout      = "about"
)

// Collections lists every content collection.
var Collections = []string{
	CollectionNotices,
	CollectionTeachers,
	CollectionResults,
	CollectionAlumni,
	CollectionActivities,
	CollectionAbout,
}

// CredentialStore holds admin credentials.
type CredentialStore interface {
	// AdminByUsername returns ErrNotFound when no admin has username.
	AdminByUsername(ctx context.Context, username string) (models.Admin, error)
	CreateAdmin(ctx context.Context, admin models.Admin) (models.Admin, error)
}

// Document is a stored JSON document.  Body never contains the _id,
// createdAt or updatedAt fields; those come from the columns.
type Document struct {
	ID        string
	Body      []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Query selects documents of one collection.
type Query struct {
	// Filter matches documents whose body contains every key with an equal
	// value.
	Filter map[string]any

	// SortField is a top-level body field.  Empty sorts by creation time,
	// newest first.
	SortField string
	SortDesc  bool

	// Limit of zero means no limit.
	Limit int
}

// DocumentStore is a collection-keyed JSON document store.
type DocumentStore interface {
	Find(ctx context.Context, collection string, q Query) ([]Document, error)
	FindOne(ctx context.Context, collection, id string) (Document, error)
	Insert(ctx context.Context, collection string, body []byte) (Document, error)
	Replace(ctx context.Context, collection, id string, body []byte) (Document, error)
	Delete(ctx context.Context, collection, id string) error
	Distinct(ctx context.Context, collection, field string) ([]string, error)
	Count(ctx context.Context, collection string) (int64, error)
}

// Store is everything the web service persists.
type Store interface {
	CredentialStore
	DocumentStore
	Ping(ctx context.Context) error
}
