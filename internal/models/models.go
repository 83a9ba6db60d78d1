package models

import (
	"strings"
	"time"

	"github.com/AdguardTeam/golibs/errors"
)

// RoleAdmin is the only role allowed to mutate content.
const RoleAdmin = "admin"

// Admin is a credential record for the admin panel.
type Admin struct {
	AdminID      string    `json:"admin_id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Meta holds the storage-assigned fields of a content document.
type Meta struct {
	ID        string    `json:"_id,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// Metadata returns m so that documents embedding Meta satisfy [Entity].
func (m *Meta) Metadata() *Meta {
	return m
}

// Entity is a content document stored in a named collection.
type Entity interface {
	Metadata() *Meta
	Validate() error
}

// Defaulter is implemented by documents that fill unset fields on creation.
type Defaulter interface {
	ApplyDefaults(now time.Time)
}

// Normalizer is implemented by documents whose stored form must be canonical.
// Dates are stored in UTC so that their text order is their time order.
type Normalizer interface {
	Normalize()
}

type Notice struct {
	Meta
	Title    string    `json:"title"`
	Content  string    `json:"content"`
	Category string    `json:"category"`
	Date     time.Time `json:"date,omitzero"`
	FileURL  string    `json:"fileUrl,omitempty"`
}

func (n *Notice) Validate() error {
	return required("title", n.Title, "content", n.Content, "category", n.Category)
}

func (n *Notice) ApplyDefaults(now time.Time) {
	if n.Date.IsZero() {
		n.Date = now
	}
}

func (n *Notice) Normalize() {
	n.Date = n.Date.UTC()
}

type Teacher struct {
	Meta
	Name          string `json:"name"`
	Designation   string `json:"designation"`
	Qualification string `json:"qualification"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Image         string `json:"image,omitempty"`
	IsActive      *bool  `json:"isActive,omitempty"`
	Order         int    `json:"order"`
}

func (t *Teacher) Validate() error {
	return required("name", t.Name, "designation", t.Designation, "qualification", t.Qualification)
}

func (t *Teacher) ApplyDefaults(time.Time) {
	if t.IsActive == nil {
		active := true
		t.IsActive = &active
	}
}

type Result struct {
	Meta
	Title       string `json:"title"`
	Year        string `json:"year"`
	Description string `json:"description"`
	FileURL     string `json:"fileUrl,omitempty"`
}

func (r *Result) Validate() error {
	return required("title", r.Title, "year", r.Year, "description", r.Description)
}

type Alumni struct {
	Meta
	Name           string `json:"name"`
	GraduationYear int    `json:"graduationYear"`
	Batch          string `json:"batch,omitempty"`
	Profession     string `json:"profession,omitempty"`
	Organization   string `json:"organization,omitempty"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Image          string `json:"image,omitempty"`
	Message        string `json:"message,omitempty"`
	IsApproved     bool   `json:"isApproved"`
	Featured       bool   `json:"featured"`
}

func (a *Alumni) Validate() error {
	if err := required("name", a.Name); err != nil {
		return err
	}
	if a.GraduationYear <= 0 {
		return errors.Error("graduationYear is required")
	}
	return nil
}

type Activity struct {
	Meta
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date,omitzero"`
	Category    string    `json:"category,omitempty"`
	Image       string    `json:"image,omitempty"`
}

func (a *Activity) Validate() error {
	return required("title", a.Title, "description", a.Description)
}

func (a *Activity) ApplyDefaults(now time.Time) {
	if a.Date.IsZero() {
		a.Date = now
	}
}

func (a *Activity) Normalize() {
	a.Date = a.Date.UTC()
}

type About struct {
	Meta
	Title       string `json:"title"`
	Description string `json:"description"`
	Mission     string `json:"mission,omitempty"`
	Vision      string `json:"vision,omitempty"`
	History     string `json:"history,omitempty"`
}

func (a *About) Validate() error {
	return required("title", a.Title, "description", a.Description)
}

// required takes name/value pairs and reports the names of blank values.
func required(pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return errors.Error(strings.Join(missing, ", ") + " required")
}
