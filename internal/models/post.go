// Package models defines the domain types for postdeck.
package models

// Post is a single blog-style post as served by the posts API.
type Post struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Date    string `json:"date"` // YYYY-MM-DD
	Author  string `json:"author"`
	Content string `json:"content"`
}

// PostInput is the body of create and update requests.
type PostInput struct {
	Title   string `json:"title"`
	Date    string `json:"date"`
	Author  string `json:"author"`
	Content string `json:"content"`
}

// Input returns the editable fields of p.
func (p Post) Input() PostInput {
	return PostInput{
		Title:   p.Title,
		Date:    p.Date,
		Author:  p.Author,
		Content: p.Content,
	}
}

// Field is a post attribute that lists can be sorted and searched by.
type Field string

// Sortable and searchable fields.
const (
	FieldTitle   Field = "title"
	FieldContent Field = "content"
	FieldAuthor  Field = "author"
	FieldDate    Field = "date"
)

// Fields lists every Field in display order.
var Fields = []Field{FieldTitle, FieldContent, FieldAuthor, FieldDate}

// Valid reports whether f names a known post field.
func (f Field) Valid() bool {
	switch f {
	case FieldTitle, FieldContent, FieldAuthor, FieldDate:
		return true
	}
	return false
}

// Value returns the value of field f on p.
func (p Post) Value(f Field) string {
	switch f {
	case FieldTitle:
		return p.Title
	case FieldContent:
		return p.Content
	case FieldAuthor:
		return p.Author
	case FieldDate:
		return p.Date
	}
	return ""
}

// Direction is a sort order.
type Direction string

// Sort directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Valid reports whether d is asc or desc.
func (d Direction) Valid() bool {
	return d == Asc || d == Desc
}
