package model

import (
	"slices"
	"time"
)

type PhotoRecord struct {
	ID        string    `json:"id,omitempty"`
	LocalKey  string    `json:"localKey,omitempty"`
	ImageRef  string    `json:"imageRef"`
	TakenAt   time.Time `json:"takenAt"`
	Caption   *string   `json:"caption,omitempty"`
	Weight    *float64  `json:"weight,omitempty"`
	PumpScore *int      `json:"pumpScore,omitempty"`
	Public    bool      `json:"public"`
	Comments  []Comment `json:"comments"`
	Likes     int       `json:"likes"`
}

type Comment struct {
	ID         string    `json:"id,omitempty"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}

// PhotoPatch is a partial photo update; nil fields are left untouched.
type PhotoPatch struct {
	Caption   *string    `json:"caption,omitempty"`
	Weight    *float64   `json:"weight,omitempty"`
	PumpScore *int       `json:"pumpScore,omitempty"`
	Public    *bool      `json:"public,omitempty"`
	Comments  *[]Comment `json:"comments,omitempty"`
}

func (p PhotoRecord) Fingerprint() string {
	if p.ID != "" {
		return "id:" + p.ID
	}
	return "img:" + p.ImageRef + "@" + p.TakenAt.UTC().Format(time.RFC3339Nano)
}

// FieldsEqual compares everything except the comment list,
// which is diffed and synced on its own.
func (p PhotoRecord) FieldsEqual(o PhotoRecord) bool {
	return p.ID == o.ID &&
		p.LocalKey == o.LocalKey &&
		p.ImageRef == o.ImageRef &&
		p.TakenAt.Equal(o.TakenAt) &&
		ptrEqual(p.Caption, o.Caption) &&
		ptrEqual(p.Weight, o.Weight) &&
		ptrEqual(p.PumpScore, o.PumpScore) &&
		p.Public == o.Public &&
		p.Likes == o.Likes
}

func (p PhotoRecord) CommentsEqual(o PhotoRecord) bool {
	return slices.EqualFunc(p.Comments, o.Comments, func(a, b Comment) bool {
		return a.ID == b.ID &&
			a.AuthorID == b.AuthorID &&
			a.AuthorName == b.AuthorName &&
			a.Text == b.Text &&
			a.CreatedAt.Equal(b.CreatedAt)
	})
}

// FieldsPatch builds the patch carrying the photo's own (non-comment) fields.
func (p PhotoRecord) FieldsPatch() PhotoPatch {
	public := p.Public
	return PhotoPatch{
		Caption:   p.Caption,
		Weight:    p.Weight,
		PumpScore: p.PumpScore,
		Public:    &public,
	}
}

// CommentsPatch builds a patch touching only the comment list.
func (p PhotoRecord) CommentsPatch() PhotoPatch {
	comments := slices.Clone(p.Comments)
	if comments == nil {
		comments = []Comment{}
	}
	return PhotoPatch{Comments: &comments}
}

func (p PhotoRecord) Clone() PhotoRecord {
	c := p
	c.Caption = clonePtr(p.Caption)
	c.Weight = clonePtr(p.Weight)
	c.PumpScore = clonePtr(p.PumpScore)
	c.Comments = slices.Clone(p.Comments)
	return c
}

func ptrEqual[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
