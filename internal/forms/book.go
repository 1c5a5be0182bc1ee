package forms

import (
	"strconv"

	"github.com/samber/lo"

	"github.com/mrlokans/locallibrary/internal/entities"
)

const MsgDuplicateISBN = "Book with this ISBN already exists."

// BookForm carries every book field. The author can only be chosen on
// create; update ignores it.
type BookForm struct {
	Title   string   `form:"title" json:"title" binding:"required,max=200"`
	Author  string   `form:"author" json:"author" binding:"omitempty,numeric"`
	Summary string   `form:"summary" json:"summary" binding:"required,max=1000"`
	ISBN    string   `form:"isbn" json:"isbn" binding:"required,max=13"`
	Genre   []string `form:"genre" json:"genre" binding:"required,dive,numeric"`
}

// BookFormFrom pre-fills the update form.
func BookFormFrom(b entities.Book) BookForm {
	f := BookForm{
		Title:   b.Title,
		Summary: b.Summary,
		ISBN:    b.ISBN,
		Genre: lo.Map(b.Genres, func(g entities.Genre, _ int) string {
			return strconv.FormatUint(uint64(g.ID), 10)
		}),
	}
	if b.AuthorID != nil {
		f.Author = strconv.FormatUint(uint64(*b.AuthorID), 10)
	}
	return f
}

// AuthorID parses the chosen author.
func (f BookForm) AuthorID() (uint, bool) {
	id, err := strconv.ParseUint(f.Author, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// GenreIDs parses the chosen genres, dropping duplicates.
func (f BookForm) GenreIDs() []uint {
	return lo.Uniq(lo.FilterMap(f.Genre, func(s string, _ int) (uint, bool) {
		id, err := strconv.ParseUint(s, 10, 64)
		return uint(id), err == nil && id > 0
	}))
}

// SelectedGenre reports whether the genre is ticked, used by templates.
func (f BookForm) SelectedGenre(id uint) bool {
	return lo.Contains(f.GenreIDs(), id)
}

// ApplyCreate copies every field, including the author, onto b.
func (f BookForm) ApplyCreate(b *entities.Book) Errors {
	errs := Errors{}
	authorID, ok := f.AuthorID()
	if !ok {
		if f.Author == "" {
			errs.Add("author", MsgRequired)
		} else {
			errs.Add("author", MsgInvalidChoice)
		}
		return errs
	}
	f.ApplyUpdate(b)
	b.AuthorID = &authorID
	return errs
}

// ApplyUpdate copies the fields editable after creation onto b.
func (f BookForm) ApplyUpdate(b *entities.Book) {
	b.Title = f.Title
	b.Summary = f.Summary
	b.ISBN = f.ISBN
}
