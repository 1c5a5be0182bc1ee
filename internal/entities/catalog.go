package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LoanStatus is the availability code of a single book copy.
type LoanStatus string

const (
	LoanStatusMaintenance LoanStatus = "m"
	LoanStatusOnLoan      LoanStatus = "o"
	LoanStatusAvailable   LoanStatus = "a"
	LoanStatusReserved    LoanStatus = "r"
)

// LoanStatuses lists every status in display order.
var LoanStatuses = []LoanStatus{
	LoanStatusMaintenance,
	LoanStatusOnLoan,
	LoanStatusAvailable,
	LoanStatusReserved,
}

func (s LoanStatus) Label() string {
	switch s {
	case LoanStatusMaintenance:
		return "Maintenance"
	case LoanStatusOnLoan:
		return "On loan"
	case LoanStatusAvailable:
		return "Available"
	case LoanStatusReserved:
		return "Reserved"
	}
	return "Unknown"
}

func (s LoanStatus) IsValid() bool {
	for _, known := range LoanStatuses {
		if s == known {
			return true
		}
	}
	return false
}

type Author struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	FirstName   string     `gorm:"size:100;not null" json:"first_name"`
	LastName    string     `gorm:"index;size:100;not null" json:"last_name"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	DateOfDeath *time.Time `json:"date_of_death,omitempty"`
	Books       []Book     `gorm:"foreignKey:AuthorID" json:"books,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Name returns "Last, First" as shown in listings.
func (a Author) Name() string {
	return a.LastName + ", " + a.FirstName
}

// Lifespan renders the birth and death years, e.g. "1920 - 1992".
func (a Author) Lifespan() string {
	if a.DateOfBirth == nil && a.DateOfDeath == nil {
		return ""
	}
	birth, death := "", ""
	if a.DateOfBirth != nil {
		birth = a.DateOfBirth.Format("2006")
	}
	if a.DateOfDeath != nil {
		death = a.DateOfDeath.Format("2006")
	}
	return strings.TrimSpace(birth + " - " + death)
}

type Genre struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:200;not null" json:"name"`
	Books     []Book    `gorm:"many2many:book_genres;" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type Book struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Title     string         `gorm:"index;size:200;not null" json:"title"`
	Summary   string         `gorm:"size:1000" json:"summary"`
	ISBN      string         `gorm:"column:isbn;size:13;uniqueIndex:idx_books_isbn_unique,where:isbn <> ''" json:"isbn"`
	AuthorID  *uint          `gorm:"index" json:"author_id,omitempty"`
	Author    *Author        `gorm:"foreignKey:AuthorID;constraint:OnDelete:SET NULL" json:"author,omitempty"`
	Genres    []Genre        `gorm:"many2many:book_genres;" json:"genres,omitempty"`
	Instances []BookInstance `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE" json:"instances,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// DisplayGenre joins the first three genre names.
func (b Book) DisplayGenre() string {
	names := make([]string, 0, 3)
	for i, g := range b.Genres {
		if i == 3 {
			break
		}
		names = append(names, g.Name)
	}
	return strings.Join(names, ", ")
}

// HasGenre reports whether the book is linked to the genre, used by the edit form.
func (b Book) HasGenre(id uint) bool {
	for _, g := range b.Genres {
		if g.ID == id {
			return true
		}
	}
	return false
}

// BookInstance is one loanable copy of a book. The borrower is only
// meaningful while the copy is on loan.
type BookInstance struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	BookID     uint       `gorm:"index;not null" json:"book_id"`
	Book       Book       `gorm:"foreignKey:BookID" json:"book,omitempty"`
	Imprint    string     `gorm:"size:200" json:"imprint"`
	DueBack    *time.Time `gorm:"index" json:"due_back,omitempty"`
	Status     LoanStatus `gorm:"index;size:1;default:'m'" json:"status"`
	BorrowerID *uint      `gorm:"index" json:"borrower_id,omitempty"`
	Borrower   *User      `gorm:"foreignKey:BorrowerID;constraint:OnDelete:SET NULL" json:"borrower,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (bi *BookInstance) BeforeCreate(tx *gorm.DB) error {
	if bi.ID == "" {
		bi.ID = uuid.NewString()
	}
	if bi.Status == "" {
		bi.Status = LoanStatusMaintenance
	}
	return nil
}

// IsOverdue reports whether the due date lies before today.
func (bi BookInstance) IsOverdue(today time.Time) bool {
	return bi.DueBack != nil && bi.DueBack.Before(today)
}

func (Author) TableName() string {
	return "authors"
}

func (Genre) TableName() string {
	return "genres"
}

func (Book) TableName() string {
	return "books"
}

func (BookInstance) TableName() string {
	return "book_instances"
}
