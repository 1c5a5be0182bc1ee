package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestAuthor_Name(t *testing.T) {
	a := Author{FirstName: "Ursula", LastName: "Le Guin"}
	assert.Equal(t, "Le Guin, Ursula", a.Name())
}

func TestAuthor_Lifespan(t *testing.T) {
	assert.Equal(t, "", Author{}.Lifespan())
	assert.Equal(t, "1929 - 2018", Author{DateOfBirth: date(1929, 10, 21), DateOfDeath: date(2018, 1, 22)}.Lifespan())
	assert.Equal(t, "1947 -", Author{DateOfBirth: date(1947, 9, 21)}.Lifespan())
}

func TestBook_DisplayGenre(t *testing.T) {
	b := Book{Genres: []Genre{{Name: "Fantasy"}, {Name: "Science Fiction"}, {Name: "Horror"}, {Name: "Poetry"}}}
	assert.Equal(t, "Fantasy, Science Fiction, Horror", b.DisplayGenre())
	assert.Equal(t, "", Book{}.DisplayGenre())
}

func TestBook_HasGenre(t *testing.T) {
	b := Book{Genres: []Genre{{ID: 2}, {ID: 5}}}
	assert.True(t, b.HasGenre(5))
	assert.False(t, b.HasGenre(3))
}

func TestBookInstance_IsOverdue(t *testing.T) {
	today := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	assert.False(t, BookInstance{}.IsOverdue(today))
	assert.True(t, BookInstance{DueBack: date(2024, 3, 9)}.IsOverdue(today))
	assert.False(t, BookInstance{DueBack: date(2024, 3, 10)}.IsOverdue(today))
	assert.False(t, BookInstance{DueBack: date(2024, 4, 1)}.IsOverdue(today))
}

func TestLoanStatus(t *testing.T) {
	assert.Equal(t, "On loan", LoanStatusOnLoan.Label())
	assert.Equal(t, "Unknown", LoanStatus("x").Label())
	assert.True(t, LoanStatusReserved.IsValid())
	assert.False(t, LoanStatus("").IsValid())
}

func TestUser_HasPermission(t *testing.T) {
	admin := User{Role: UserRoleAdmin}
	librarian := User{Role: UserRoleLibrarian}
	member := User{Role: UserRoleMember}
	granted := User{Role: UserRoleMember, Permissions: []Permission{{Codename: PermCanMarkReturned}}}

	assert.True(t, admin.HasPermission(PermCanEdit))
	assert.True(t, librarian.HasPermission(PermCanMarkReturned))
	assert.False(t, member.HasPermission(PermCanMarkReturned))
	assert.True(t, granted.HasPermission(PermCanMarkReturned))
	assert.False(t, granted.HasPermission(PermCanEdit))
}
