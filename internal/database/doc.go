// Package database opens the catalog database and hosts its repositories.
//
// # Architecture
//
//	database/
//	├── database.go      # Connection setup, migrations, permission and genre seeding
//	├── crud/            # Generic repository: lookup, pagination, insert, update, delete
//	├── authors/         # Authors, default ordering by name
//	├── books/           # Books with author, genres and copies
//	├── genres/          # Genre lookup for book forms
//	├── instances/       # Book copies and loans
//	├── users/           # Users and permission grants
//	├── audit/           # Audit event log
//	└── stats/           # Home page counters built with squirrel
//
// # Usage
//
//	db, err := database.NewDatabase("./locallibrary.db", logger)
//
//	booksRepo := books.NewRepository(db.DB)
//	page, err := booksRepo.FindPage(ctx, crud.Page{Number: 1, Size: 10})
//
// Missing rows are reported as crud.ErrNotFound by every repository.
package database
