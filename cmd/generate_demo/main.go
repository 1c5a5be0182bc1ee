// Command generate_demo creates a demo catalog database with public domain
// books, a few copies on loan and two ready-made accounts.
// Usage: go run cmd/generate_demo/main.go [-db path/to/demo.db]
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/mrlokans/locallibrary/internal/auth"
	"github.com/mrlokans/locallibrary/internal/clock"
	"github.com/mrlokans/locallibrary/internal/config"
	"github.com/mrlokans/locallibrary/internal/database"
	"github.com/mrlokans/locallibrary/internal/database/authors"
	"github.com/mrlokans/locallibrary/internal/database/books"
	"github.com/mrlokans/locallibrary/internal/database/genres"
	"github.com/mrlokans/locallibrary/internal/database/instances"
	"github.com/mrlokans/locallibrary/internal/database/users"
	"github.com/mrlokans/locallibrary/internal/entities"
	"github.com/mrlokans/locallibrary/internal/logging"
)

const (
	defaultDemoDatabasePath = "./demo/demo.db"
	demoPassword            = "demo-library-pass"
)

type demoCopy struct {
	Imprint string
	Status  entities.LoanStatus
	// DueIn is the loan length in days relative to today; negative values
	// produce overdue loans. Only used for copies handed to the member.
	DueIn int
}

type demoBook struct {
	Title   string
	ISBN    string
	Summary string
	Genres  []string
	Copies  []demoCopy
}

type demoAuthor struct {
	FirstName string
	LastName  string
	Born      string
	Died      string
	Books     []demoBook
}

func main() {
	dbPath := flag.String("db", defaultDemoDatabasePath, "path to the demo database file")
	flag.Parse()

	logger, flush := logging.New(config.Log{Level: "info"})
	defer flush()
	logger.Info("generating demo database", zap.String("path", *dbPath))

	if err := os.Remove(*dbPath); err != nil && !os.IsNotExist(err) {
		logger.Fatal("failed to remove existing demo database", zap.Error(err))
	}

	db, err := database.NewDatabase(*dbPath, logger.Named("database"))
	if err != nil {
		logger.Fatal("failed to create database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	clk := clock.New(time.Local)
	today := clock.Today(clk)

	service := auth.NewService(users.NewRepository(db.DB), config.Auth{Mode: config.AuthModeLocal, BcryptCost: 10}, clk)
	if _, err := service.CreateUser(ctx, "librarian", "librarian@example.com", demoPassword, entities.UserRoleLibrarian); err != nil {
		logger.Fatal("failed to create librarian", zap.Error(err))
	}
	member, err := service.CreateUser(ctx, "reader", "reader@example.com", demoPassword, entities.UserRoleMember)
	if err != nil {
		logger.Fatal("failed to create member", zap.Error(err))
	}

	authorRepo := authors.NewRepository(db.DB)
	bookRepo := books.NewRepository(db.DB)
	genreRepo := genres.NewRepository(db.DB)
	instanceRepo := instances.NewRepository(db.DB)

	var bookCount, copyCount, loanCount int
	for _, da := range demoCatalog() {
		author := &entities.Author{
			FirstName:   da.FirstName,
			LastName:    da.LastName,
			DateOfBirth: parseDemoDate(da.Born),
			DateOfDeath: parseDemoDate(da.Died),
		}
		if err := authorRepo.Insert(ctx, author); err != nil {
			logger.Error("failed to save author", zap.String("author", author.Name()), zap.Error(err))
			continue
		}

		for _, entry := range da.Books {
			genreIDs := make([]uint, 0, len(entry.Genres))
			for _, name := range entry.Genres {
				genre, err := genreRepo.GetOrCreate(ctx, name)
				if err != nil {
					logger.Error("failed to save genre", zap.String("genre", name), zap.Error(err))
					continue
				}
				genreIDs = append(genreIDs, genre.ID)
			}

			book := &entities.Book{Title: entry.Title, ISBN: entry.ISBN, Summary: entry.Summary, AuthorID: &author.ID}
			if err := bookRepo.Create(ctx, book, genreIDs); err != nil {
				logger.Error("failed to save book", zap.String("title", entry.Title), zap.Error(err))
				continue
			}
			bookCount++

			for _, dc := range entry.Copies {
				status := dc.Status
				if status == entities.LoanStatusOnLoan {
					status = entities.LoanStatusAvailable
				}
				instance := &entities.BookInstance{BookID: book.ID, Imprint: dc.Imprint, Status: status}
				if err := instanceRepo.Insert(ctx, instance); err != nil {
					logger.Error("failed to save copy", zap.String("title", entry.Title), zap.Error(err))
					continue
				}
				copyCount++

				if dc.Status != entities.LoanStatusOnLoan {
					continue
				}
				if err := instanceRepo.Lend(ctx, instance.ID, member.ID, today.AddDate(0, 0, dc.DueIn)); err != nil {
					logger.Error("failed to lend copy", zap.String("id", instance.ID), zap.Error(err))
					continue
				}
				loanCount++
			}
		}
	}

	logger.Info("demo database generated",
		zap.Int("books", bookCount),
		zap.Int("copies", copyCount),
		zap.Int("loans", loanCount),
		zap.String("accounts", "librarian / reader"),
		zap.String("password", demoPassword),
	)
}

func parseDemoDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	date, err := clock.ParseDate(value)
	if err != nil {
		return nil
	}
	return &date
}

func demoCatalog() []demoAuthor {
	return []demoAuthor{
		{
			FirstName: "Jane", LastName: "Austen", Born: "1775-12-16", Died: "1817-07-18",
			Books: []demoBook{
				{
					Title:   "Pride and Prejudice",
					ISBN:    "9780141439518",
					Summary: "Elizabeth Bennet navigates manners, marriage and misjudgement in Regency England.",
					Genres:  []string{"Fiction", "Romance"},
					Copies: []demoCopy{
						{Imprint: "Penguin Classics, 2003", Status: entities.LoanStatusOnLoan, DueIn: 10},
						{Imprint: "Penguin Classics, 2003", Status: entities.LoanStatusAvailable},
						{Imprint: "T. Egerton, 1813", Status: entities.LoanStatusMaintenance},
					},
				},
				{
					Title:   "Emma",
					ISBN:    "9780141439587",
					Summary: "A young matchmaker meddles in the romantic lives of her neighbours.",
					Genres:  []string{"Fiction", "Romance"},
					Copies: []demoCopy{
						{Imprint: "Penguin Classics, 2003", Status: entities.LoanStatusReserved},
					},
				},
			},
		},
		{
			FirstName: "Herbert George", LastName: "Wells", Born: "1866-09-21", Died: "1946-08-13",
			Books: []demoBook{
				{
					Title:   "The Time Machine",
					ISBN:    "9780141439976",
					Summary: "A Victorian inventor travels to the year 802,701 and finds humanity divided.",
					Genres:  []string{"Science Fiction"},
					Copies: []demoCopy{
						{Imprint: "Penguin Classics, 2005", Status: entities.LoanStatusOnLoan, DueIn: -3},
						{Imprint: "Penguin Classics, 2005", Status: entities.LoanStatusAvailable},
					},
				},
				{
					Title:   "The War of the Worlds",
					ISBN:    "9780141441030",
					Summary: "Martians land in Surrey and overwhelm the British army.",
					Genres:  []string{"Science Fiction"},
					Copies: []demoCopy{
						{Imprint: "Penguin Classics, 2005", Status: entities.LoanStatusAvailable},
					},
				},
			},
		},
		{
			FirstName: "Mary", LastName: "Shelley", Born: "1797-08-30", Died: "1851-02-01",
			Books: []demoBook{
				{
					Title:   "Frankenstein",
					ISBN:    "9780141439471",
					Summary: "A young scientist creates a living being and abandons it.",
					Genres:  []string{"Fiction", "Science Fiction"},
					Copies: []demoCopy{
						{Imprint: "Penguin Classics, 2003", Status: entities.LoanStatusOnLoan, DueIn: 21},
						{Imprint: "Lackington, 1818", Status: entities.LoanStatusMaintenance},
					},
				},
			},
		},
		{
			FirstName: "Homer", LastName: "",
			Books: []demoBook{
				{
					Title:   "The Odyssey",
					ISBN:    "9780140268867",
					Summary: "Odysseus spends ten years finding his way home from Troy.",
					Genres:  []string{"Poetry", "Fantasy"},
					Copies: []demoCopy{
						{Imprint: "Penguin Classics, 1997", Status: entities.LoanStatusAvailable},
						{Imprint: "Penguin Classics, 1997", Status: entities.LoanStatusOnLoan, DueIn: -12},
					},
				},
			},
		},
		{
			FirstName: "Edward", LastName: "Gibbon", Born: "1737-05-08", Died: "1794-01-16",
			Books: []demoBook{
				{
					Title:   "The History of the Decline and Fall of the Roman Empire",
					ISBN:    "9780140437645",
					Summary: "Rome from the height of the empire to the fall of Constantinople.",
					Genres:  []string{"History"},
					Copies: []demoCopy{
						{Imprint: "Penguin Classics, 2000", Status: entities.LoanStatusAvailable},
					},
				},
			},
		},
	}
}
