package http

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mrlokans/locallibrary/internal/audit"
	"github.com/mrlokans/locallibrary/internal/auth"
	"github.com/mrlokans/locallibrary/internal/clock"
	"github.com/mrlokans/locallibrary/internal/config"
	"github.com/mrlokans/locallibrary/internal/database"
	auditrepo "github.com/mrlokans/locallibrary/internal/database/audit"
	"github.com/mrlokans/locallibrary/internal/database/authors"
	"github.com/mrlokans/locallibrary/internal/database/books"
	"github.com/mrlokans/locallibrary/internal/database/dbtest"
	"github.com/mrlokans/locallibrary/internal/database/genres"
	"github.com/mrlokans/locallibrary/internal/database/instances"
	"github.com/mrlokans/locallibrary/internal/database/stats"
	"github.com/mrlokans/locallibrary/internal/database/users"
	"github.com/mrlokans/locallibrary/internal/demo"
	"github.com/mrlokans/locallibrary/internal/entities"
)

const testPassword = "correct-horse-battery"

// testNow is a Tuesday afternoon; the catalog's today is 2026-03-10.
var testNow = time.Date(2026, 3, 10, 15, 4, 5, 0, time.UTC)

var testToday = clock.Date(testNow)

type stubQueue struct {
	tasks []backlite.Task
}

func (q *stubQueue) Enqueue(_ context.Context, task backlite.Task) (string, error) {
	q.tasks = append(q.tasks, task)
	return "task-" + strconv.Itoa(len(q.tasks)), nil
}

func (q *stubQueue) Status(_ context.Context, taskID string) (backlite.TaskStatus, error) {
	for i := range q.tasks {
		if taskID == "task-"+strconv.Itoa(i+1) {
			return backlite.TaskStatusPending, nil
		}
	}
	return backlite.TaskStatusNotFound, nil
}

type testEnv struct {
	db        *database.Database
	router    *gin.Engine
	auth      *auth.Service
	authors   *authors.Repository
	books     *books.Repository
	genres    *genres.Repository
	instances *instances.Repository
	users     *users.Repository
	queue     *stubQueue
	auditor   *audit.Service
	isbnSeq   int
}

type envSettings struct {
	auth    config.Auth
	catalog config.Catalog
	demo    bool
	noTasks bool
	covers  CoverSource
}

type envOption func(*envSettings)

func withAuthMode(mode config.AuthMode) envOption {
	return func(s *envSettings) { s.auth.Mode = mode }
}

func withDemo() envOption {
	return func(s *envSettings) { s.demo = true }
}

func withoutEditPermission() envOption {
	return func(s *envSettings) { s.catalog.EditRequiresPermission = false }
}

func withoutTasks() envOption {
	return func(s *envSettings) { s.noTasks = true }
}

func withCovers(source CoverSource) envOption {
	return func(s *envSettings) { s.covers = source }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := dbtest.Open(t)
	sqlDB, err := db.DB.DB()
	require.NoError(t, err)

	settings := envSettings{
		auth: config.Auth{
			Mode:             config.AuthModeLocal,
			SessionLifetime:  time.Hour,
			TokenExpiry:      24 * time.Hour,
			BcryptCost:       4,
			MaxLoginAttempts: 5,
		},
		catalog: config.Catalog{
			PageSize:               config.DefaultPageSize,
			RenewalProposal:        config.DefaultRenewalProposal,
			RenewalMaxAhead:        config.DefaultRenewalMaxAhead,
			LoanPeriod:             config.DefaultLoanPeriod,
			EditRequiresPermission: true,
		},
	}
	for _, opt := range opts {
		opt(&settings)
	}
	authCfg := settings.auth

	env := &testEnv{
		db:        db,
		authors:   authors.NewRepository(db.DB),
		books:     books.NewRepository(db.DB),
		genres:    genres.NewRepository(db.DB),
		instances: instances.NewRepository(db.DB),
		users:     users.NewRepository(db.DB),
		queue:     &stubQueue{},
	}
	rc := RouterConfig{}
	if settings.demo {
		rc.DemoMiddleware = demo.NewMiddleware(true)
	}
	if !settings.noTasks {
		rc.Tasks = env.queue
	}
	rc.Covers = settings.covers

	clk := clock.Fixed{At: testNow}
	env.auth = auth.NewService(env.users, authCfg, clk)
	sm, err := auth.NewSessionManager(sqlDB, authCfg)
	require.NoError(t, err)
	rl := auth.NewRateLimiter(auth.RateLimitConfig{MaxAttempts: 100}, clk)
	t.Cleanup(rl.Stop)

	auditor := audit.NewService(auditrepo.NewRepository(db.DB), zap.NewNop())
	t.Cleanup(auditor.Wait)
	env.auditor = auditor

	rc.Database = db
	rc.Authors = env.authors
	rc.Books = env.books
	rc.Genres = env.genres
	rc.Instances = env.instances
	rc.Users = env.users
	rc.Stats = stats.NewReader(sqlDB)
	rc.AuthService = env.auth
	rc.AuthMiddleware = auth.NewMiddleware(env.auth, sm, authCfg)
	rc.SessionManager = sm
	rc.RateLimiter = rl
	rc.Auditor = auditor
	rc.AuditLog = auditor
	rc.Catalog = settings.catalog
	rc.Clock = clk
	rc.Logger = zap.NewNop()
	rc.TemplatesPath = "../../templates"
	rc.StaticPath = "../../static"
	rc.Version = "test"

	env.router = NewRouter(rc)
	return env
}

// --- fixtures ---

func (env *testEnv) createUser(t *testing.T, username string, role entities.UserRole) *entities.User {
	t.Helper()
	user, err := env.auth.CreateUser(context.Background(), username, username+"@example.com", testPassword, role)
	require.NoError(t, err)
	return user
}

func (env *testEnv) createAuthor(t *testing.T, first, last string) *entities.Author {
	t.Helper()
	author := &entities.Author{FirstName: first, LastName: last}
	require.NoError(t, env.authors.Insert(context.Background(), author))
	return author
}

func (env *testEnv) genreID(t *testing.T, name string) uint {
	t.Helper()
	genre, err := env.genres.GetOrCreate(context.Background(), name)
	require.NoError(t, err)
	return genre.ID
}

func (env *testEnv) createBook(t *testing.T, title string, author *entities.Author) *entities.Book {
	t.Helper()
	book := &entities.Book{Title: title, Summary: "About " + title, ISBN: fmt.Sprintf("978%010d", env.isbnSeq)}
	env.isbnSeq++
	if author != nil {
		book.AuthorID = &author.ID
	}
	require.NoError(t, env.books.Create(context.Background(), book, []uint{env.genreID(t, "Fiction")}))
	return book
}

// createLoan adds a copy of the book lent to borrower until due.
func (env *testEnv) createLoan(t *testing.T, book *entities.Book, borrower *entities.User, due time.Time) *entities.BookInstance {
	t.Helper()
	bi := &entities.BookInstance{BookID: book.ID, Imprint: "First edition", Status: entities.LoanStatusAvailable}
	require.NoError(t, env.instances.Insert(context.Background(), bi))
	require.NoError(t, env.instances.Lend(context.Background(), bi.ID, borrower.ID, due))
	return bi
}

func (env *testEnv) createCopy(t *testing.T, book *entities.Book, status entities.LoanStatus) *entities.BookInstance {
	t.Helper()
	bi := &entities.BookInstance{BookID: book.ID, Imprint: "Paperback", Status: status}
	require.NoError(t, env.instances.Insert(context.Background(), bi))
	return bi
}

func (env *testEnv) reloadInstance(t *testing.T, id string) *entities.BookInstance {
	t.Helper()
	bi, err := env.instances.FindByID(context.Background(), id)
	require.NoError(t, err)
	return bi
}

// --- requests ---

// login signs the user in through the login form and returns the session cookie.
func (env *testEnv) login(t *testing.T, username string) *http.Cookie {
	t.Helper()
	w := env.postForm("/accounts/login/", url.Values{
		"username": {username},
		"password": {testPassword},
	}, nil)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	return sessionCookie(t, w)
}

func (env *testEnv) token(t *testing.T, user *entities.User) string {
	t.Helper()
	token, err := env.auth.GenerateToken(context.Background(), user.ID)
	require.NoError(t, err)
	return token
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	t.Fatalf("response has no %s cookie", auth.SessionCookieName)
	return nil
}

func (env *testEnv) get(path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func (env *testEnv) postForm(path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

// api performs a JSON request authenticated with a bearer token, if given.
func (env *testEnv) api(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Accept", "application/json")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}
