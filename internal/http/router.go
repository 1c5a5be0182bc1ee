package http

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/locallibrary/internal/auth"
	"github.com/mrlokans/locallibrary/internal/entities"
	"github.com/mrlokans/locallibrary/internal/logging"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger.Named("http")

	router := gin.New()
	router.Use(logging.RequestID())
	router.Use(logging.Requests(logger))
	router.Use(logging.Recovery(logger))
	router.Use(auth.SecurityHeadersMiddleware())

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, cfg.AuthService))
	}
	router.Use(cfg.SessionManager.SessionLoadSave())
	router.Use(cfg.AuthMiddleware.Handler())
	if cfg.DemoMiddleware != nil {
		router.Use(cfg.DemoMiddleware.Handler())
	}

	tmpl := template.Must(template.New("").Funcs(templateFuncs).ParseGlob(cfg.TemplatesPath + "/*.html"))
	router.SetHTMLTemplate(tmpl)
	router.Static("/static", cfg.StaticPath)

	router.NoRoute(func(c *gin.Context) {
		if isAPIPath(c) {
			respondNotFound(c, "resource")
			return
		}
		renderNotFound(c, "Page not found")
	})

	mw := cfg.AuthMiddleware
	mw.OnForbidden(renderForbidden)
	requireLogin := mw.RequireAuth()
	canMarkReturned := mw.RequirePermission(entities.PermCanMarkReturned)
	adminOnly := mw.RequireRole(entities.UserRoleAdmin)
	canEdit := requireLogin
	if cfg.Catalog.EditRequiresPermission {
		canEdit = mw.RequirePermission(entities.PermCanEdit)
	}

	health := NewHealthController(cfg.Database, cfg.Clock, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", Ping)

	authController := auth.NewAuthController(cfg.AuthService, cfg.SessionManager, cfg.RateLimiter, logger)
	authController.OnLogin(func(c *gin.Context, user *entities.User) {
		a := actor(c)
		a.UserID = user.ID
		cfg.Auditor.LogAuth(a, "login", true)
	})
	authController.RegisterRoutes(router)

	tokens := auth.NewAPITokenController(cfg.AuthService)
	router.POST("/api/auth/token", requireLogin, tokens.GenerateToken)
	router.DELETE("/api/auth/token", requireLogin, tokens.RevokeToken)

	catalog := NewCatalogController(cfg.Authors, cfg.Books, cfg.Stats, cfg.SessionManager, cfg.Clock, cfg.Catalog.PageSize, logger)
	loans := NewLoansController(cfg.Instances, cfg.Users, cfg.Auditor, cfg.Clock, cfg.Catalog, logger)
	authors := NewAuthorsController(cfg.Authors, cfg.Auditor, logger)
	books := NewBooksController(cfg.Books, cfg.Authors, cfg.Genres, cfg.Instances, cfg.Auditor, cfg.Clock, logger)
	api := NewAPIController(cfg.Authors, cfg.Books, cfg.Instances, cfg.Tasks, cfg.Auditor, cfg.Clock, cfg.Catalog, logger)
	auditLog := NewAuditController(cfg.AuditLog, logger)
	taskRunner := NewTasksController(cfg.Tasks, logger)
	if cfg.Covers != nil {
		catalog.EnableCovers()
	}

	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/catalog/")
	})

	ui := router.Group("/catalog")
	{
		ui.GET("/", canMarkReturned, canEdit, catalog.Index)
		ui.GET("/books/", catalog.BookList)
		ui.GET("/book/:id", requireLogin, catalog.BookDetail)
		if cfg.Covers != nil {
			ui.GET("/book/:id/cover", requireLogin, NewCoversController(cfg.Covers, cfg.Books, logger).GetCover)
		}
		ui.GET("/authors/", catalog.AuthorList)
		ui.GET("/author/:id", canMarkReturned, catalog.AuthorDetail)

		ui.GET("/mybooks/", requireLogin, loans.MyBooks)
		ui.GET("/borrowed/", canMarkReturned, loans.Borrowed)
		ui.GET("/book/:id/renew/", canMarkReturned, loans.RenewPage)
		ui.POST("/book/:id/renew/", canMarkReturned, loans.Renew)
		ui.GET("/bookinstance/:id/lend/", canMarkReturned, loans.LendPage)
		ui.POST("/bookinstance/:id/lend/", canMarkReturned, loans.Lend)
		ui.POST("/bookinstance/:id/return/", canMarkReturned, loans.Return)

		ui.GET("/author/create/", canEdit, authors.CreatePage)
		ui.POST("/author/create/", canEdit, authors.Create)
		ui.GET("/author/:id/update/", canEdit, authors.UpdatePage)
		ui.POST("/author/:id/update/", canEdit, authors.Update)
		ui.GET("/author/:id/delete/", canEdit, authors.DeletePage)
		ui.POST("/author/:id/delete/", canEdit, authors.Delete)

		ui.GET("/book/create/", canEdit, books.CreatePage)
		ui.POST("/book/create/", canEdit, books.Create)
		ui.GET("/book/:id/update/", canEdit, books.UpdatePage)
		ui.POST("/book/:id/update/", canEdit, books.Update)
		ui.GET("/book/:id/delete/", canEdit, books.DeletePage)
		ui.POST("/book/:id/delete/", canEdit, books.Delete)
		ui.POST("/book/:id/copies/", canEdit, books.AddCopy)

		ui.GET("/audit/", adminOnly, auditLog.AuditLogPage)
	}

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/books", api.ListBooks)
		apiGroup.GET("/books/:id", requireLogin, api.GetBook)
		apiGroup.POST("/books/:id/enrich", canEdit, api.EnrichBook)
		apiGroup.GET("/authors", api.ListAuthors)
		apiGroup.GET("/authors/:id", canMarkReturned, api.GetAuthor)
		apiGroup.GET("/loans/mine", requireLogin, api.MyLoans)
		apiGroup.GET("/loans", canMarkReturned, api.AllLoans)
		apiGroup.POST("/loans/:id/renew", canMarkReturned, api.RenewLoan)

		apiGroup.GET("/audit", adminOnly, auditLog.GetAuditEvents)
		apiGroup.GET("/tasks/types", canEdit, taskRunner.ListTaskTypes)
		apiGroup.GET("/tasks/:id", canEdit, taskRunner.GetTaskStatus)
		apiGroup.POST("/tasks/:id/run", adminOnly, taskRunner.RunTask)
	}

	return router
}

func isAPIPath(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, "/api/")
}
