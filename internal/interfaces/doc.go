// Package interfaces documents the core abstractions used throughout the
// application and holds the compile-time checks tying them to their
// implementations.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - AuthorStore, BookStore, GenreLister: catalog reads and edits (internal/http/stores.go)
//   - InstanceStore: copies and the lend, renew and return workflows (internal/http/stores.go)
//   - UserFinder: borrower lookup for the lend form (internal/http/stores.go)
//   - StatsReader: home page counters (internal/http/stores.go)
//
// ## Auditing Interfaces
//
//   - Auditor, AuditLog: record and read catalog events (internal/http/stores.go)
//   - ReportRecorder, AuditEventCleaner: background report and retention (internal/tasks/)
//
// ## External Service Interfaces
//
//   - MetadataProvider: book metadata from external APIs (internal/metadata/enricher.go)
//   - CoverSource: cover images by ISBN (internal/http/stores.go)
//
// ## Background Work Interfaces
//
//   - TaskQueue: enqueue and poll tasks (internal/http/stores.go)
//   - Enqueuer: the scheduler's view of the queue (internal/scheduler/scheduler.go)
//   - OverdueLister: loans past their due date (internal/tasks/report_overdue.go)
//
// # Adding a New Metadata Provider
//
// Implement MetadataProvider next to OpenLibraryClient in internal/metadata/,
// add a check below and hand the client to metadata.NewEnricher in
// entrypoint.go. The enricher only fills fields that are still empty, so
// providers can be chained by running the enricher once per provider.
//
// # Adding a New Background Task
//
//  1. Define the task and its processor in internal/tasks/, following
//     report_overdue.go: a Config() naming the queue and a New...Queue
//     constructor returning backlite.Queue.
//
//  2. Register the queue in entrypoint.go and, if it should be started by
//     hand, list it in taskTypes in internal/http/tasks.go.
//
//  3. For recurring runs add a Job to scheduler.Jobs.
//
// # Compile-Time Interface Checks
//
// Implementations are checked at compile time so a missing method fails
// the build rather than a request:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go.
package interfaces
