// Package auth identifies callers and guards catalog pages.
//
// Two modes are supported:
//   - "local" (default): users live in the catalog database, browsers log in
//     with a session cookie and API clients send a bearer token
//   - "none": every request acts as a built-in administrator and all guards pass
//
// # Sessions
//
// Sessions are kept in the catalog database through scs and exist for
// anonymous visitors too: the home page stores its visit counter there.
//
// # Guards
//
// Middleware.Handler only identifies the caller. Routes opt in to protection:
//
//	catalog.GET("/mybooks/", authMW.RequireAuth(), loans.MyBooks)
//	catalog.GET("/borrowed/", authMW.RequirePermission(entities.PermCanMarkReturned), loans.Borrowed)
//
// Anonymous browsers are redirected to /accounts/login/?next=<path>, API
// clients get 401. Authenticated callers without the permission get 403.
//
// # Configuration
//
//	AUTH_MODE=local
//	AUTH_SESSION_SECRET=<32 bytes>  # CSRF key, auto-generated if empty
//	AUTH_SESSION_LIFETIME=24h
//	AUTH_TOKEN_EXPIRY=720h
//	AUTH_BCRYPT_COST=12
//	AUTH_SECURE_COOKIES=true
package auth
