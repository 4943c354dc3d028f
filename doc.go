// Package stackauth authenticates API requests that carry a Stack Exchange
// access token.
//
// The package defines the contract between a host and its pluggable
// authentication strategies, and the host side of that contract:
//
// Strategy: a named handler that inspects a request and signals exactly one
// Outcome: Success(user, info), Fail(info) or Error(err).  A failure means
// "this is not an authenticated request"; an error means something broke.
//
// Middleware: registers strategies by name and runs them in order for a
// route.  The first success stores the user in the request context (see
// UserFromContext); if every strategy fails the request gets a 401 or a
// redirect; an error gets a 500.
//
// Profile: the provider agnostic identity a strategy hands to the
// application's verify callback.
//
// # Basic Usage
//
//	strategy, err := stackexchange.New(stackexchange.Options{
//	    StackAppsKey: os.Getenv("STACKEXCHANGE_KEY"),
//	    Verify:       stores.ChannelVerifier(userStore, channelStore),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	mw := (&stackauth.Middleware{}).Use(strategy)
//	mux := http.NewServeMux()
//	mux.Handle("/api/me", mw.Authenticate(strategy.Name())(http.HandlerFunc(
//	    func(w http.ResponseWriter, r *http.Request) {
//	        user := stackauth.UserFromContext(r.Context())
//	        fmt.Fprintf(w, "hello %s", user.Id())
//	    })))
//
// Clients present the token as an access_token body field, query parameter
// or header, or as an "Authorization: Bearer" header.
//
// # Sessions
//
// Set Middleware.Sessions to a SessionIssuer to mint a signed JWT and record
// the user id in an scs session after a successful authentication.
//
// # Testing
//
// Strategies can be exercised without a host using Run, which records the
// outcome in a Result.  Provider endpoints are overridable so tests can point
// them at an httptest.Server.
package stackauth
