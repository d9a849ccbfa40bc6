package types

import "github.com/m-mizutani/goerr/v2"

// Error tags classify provider and store failures structurally, so routing
// decisions never depend on upstream error-message wording.
var (
	// TagTokenExchange marks a failed authorization-code exchange.
	TagTokenExchange = goerr.NewTag("token_exchange")

	// TagConsentDeclined marks an exchange that failed because the user
	// declined consent. Always combined with TagTokenExchange.
	TagConsentDeclined = goerr.NewTag("consent_declined")

	// TagTokenRefresh marks a refresh failure: refresh token absent while
	// the access token is expiring, or rejected by the provider.
	TagTokenRefresh = goerr.NewTag("token_refresh")

	// TagFetch marks a failed aggregation request against the provider.
	TagFetch = goerr.NewTag("fetch")

	// TagFetchAuth marks a fetch that failed due to invalid or expired
	// credentials. Always combined with TagFetch.
	TagFetchAuth = goerr.NewTag("fetch_auth")

	// TagPersistence marks a failed store write.
	TagPersistence = goerr.NewTag("persistence")
)
