package testutil

import (
	"net/http"

	id "watchdesk/pkg/domain"
	"watchdesk/pkg/requestcontext"
)

// AsUser adds the (user, role) principal to the request context, which is
// what the auth middleware does for authenticated requests.
func AsUser(req *http.Request, userID id.UserID, role id.Role) *http.Request {
	return req.WithContext(requestcontext.WithPrincipal(req.Context(), userID, role))
}
