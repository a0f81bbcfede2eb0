package models

import id "watchdesk/pkg/domain"

// Officer is a user as the case service sees it: enough to key a case and
// render who holds it.
type Officer struct {
	ID   id.UserID
	Name string
	Role id.Role
}
