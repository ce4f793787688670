package domain

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID    string
	Role      Role
	IP        string
	UserAgent string
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// SystemActor is used for changes not caused by a user, such as webhooks.
var SystemActor = Actor{UserID: "system"}
