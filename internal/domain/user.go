package domain

// User is the slice of the user directory this workflow needs: id/username
// resolution for display and an email address for notifications.
type User struct {
	ID       string `json:"-"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Actor is the already-authenticated identity performing an action.
// Authorization decisions happen upstream; the workflow only records who.
type Actor struct {
	ID       string
	Username string
}
