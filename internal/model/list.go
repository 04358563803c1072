package model

// List is a named collection of tasks owned by a single user.
type List struct {
	ID     string `json:"_id"`
	Title  string `json:"title"`
	UserID string `json:"_userId"`
}

// ListPatch carries the optional fields of a list update. Nil fields are
// left untouched.
type ListPatch struct {
	Title *string `json:"title"`
}
