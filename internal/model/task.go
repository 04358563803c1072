package model

// Task is a single item inside a list.  Ownership is derived from the list:
// a task belongs to whoever owns ListID.
type Task struct {
	ID        string `json:"_id"`
	ListID    string `json:"_listId"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// TaskPatch carries the optional fields of a task update.
type TaskPatch struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
}
