package model

// List is a named group of tasks owned by one user.
type List struct {
	ID     string `json:"_id" bson:"_id"`
	Title  string `json:"title" bson:"title"`
	UserID string `json:"_userId" bson:"_userId"`
}

// Task belongs to a List. Ownership is checked through the list.
type Task struct {
	ID        string `json:"_id" bson:"_id"`
	Title     string `json:"title" bson:"title"`
	ListID    string `json:"_listId" bson:"_listId"`
	Completed bool   `json:"completed" bson:"completed"`
}

// ListRequest represents a list creation or update request.
// A nil Title on update leaves the title unchanged.
type ListRequest struct {
	Title *string `json:"title"`
}

// TaskRequest represents a task creation or update request.
// Nil fields on update are left unchanged.
type TaskRequest struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
}

// MessageResponse is returned by update endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}
