package models

// DescriptionMaxLength is the longest description, in characters, a task may carry.
const DescriptionMaxLength = 20

// Task is the read representation of a stored task.
type Task struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Completed   bool    `json:"completed"`
}

// TaskAdd is the validated payload of a create request.
type TaskAdd struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Completed   bool    `json:"completed"`
}

// OK is the uniform success envelope.
type OK struct {
	OK bool `json:"ok"`
}

// Success returns the {"ok": true} envelope.
func Success() OK {
	return OK{OK: true}
}
