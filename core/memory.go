package core

import "time"

// Role labels the author of a memory record.
type Role string

// Conversation roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// MemoryRecord is one remembered item. Conversation records are retained
// until the owning conversation is deleted; vector records may be evicted by
// age/capacity policy.
type MemoryRecord struct {
	ID        string         `json:"id"`
	ThreadID  string         `json:"thread_id"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Embedding []float32      `json:"-"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewMemoryRecord constructs a record stamped with the current UTC time.
func NewMemoryRecord(threadID string, role Role, content string) MemoryRecord {
	return MemoryRecord{
		ID:        NewID(),
		ThreadID:  threadID,
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}
