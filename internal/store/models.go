package store

import "time"

const (
	SenderUser = "user"
	SenderAI   = "ai"
)

type User struct {
	ID        string    `json:"id"` // UUID
	Name      string    `json:"name"`
	Email     string    `json:"email"` // Unique across the directory
	Password  string    `json:"password"`
	CreatedAt time.Time `json:"createdAt"`
	Chats     []Chat    `json:"chats"`
}

type Chat struct {
	ID        string    `json:"id"` // UUID
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	Messages  []Message `json:"messages"`
}

type Message struct {
	ID        string    `json:"id"` // UUID
	Content   string    `json:"content"`
	Sender    string    `json:"sender"` // "user" or "ai"
	Timestamp time.Time `json:"timestamp"`
}
