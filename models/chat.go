package models

import "time"

// Chat is one persisted question/response exchange owned by a user
type Chat struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Question  string    `json:"question"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

// DeleteAllChats is the chat id that asks for every chat of the caller to be removed
const DeleteAllChats int64 = 0
