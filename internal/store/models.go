package store

import "time"

type Account struct {
	ID           string
	Handle       string
	DisplayName  string
	Badges       []string
	IsPublic     bool
	ShowActivity bool
	DiscordID    string
	CreatedAt    time.Time
}

// AccountCreated is the projection the CDC poller reads.
type AccountCreated struct {
	ID          string
	Handle      string
	DisplayName string
	CreatedAt   time.Time
}

type SyncCursor struct {
	Name      string
	CursorAt  time.Time
	UpdatedAt time.Time
}
