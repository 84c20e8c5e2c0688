package domain

import "time"

// Comic is a persisted storybook owned by a user.
type Comic struct {
	ID             int64
	UserID         int64
	ComicName      string
	Title          string
	Genre          string
	Keywords       []string
	Description    string
	CoverImagePath string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Panel is one persisted page of a comic. ImagePrompt keeps the prompt the
// panel illustration was (or will be) generated from.
type Panel struct {
	ID          int64
	ComicID     int64
	PanelIndex  int
	Text        string
	ImagePrompt string
	ImagePath   string
}

// Character is a persisted entity description attached to a comic.
type Character struct {
	ID                 int64
	ComicID            int64
	Name               string
	Appearance         string
	DetailedAppearance string
}
