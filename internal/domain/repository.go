package domain

import "context"

// ComicRepository persists generated storybooks and their parts. CreateComic
// writes the comic, its panels and its characters atomically.
type ComicRepository interface {
	CreateComic(ctx context.Context, comic *Comic, panels []Panel, characters []Character) (*Comic, error)
	GetComic(ctx context.Context, comicID int64) (*Comic, error)
	ListComicsByUser(ctx context.Context, userID int64) ([]Comic, error)
	ListPanels(ctx context.Context, comicID int64) ([]Panel, error)
	ListCharacters(ctx context.Context, comicID int64) ([]Character, error)
	UpdatePanelImage(ctx context.Context, panelID int64, imagePath string) error
	UpdateComicCover(ctx context.Context, comicID int64, imagePath string) error
}
