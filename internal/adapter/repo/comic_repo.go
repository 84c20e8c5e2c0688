package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storybook/internal/domain"
)

// ComicRepositoryPG implements domain.ComicRepository.
type ComicRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewComicRepository creates a new comic repository backed by PostgreSQL.
func NewComicRepository(pool *pgxpool.Pool) *ComicRepositoryPG {
	return &ComicRepositoryPG{pool: pool}
}

// CreateComic inserts the comic together with its panels and characters in a
// single transaction.
func (r *ComicRepositoryPG) CreateComic(ctx context.Context, comic *domain.Comic, panels []domain.Panel, characters []domain.Character) (*domain.Comic, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const insertComic = `
INSERT INTO comics (user_id, comic_name, title, genre, keywords, description, cover_image_path)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING comic_id, created_at, updated_at;
`
	created := *comic
	row := tx.QueryRow(ctx, insertComic,
		comic.UserID,
		comic.ComicName,
		comic.Title,
		comic.Genre,
		comic.Keywords,
		comic.Description,
		comic.CoverImagePath,
	)
	if err := row.Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert comic: %w", err)
	}

	const insertPanel = `
INSERT INTO panels (comic_id, panel_index, text, image_prompt, image_path)
VALUES ($1, $2, $3, $4, $5);
`
	for _, panel := range panels {
		if _, err := tx.Exec(ctx, insertPanel, created.ID, panel.PanelIndex, panel.Text, panel.ImagePrompt, panel.ImagePath); err != nil {
			return nil, fmt.Errorf("insert panel %d: %w", panel.PanelIndex, err)
		}
	}

	const insertCharacter = `
INSERT INTO characters (comic_id, name, appearance, detailed_appearance)
VALUES ($1, $2, $3, $4);
`
	for _, character := range characters {
		if _, err := tx.Exec(ctx, insertCharacter, created.ID, character.Name, character.Appearance, character.DetailedAppearance); err != nil {
			return nil, fmt.Errorf("insert character %q: %w", character.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &created, nil
}

// GetComic fetches a comic by its identifier.
func (r *ComicRepositoryPG) GetComic(ctx context.Context, comicID int64) (*domain.Comic, error) {
	const query = `
SELECT comic_id, user_id, comic_name, title, genre, keywords, description, cover_image_path, created_at, updated_at
FROM comics
WHERE comic_id = $1;
`
	row := r.pool.QueryRow(ctx, query, comicID)
	var comic domain.Comic
	if err := row.Scan(
		&comic.ID,
		&comic.UserID,
		&comic.ComicName,
		&comic.Title,
		&comic.Genre,
		&comic.Keywords,
		&comic.Description,
		&comic.CoverImagePath,
		&comic.CreatedAt,
		&comic.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &comic, nil
}

// ListComicsByUser returns all comics for a user, newest first.
func (r *ComicRepositoryPG) ListComicsByUser(ctx context.Context, userID int64) ([]domain.Comic, error) {
	const query = `
SELECT comic_id, user_id, comic_name, title, genre, keywords, description, cover_image_path, created_at, updated_at
FROM comics
WHERE user_id = $1
ORDER BY created_at DESC;
`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comics []domain.Comic
	for rows.Next() {
		var comic domain.Comic
		if err := rows.Scan(
			&comic.ID,
			&comic.UserID,
			&comic.ComicName,
			&comic.Title,
			&comic.Genre,
			&comic.Keywords,
			&comic.Description,
			&comic.CoverImagePath,
			&comic.CreatedAt,
			&comic.UpdatedAt,
		); err != nil {
			return nil, err
		}
		comics = append(comics, comic)
	}
	return comics, rows.Err()
}

// ListPanels returns the panels of a comic ordered by panel index.
func (r *ComicRepositoryPG) ListPanels(ctx context.Context, comicID int64) ([]domain.Panel, error) {
	const query = `
SELECT panel_id, comic_id, panel_index, text, image_prompt, image_path
FROM panels
WHERE comic_id = $1
ORDER BY panel_index;
`
	rows, err := r.pool.Query(ctx, query, comicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var panels []domain.Panel
	for rows.Next() {
		var panel domain.Panel
		if err := rows.Scan(&panel.ID, &panel.ComicID, &panel.PanelIndex, &panel.Text, &panel.ImagePrompt, &panel.ImagePath); err != nil {
			return nil, err
		}
		panels = append(panels, panel)
	}
	return panels, rows.Err()
}

// ListCharacters returns the characters attached to a comic.
func (r *ComicRepositoryPG) ListCharacters(ctx context.Context, comicID int64) ([]domain.Character, error) {
	const query = `
SELECT character_id, comic_id, name, appearance, detailed_appearance
FROM characters
WHERE comic_id = $1
ORDER BY character_id;
`
	rows, err := r.pool.Query(ctx, query, comicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var characters []domain.Character
	for rows.Next() {
		var character domain.Character
		if err := rows.Scan(&character.ID, &character.ComicID, &character.Name, &character.Appearance, &character.DetailedAppearance); err != nil {
			return nil, err
		}
		characters = append(characters, character)
	}
	return characters, rows.Err()
}

// UpdatePanelImage records the stored image path for a panel.
func (r *ComicRepositoryPG) UpdatePanelImage(ctx context.Context, panelID int64, imagePath string) error {
	const query = `
UPDATE panels SET image_path = $2 WHERE panel_id = $1;
`
	tag, err := r.pool.Exec(ctx, query, panelID, imagePath)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateComicCover records the stored cover image path for a comic. The
// comics updated_at column advances via trigger.
func (r *ComicRepositoryPG) UpdateComicCover(ctx context.Context, comicID int64, imagePath string) error {
	const query = `
UPDATE comics SET cover_image_path = $2 WHERE comic_id = $1;
`
	tag, err := r.pool.Exec(ctx, query, comicID, imagePath)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.ComicRepository = (*ComicRepositoryPG)(nil)
