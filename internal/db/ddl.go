// Package db carries the generated SQL DDL for the comic schema. The
// statements are applied in order by cmd/schema; each one is idempotent so the
// tool can be re-run safely.
package db

// DDL lists the schema statements in application order.
var DDL = []string{
	DDLComics,
	DDLPanels,
	DDLCharacters,
	DDLSetUpdatedAtFn,
	DDLComicsUpdatedAtTrigger,
}

const DDLComics = `
CREATE TABLE IF NOT EXISTS comics (
    comic_id         bigserial PRIMARY KEY,
    user_id          bigint NOT NULL,
    comic_name       text NOT NULL,
    title            text NOT NULL,
    genre            text NOT NULL DEFAULT '',
    keywords         text[] NOT NULL DEFAULT '{}',
    description      text NOT NULL DEFAULT '',
    cover_image_path text NOT NULL DEFAULT '',
    created_at       timestamptz NOT NULL DEFAULT now(),
    updated_at       timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_comics_user_id ON comics (user_id);
`

const DDLPanels = `
CREATE TABLE IF NOT EXISTS panels (
    panel_id     bigserial PRIMARY KEY,
    comic_id     bigint NOT NULL REFERENCES comics (comic_id) ON DELETE CASCADE,
    panel_index  int NOT NULL,
    text         text NOT NULL DEFAULT '',
    image_prompt text NOT NULL DEFAULT '',
    image_path   text NOT NULL DEFAULT '',
    UNIQUE (comic_id, panel_index)
);
`

const DDLCharacters = `
CREATE TABLE IF NOT EXISTS characters (
    character_id        bigserial PRIMARY KEY,
    comic_id            bigint NOT NULL REFERENCES comics (comic_id) ON DELETE CASCADE,
    name                text NOT NULL,
    appearance          text NOT NULL DEFAULT '',
    detailed_appearance text NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_characters_comic_id ON characters (comic_id);
`

// updated_at on comics is maintained by trigger rather than application code.
const DDLSetUpdatedAtFn = `
CREATE OR REPLACE FUNCTION set_updated_at() RETURNS trigger AS $$
BEGIN
    NEW.updated_at = now();
    RETURN NEW;
END;
$$ LANGUAGE plpgsql;
`

const DDLComicsUpdatedAtTrigger = `
DROP TRIGGER IF EXISTS comics_set_updated_at ON comics;
CREATE TRIGGER comics_set_updated_at
    BEFORE UPDATE ON comics
    FOR EACH ROW
    EXECUTE FUNCTION set_updated_at();
`
