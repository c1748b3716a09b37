package database

const schema = `
CREATE TABLE IF NOT EXISTS images (
    id TEXT PRIMARY KEY,
    format TEXT NOT NULL DEFAULT 'jpeg',
    filename TEXT NOT NULL DEFAULT '',
    width INTEGER NOT NULL DEFAULT 0,
    height INTEGER NOT NULL DEFAULT 0,
    file_size INTEGER NOT NULL DEFAULT 0,
    uploaded DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS sizes (
    image_id TEXT NOT NULL REFERENCES images (id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    width INTEGER NOT NULL DEFAULT 0,
    height INTEGER NOT NULL DEFAULT 0,
    file_size INTEGER NOT NULL DEFAULT 0,
    created DATETIME NOT NULL,
    PRIMARY KEY (image_id, name)
);

CREATE TABLE IF NOT EXISTS size_presets (
    name TEXT PRIMARY KEY,
    fit TEXT NOT NULL DEFAULT 'downsize',
    width INTEGER NOT NULL DEFAULT 0,
    height INTEGER NOT NULL DEFAULT 0,
    background TEXT NOT NULL DEFAULT '',
    quality INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_images_uploaded ON images (uploaded, id);
`
