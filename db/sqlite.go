package db

import (
	"embed"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/galleryscreen/mosaic/models"

	_ "modernc.org/sqlite"
)

type SqliteStore struct {
	DB *sqlx.DB
}

func NewSqliteStore(dsn string) (Store, error) {
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &SqliteStore{
		DB: db,
	}, nil
}

func (s *SqliteStore) ApplyMigrations(migrations embed.FS) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect(string(goose.DialectSQLite3)); err != nil {
		return err
	}

	if err := goose.Up(s.DB.DB, "."); err != nil {
		return err
	}

	return nil
}

func (s *SqliteStore) UpsertPhoto(photo models.DBPhoto) error {
	_, err := s.DB.NamedExec(`
	  INSERT INTO photos
	  (id, primary_url, thumbnail_url, source_kind, first_seen_at, image, dominant_colours)
	  VALUES (:id, :primary_url, :thumbnail_url, :source_kind, :first_seen_at, :image, :dominant_colours)
	  ON CONFLICT (id) DO UPDATE SET image = excluded.image, dominant_colours = excluded.dominant_colours`,
		photo)
	return err
}

func (s *SqliteStore) GetPhotos() ([]models.DBPhoto, error) {
	photos := []models.DBPhoto{}
	if err := s.DB.Select(&photos, "SELECT id, primary_url, thumbnail_url, source_kind, first_seen_at, image, dominant_colours FROM photos ORDER BY first_seen_at asc"); err != nil {
		return photos, err
	}
	return photos, nil
}

func (s *SqliteStore) RecordTransition(transition models.DBTransition) error {
	_, err := s.DB.Exec(
		"INSERT INTO transitions (occurred_at, cursor, photo_ids) VALUES (?, ?, ?)",
		transition.OccurredAt,
		transition.Cursor,
		transition.PhotoIDs,
	)
	return err
}

func (s *SqliteStore) GetRecentTransitions(limit int) ([]models.DBTransition, error) {
	transitions := []models.DBTransition{}
	if err := s.DB.Select(&transitions, "SELECT id, occurred_at, cursor, photo_ids FROM transitions ORDER BY occurred_at desc LIMIT ?", limit); err != nil {
		return transitions, err
	}
	return transitions, nil
}
