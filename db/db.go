package db

import (
	"embed"

	"github.com/galleryscreen/mosaic/models"
)

type Store interface {
	ApplyMigrations(migrations embed.FS) error
	UpsertPhoto(photo models.DBPhoto) error
	GetPhotos() ([]models.DBPhoto, error)
	RecordTransition(transition models.DBTransition) error
	GetRecentTransitions(limit int) ([]models.DBTransition, error)
}
