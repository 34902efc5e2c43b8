package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Document is one entry in the knowledge base. Textual documents keep their
// content inline; binary documents (images, PDFs) keep their payload in the
// blob store under BlobKey and only carry metadata here.
type Document struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"not null"`
	Type      string    `gorm:"size:20;not null"`
	MimeType  string
	Content   string
	BlobKey   string
	Timestamp time.Time
}

type Message struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Role        string    `gorm:"size:10;not null"`
	Text        string
	Sources     datatypes.JSON
	Attachments datatypes.JSON
	Timestamp   time.Time `gorm:"index"`
}

type Preference struct {
	Key   string `gorm:"primaryKey"`
	Value string
}
