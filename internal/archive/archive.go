// Package archive keeps a write-behind audit trail of contacts and messages.
// The engine never reads it back: conversation state is process-lifetime
// only, the archive exists for reporting.
package archive

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"salesbot-gateway/internal/config"
	"salesbot-gateway/internal/models"
)

// Contact is the archived contact row.
type Contact struct {
	Phone     string    `gorm:"primaryKey" json:"phone"`
	Name      string    `gorm:"type:varchar(255)" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Contact) TableName() string {
	return "contacts"
}

// Message is the archived message row.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Phone     string    `gorm:"index;not null" json:"phone"`
	Content   string    `gorm:"type:text" json:"content"`
	Direction string    `gorm:"type:varchar(20)" json:"direction"`
	SentAt    time.Time `json:"sent_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}

type record struct {
	contact *Contact
	message *Message
}

// Archive applies records asynchronously through a single writer goroutine.
// A full queue drops records rather than stalling the engine.
type Archive struct {
	db    *gorm.DB
	queue chan record
	done  chan struct{}
}

// Open connects, migrates, and starts the writer. Postgres when DBHost is
// configured, sqlite at DBPath otherwise.
func Open(cfg *config.Config) (*Archive, error) {
	var dialector gorm.Dialector
	if cfg.DBHost != "" {
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(cfg.DBPath)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Contact{}, &Message{}); err != nil {
		return nil, err
	}

	a := &Archive{
		db:    db,
		queue: make(chan record, 256),
		done:  make(chan struct{}),
	}
	go a.writer()
	return a, nil
}

func (a *Archive) writer() {
	defer close(a.done)
	for rec := range a.queue {
		if rec.contact != nil {
			err := a.db.Where(Contact{Phone: rec.contact.Phone}).
				Attrs(Contact{Name: rec.contact.Name}).
				FirstOrCreate(&Contact{}).Error
			if err != nil {
				log.Error().Err(err).Str("phone", rec.contact.Phone).Msg("archive contact")
			}
		}
		if rec.message != nil {
			if err := a.db.Create(rec.message).Error; err != nil {
				log.Error().Err(err).Str("phone", rec.message.Phone).Msg("archive message")
			}
		}
	}
}

// RecordContact queues a contact upsert.
func (a *Archive) RecordContact(phone, name string) {
	a.enqueue(record{contact: &Contact{Phone: phone, Name: name}})
}

// RecordMessage queues a message append.
func (a *Archive) RecordMessage(phone, text string, direction models.Direction, ts time.Time) {
	a.enqueue(record{message: &Message{
		Phone:     phone,
		Content:   text,
		Direction: string(direction),
		SentAt:    ts,
	}})
}

func (a *Archive) enqueue(rec record) {
	select {
	case a.queue <- rec:
	default:
		log.Warn().Msg("archive queue full, dropping record")
	}
}

// Close drains the queue and stops the writer.
func (a *Archive) Close() {
	close(a.queue)
	<-a.done
}
