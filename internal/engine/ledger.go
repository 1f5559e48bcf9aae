package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"salesbot-gateway/internal/models"
)

// Ledger owns every Customer record and its message history for the lifetime
// of the process. History is append-only; any "last N" view is a read-time
// projection done by the caller.
type Ledger struct {
	mu        sync.RWMutex
	customers map[string]*models.Customer
}

func NewLedger() *Ledger {
	return &Ledger{customers: make(map[string]*models.Customer)}
}

// Ensure creates the customer on first contact and returns a snapshot.
// Calling it again for the same phone is a no-op returning the same record.
func (l *Ledger) Ensure(phone, defaultName string) models.Customer {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.customers[phone]
	if !ok {
		c = &models.Customer{
			Phone:     phone,
			Name:      defaultName,
			StartTime: time.Now(),
		}
		l.customers[phone] = c
	}
	return copyCustomer(c)
}

// AppendMessage appends to an ensured customer's history.
func (l *Ledger) AppendMessage(phone, text string, direction models.Direction, ts time.Time) (models.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.customers[phone]
	if !ok {
		return models.Message{}, ErrUnknownCustomer
	}

	msg := models.Message{
		ID:        uuid.NewString(),
		Text:      text,
		Timestamp: ts,
		Direction: direction,
	}
	c.Messages = append(c.Messages, msg)
	return msg, nil
}

// Snapshot returns a deep copy of the customer record.
func (l *Ledger) Snapshot(phone string) (models.Customer, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c, ok := l.customers[phone]
	if !ok {
		return models.Customer{}, ErrNotFound
	}
	return copyCustomer(c), nil
}

// List returns a snapshot of every customer. Order is unspecified but stable
// for the returned slice.
func (l *Ledger) List() []models.Customer {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.Customer, 0, len(l.customers))
	for _, c := range l.customers {
		out = append(out, copyCustomer(c))
	}
	return out
}

// Count returns the number of known customers.
func (l *Ledger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.customers)
}

func copyCustomer(c *models.Customer) models.Customer {
	out := *c
	out.Messages = make([]models.Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	return out
}
