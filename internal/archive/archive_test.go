package archive

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"salesbot-gateway/internal/config"
	"salesbot-gateway/internal/models"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	cfg := &config.Config{DBPath: filepath.Join(t.TempDir(), "archive.db")}
	a, err := Open(cfg)
	require.NoError(t, err)
	return a
}

func TestRecordsAreWrittenOnClose(t *testing.T) {
	a := openTestArchive(t)

	a.RecordContact("5511999999999", "João")
	a.RecordMessage("5511999999999", "Oi", models.DirectionReceived, time.Now())
	a.RecordMessage("5511999999999", "Olá! Tudo bem?", models.DirectionSent, time.Now())
	a.Close()

	var contacts []Contact
	require.NoError(t, a.db.Find(&contacts).Error)
	require.Len(t, contacts, 1)
	require.Equal(t, "5511999999999", contacts[0].Phone)

	var msgs []Message
	require.NoError(t, a.db.Order("id").Find(&msgs).Error)
	require.Len(t, msgs, 2)
	require.Equal(t, "Oi", msgs[0].Content)
	require.Equal(t, string(models.DirectionReceived), msgs[0].Direction)
	require.Equal(t, string(models.DirectionSent), msgs[1].Direction)
}

func TestContactUpsertKeepsFirstName(t *testing.T) {
	a := openTestArchive(t)

	a.RecordContact("P1", "Maria")
	a.RecordContact("P1", "Outro Nome")
	a.Close()

	var contacts []Contact
	require.NoError(t, a.db.Find(&contacts).Error)
	require.Len(t, contacts, 1)
	require.Equal(t, "Maria", contacts[0].Name)
}

func TestCloseDrainsPendingRecords(t *testing.T) {
	a := openTestArchive(t)
	a.RecordMessage("P1", "followup", models.DirectionSent, time.Now())
	a.Close()

	var count int64
	require.NoError(t, a.db.Model(&Message{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}
