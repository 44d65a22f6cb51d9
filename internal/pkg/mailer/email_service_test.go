package mailer

import (
	"bytes"
	"testing"

	"doc-review-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendReport_Disabled(t *testing.T) {
	svc := NewEmailService("", 587, "", "", "review@example.com", "Review", logger.NewNopLogger())
	assert.ErrorIs(t, svc.SendReport("someone@example.com", "Bericht.txt", "text"), ErrMailerDisabled)
}

func TestBuildReportMessage(t *testing.T) {
	m := buildReportMessage("review@example.com", "Review", "someone@example.com", "Bericht.txt", "Hallo Bericht")

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)

	raw := buf.String()
	assert.Contains(t, raw, "someone@example.com")
	assert.Contains(t, raw, `filename="Bericht.txt"`)
	assert.Contains(t, raw, "text/plain; charset=UTF-8")
}
