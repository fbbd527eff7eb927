package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thejerf/abtime"
)

func TestRecoveryLink(t *testing.T) {
	assert.Equal(t, "https://admin.example.com/recovery?token=abc",
		RecoveryLink("https://admin.example.com/recovery", "abc"))
	assert.Equal(t, "https://admin.example.com/recovery?lang=es&token=abc",
		RecoveryLink("https://admin.example.com/recovery?lang=es", "abc"))
	assert.Equal(t, "?token=abc", RecoveryLink("", "abc"))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestLogNotifier_WritesMessage(t *testing.T) {
	clock := abtime.NewManualAtTime(time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC))
	var out bytes.Buffer

	n := NewLogNotifier(&out, "https://admin.example.com/recovery", nil, clock)
	require.NoError(t, n.SendRecoveryLink(context.Background(), "a@x.com", "deadbeef"))

	var msg RecoveryMessage
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &msg))
	assert.Equal(t, "a@x.com", msg.Email)
	assert.Equal(t, "deadbeef", msg.Token)
	assert.Equal(t, "https://admin.example.com/recovery?token=deadbeef", msg.Link)
	assert.True(t, msg.RequestedAt.Equal(clock.Now()))
	assert.Equal(t, 1, strings.Count(out.String(), "\n"))
}

func TestLogNotifier_WriteError(t *testing.T) {
	n := NewLogNotifier(failingWriter{}, "", nil, nil)
	err := n.SendRecoveryLink(context.Background(), "a@x.com", "t")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}
