package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/adminaccess/internal/logging"
	"github.com/thejerf/abtime"
)

// LogNotifier simulates delivery: each message is written as one JSON line
// to out, and a structured log line without the token is emitted.
type LogNotifier struct {
	mu       sync.Mutex
	out      io.Writer
	linkBase string
	log      logging.Logger
	clock    abtime.AbstractTime
}

func NewLogNotifier(out io.Writer, linkBase string, log logging.Logger, clock abtime.AbstractTime) *LogNotifier {
	if log == nil {
		log = logging.Nop{}
	}
	if clock == nil {
		clock = abtime.NewRealTime()
	}
	return &LogNotifier{
		out:      out,
		linkBase: linkBase,
		log:      log.With("module", "notify", "notifier", "log"),
		clock:    clock,
	}
}

func (n *LogNotifier) SendRecoveryLink(ctx context.Context, email, token string) error {
	msg := RecoveryMessage{
		Email:       email,
		Token:       token,
		Link:        RecoveryLink(n.linkBase, token),
		RequestedAt: n.clock.Now().UTC(),
	}

	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding recovery message: %w", err)
	}

	n.mu.Lock()
	_, err = fmt.Fprintln(n.out, string(b))
	n.mu.Unlock()
	if err != nil {
		return fmt.Errorf("writing recovery message: %w", err)
	}

	n.log.Info(ctx, "recovery link issued", "email", email)
	return nil
}
