package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/railops/dispatch/internal/optimizer"
	"github.com/railops/dispatch/models"
	"github.com/railops/dispatch/repository"
)

// testNow is off-peak so reschedule confidence stays at its base value
var testNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

// newTestStore seeds the demo network with FR205 running 25 minutes late,
// enough to trigger both a reroute and a reschedule suggestion
func newTestStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()
	s, err := repository.NewSQLiteStore(filepath.Join(t.TempDir(), "dispatch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	require.NoError(t, s.EnsureSchema(ctx))

	data := repository.DemoNetwork(testNow)
	data.Trains[1].Delay = 25
	_, err = s.Seed(ctx, data)
	require.NoError(t, err)
	return s
}

func fixedRandom(v float64) optimizer.Option {
	return optimizer.WithRandom(func() float64 { return v })
}

func newTestEngine(draw float64) *optimizer.Engine {
	return optimizer.New(
		fixedRandom(draw),
		optimizer.WithIDGenerator(func(kind, trainID string) string { return "opt_" + kind + "_" + trainID }),
	)
}

// recorder is an EventPublisher that keeps everything it is given
type recorder struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *recorder) Publish(e models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) ofType(eventType string) []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Event
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
