package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snpfreq-service/service/identity"
	"snpfreq-service/service/lookup"
	"snpfreq-service/service/models"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []LookupEvent
	err    error
	closed bool
}

func (p *recordingPublisher) Publish(_ context.Context, e LookupEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return p.err
}

func TestMultiPublisher(t *testing.T) {
	ok := &recordingPublisher{}
	failing := &recordingPublisher{err: errors.New("broker down")}
	multi := MultiPublisher{ok, failing}

	err := multi.Publish(context.Background(), LookupEvent{ID: "1"})
	assert.ErrorContains(t, err, "broker down")
	assert.Len(t, ok.events, 1)
	assert.Len(t, failing.events, 1)

	assert.Error(t, multi.Close())
	assert.True(t, ok.closed)

	assert.NoError(t, MultiPublisher{}.Publish(context.Background(), LookupEvent{}))
	assert.NoError(t, NoopPublisher{}.Publish(context.Background(), LookupEvent{}))
}

func TestObserver_PublishesCompletion(t *testing.T) {
	pub := &recordingPublisher{}
	pseudonyms := identity.NewPseudonymizer("salt")
	obs := NewObserver(pub, pseudonyms)

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	obs.ObserveLookup(context.Background(), lookup.Completion{
		UserID:   "42",
		RSID:     "rs1801133",
		Source:   lookup.SourceCache,
		Duration: 15 * time.Millisecond,
		At:       at,
		Result: &models.EnrichedResult{
			Populations: make([]models.PopulationFrequency, 3),
			Summary: models.ExtendedSummary{
				BasicInfo: models.BasicInfo{Genes: []string{"MTHFR"}},
				Warnings:  []string{"flip"},
			},
		},
	})

	require.Len(t, pub.events, 1)
	e := pub.events[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "rs1801133", e.RSID)
	assert.Equal(t, pseudonyms.Hash("42"), e.UserHash)
	assert.Equal(t, "ok", e.Outcome)
	assert.Equal(t, "cache", e.Source)
	assert.Equal(t, 3, e.Studies)
	assert.Equal(t, []string{"MTHFR"}, e.Genes)
	assert.Equal(t, 1, e.Warnings)
	assert.Equal(t, int64(15), e.Duration)
	assert.Equal(t, at, e.Timestamp)
}

func TestObserver_SkipsValidationAndRejection(t *testing.T) {
	pub := &recordingPublisher{}
	obs := NewObserver(pub, identity.NewPseudonymizer(""))

	obs.ObserveLookup(context.Background(), lookup.Completion{Kind: lookup.KindValidation})
	obs.ObserveLookup(context.Background(), lookup.Completion{Kind: lookup.KindRejected})
	obs.ObserveLookup(context.Background(), lookup.Completion{Kind: lookup.KindNotFound, RSID: "rs0"})

	require.Len(t, pub.events, 1)
	assert.Equal(t, "not_found", pub.events[0].Outcome)
}

func TestObserver_PublishErrorIsSwallowed(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("down")}
	obs := NewObserver(pub, identity.NewPseudonymizer(""))

	assert.NotPanics(t, func() {
		obs.ObserveLookup(context.Background(), lookup.Completion{RSID: "rs1"})
	})
}
