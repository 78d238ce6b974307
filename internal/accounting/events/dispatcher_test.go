package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/reports"
)

type message struct {
	key, value []byte
}

type publisherStub struct {
	messages []message
	err      error
}

func (p *publisherStub) Publish(_ context.Context, key, value []byte) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, message{key: key, value: value})
	return nil
}

func TestNotifyBumpsCacheAndPublishes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := reports.NewCache(client, time.Minute)
	ctx := context.Background()

	before, err := cache.Version(ctx, 5)
	require.NoError(t, err)

	pub := &publisherStub{}
	counter := &counterStub{}
	d := NewDispatcher(cache, pub, nil)
	d.SetCounter(counter)
	fixed := uuid.MustParse("5b0f0a4e-8c1d-4a53-9a9b-2f0e7b0c1d2e")
	d.newID = func() uuid.UUID { return fixed }

	change := journals.Change{
		Kind:            journals.ChangeReplaced,
		TenantID:        5,
		EntryID:         11,
		PreviousEntryID: 10,
		Source:          journals.Source(journals.SourceInvoice, 3),
		At:              time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	d.Notify(ctx, change)

	after, err := cache.Version(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, before+1, after)

	require.Len(t, pub.messages, 1)
	require.Equal(t, "5", string(pub.messages[0].key))
	var evt Event
	require.NoError(t, json.Unmarshal(pub.messages[0].value, &evt))
	require.Equal(t, fixed, evt.EventID)
	require.Equal(t, change.Kind, evt.Kind)
	require.Equal(t, int64(10), evt.PreviousEntryID)
	require.Equal(t, journals.SourceRef{Kind: journals.SourceInvoice, ID: 3}, *evt.Source)
	require.Equal(t, []string{"replaced"}, counter.kinds)
}

type counterStub struct {
	kinds []string
}

func (c *counterStub) ObserveChange(kind string) {
	c.kinds = append(c.kinds, kind)
}

type failingCache struct{}

func (failingCache) Bump(context.Context, int64) error { return errors.New("redis down") }

func TestNotifySwallowsFailures(t *testing.T) {
	pub := &publisherStub{err: errors.New("broker down")}
	d := NewDispatcher(failingCache{}, pub, nil)
	require.NotPanics(t, func() {
		d.Notify(context.Background(), journals.Change{Kind: journals.ChangePosted, TenantID: 1, EntryID: 1})
	})
	require.Empty(t, pub.messages)

	quiet := NewDispatcher(nil, nil, nil)
	quiet.Notify(context.Background(), journals.Change{Kind: journals.ChangeDeleted, TenantID: 1})
}
