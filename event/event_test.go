package event

import (
	"context"
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/exengine/coords"
	"github.com/c360/exengine/errors"
	"github.com/c360/exengine/notification"
)

// fakePublisher records notifications handed to the engine
type fakePublisher struct {
	mu  sync.Mutex
	got []notification.Notification
}

func (p *fakePublisher) PublishNotification(n notification.Notification) {
	p.mu.Lock()
	p.got = append(p.got, n)
	p.mu.Unlock()
}

// fakeNotifier records notifications recorded on the future
type fakeNotifier struct {
	mu  sync.Mutex
	got []notification.Notification
}

func (f *fakeNotifier) RecordNotification(n notification.Notification) {
	f.mu.Lock()
	f.got = append(f.got, n)
	f.mu.Unlock()
}

func TestBaseBindOnce(t *testing.T) {
	var b Base
	pub := &fakePublisher{}
	fut := &fakeNotifier{}

	id := ulid.Make()
	require.NoError(t, b.Bind(id, pub, fut))
	assert.Equal(t, id, b.ID())

	err := b.Bind(ulid.Make(), pub, fut)
	assert.ErrorIs(t, err, errors.ErrEventReused, "events are single-use")
}

func TestBasePublishReachesFutureAndEngine(t *testing.T) {
	var b Base
	b.DeclareNotifications("Progress")
	pub := &fakePublisher{}
	fut := &fakeNotifier{}
	require.NoError(t, b.Bind(ulid.Make(), pub, fut))

	n := notification.New(notification.CategoryEvent, "Progress", "halfway", 50)
	b.PublishNotification(n)

	require.Len(t, pub.got, 1)
	require.Len(t, fut.got, 1)
	assert.Equal(t, "Progress", pub.got[0].Kind)
}

func TestBasePublishUnboundIsSafe(t *testing.T) {
	var b Base
	// publishing before binding must not panic; there is just nowhere to go
	b.PublishNotification(notification.EventExecuted(nil))
}

func TestBaseWorkerAndRetries(t *testing.T) {
	var b Base
	assert.Equal(t, "", b.PreferredWorker())
	assert.Equal(t, 0, b.RetriesOnError())

	b.OnWorker("camera")
	b.SetRetries(2)
	assert.Equal(t, "camera", b.PreferredWorker())
	assert.Equal(t, 2, b.RetriesOnError())
}

func TestStopAndAbortFlags(t *testing.T) {
	var s StopFlag
	assert.False(t, s.IsStopRequested())
	s.RequestStop()
	assert.True(t, s.IsStopRequested())

	var a AbortFlag
	assert.False(t, a.IsAbortRequested())
	a.RequestAbort()
	assert.True(t, a.IsAbortRequested())
}

// capEvent carries every capability
type capEvent struct {
	Base
	StopFlag
	AbortFlag
	DataBase
}

func (e *capEvent) Execute(context.Context) (any, error) { return nil, nil }

// bareEvent carries none
type bareEvent struct{}

func (bareEvent) Execute(context.Context) (any, error) { return nil, nil }

func TestCapabilityAssertions(t *testing.T) {
	full := &capEvent{}
	_, ok := AsStoppable(full)
	assert.True(t, ok)
	_, ok = AsAbortable(full)
	assert.True(t, ok)
	_, ok = AsDataProducer(full)
	assert.True(t, ok)

	_, ok = AsStoppable(bareEvent{})
	assert.False(t, ok)
	_, ok = AsAbortable(bareEvent{})
	assert.False(t, ok)
	_, ok = AsDataProducer(bareEvent{})
	assert.False(t, ok)
}

// fakeSink records puts
type fakeSink struct {
	mu   sync.Mutex
	puts []coords.Coordinates
	obs  []DataObserver
}

func (s *fakeSink) Put(c coords.Coordinates, _ []byte, _ map[string]any, o DataObserver) error {
	s.mu.Lock()
	s.puts = append(s.puts, c)
	s.obs = append(s.obs, o)
	s.mu.Unlock()
	return nil
}

func (s *fakeSink) Get(context.Context, coords.Coordinates, bool, bool) ([]byte, map[string]any, error) {
	return nil, nil, nil
}

type fakeObserver struct{}

func (fakeObserver) ObserveData(coords.Coordinates, []byte, map[string]any, DataStage) {}

func TestDataBasePutData(t *testing.T) {
	sink := &fakeSink{}
	db := NewDataBase(coords.Range("t", 4), sink)
	obs := fakeObserver{}
	db.BindObserver(obs)

	c := coords.New(coords.A("t", coords.Int(0)))
	require.NoError(t, db.PutData(c, []byte{1}, nil))

	require.Len(t, sink.puts, 1)
	assert.True(t, sink.puts[0].Equal(c))
	assert.Equal(t, obs, sink.obs[0], "the bound observer rides along with the put")
}

func TestDataBaseDefaultIterator(t *testing.T) {
	db := NewDataBase(nil, &fakeSink{})
	it := db.CoordinatesIterator()
	require.NotNil(t, it)
	assert.False(t, it.IsFinite(), "default sequence counts without end")

	c, ok := it.Next()
	require.True(t, ok)
	assert.True(t, c.Contains("image"))
}

func TestDataBasePutWithoutSink(t *testing.T) {
	db := NewDataBase(coords.Range("t", 1), nil)
	err := db.PutData(coords.New(coords.A("t", coords.Int(0))), nil, nil)
	assert.Error(t, err)
}

func TestCallableEvents(t *testing.T) {
	ev := Callable(func(context.Context) (any, error) { return 42, nil })
	result, err := ev.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, result)

	ran := false
	run := Run(func() { ran = true })
	_, err = run.Execute(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestDataStageString(t *testing.T) {
	assert.Equal(t, "acquired", StageAcquired.String())
	assert.Equal(t, "processed", StageProcessed.String())
	assert.Equal(t, "stored", StageStored.String())
}
