package resolver

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/adminlog/pkg/eventlog"
	"github.com/go-go-golems/adminlog/pkg/transport"
	"github.com/go-go-golems/adminlog/pkg/transport/memory"
	"github.com/go-go-golems/adminlog/pkg/window"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// run executes cmd and any batched commands, returning the messages.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var ret []tea.Msg
		for _, c := range batch {
			ret = append(ret, run(c)...)
		}
		return ret
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func text(id int64, body string) *eventlog.Item {
	return &eventlog.Item{ID: id, Actor: "Bob", Payload: &eventlog.Text{Body: body}}
}

func pinned(id, ref int64) *eventlog.Item {
	return &eventlog.Item{ID: id, Actor: "Ann", Payload: &eventlog.Pinned{Dependency: eventlog.Dependency{RefID: ref}}}
}

type fixture struct {
	src   *memory.Source
	store *window.Store
	r     *Resolver
}

func newFixture(t *testing.T, remote []*eventlog.Item, local ...*eventlog.Item) *fixture {
	t.Helper()
	src, err := memory.New(remote)
	require.NoError(t, err)
	d := transport.NewDispatcher(src, 2)
	t.Cleanup(d.Close)
	store := window.NewStore()
	require.NoError(t, store.Insert(local, window.Edge{Direction: eventlog.Up}))
	return &fixture{src: src, store: store, r: New(store, d)}
}

func TestResolver_LocalTargetNeedsNoRequest(t *testing.T) {
	f := newFixture(t, nil, text(100, "hello"), pinned(101, 100))

	msgs := run(f.r.Track(f.store.Items()))
	require.Empty(t, msgs)
	require.Equal(t, int64(0), f.src.DependencyCalls())

	it, _ := f.store.ByID(101)
	require.True(t, it.Dependency().Local())
	require.Equal(t, "Ann pinned «hello»", it.Prepared(f.store.Lookup()).Text)
}

func TestResolver_FetchesMissingTargetOnce(t *testing.T) {
	f := newFixture(t, []*eventlog.Item{text(50, "remote")}, pinned(101, 50))
	it, _ := f.store.ByID(101)
	require.Equal(t, "Ann pinned a message", it.Prepared(nil).Text)

	cmd := f.r.Track(f.store.Items())
	require.NotNil(t, cmd)
	require.Nil(t, f.r.Track(f.store.Items()))
	require.Equal(t, 1, f.r.InFlight())

	msgs := run(cmd)
	require.Len(t, msgs, 1)
	require.Equal(t, int64(1), f.src.DependencyCalls())

	require.True(t, f.r.Apply(msgs[0].(ResolvedMsg)))
	require.Equal(t, 0, f.r.InFlight())
	require.Equal(t, eventlog.DependencyResolved, it.Dependency().State())
	require.False(t, it.Dependency().Local())
	require.Equal(t, "Ann pinned «remote»", it.Prepared(nil).Text)

	require.False(t, f.r.Apply(msgs[0].(ResolvedMsg)))
}

func TestResolver_NotFoundSettles(t *testing.T) {
	f := newFixture(t, nil, pinned(101, 7))
	msgs := run(f.r.Track(f.store.Items()))
	require.Len(t, msgs, 1)
	require.True(t, f.r.Apply(msgs[0].(ResolvedMsg)))

	it, _ := f.store.ByID(101)
	require.True(t, it.Dependency().Settled())
	require.Equal(t, "Ann pinned a deleted message", it.Prepared(nil).Text)
	require.Nil(t, f.r.Track(f.store.Items()))
}

func TestResolver_TransientFailureIsNotRetried(t *testing.T) {
	f := newFixture(t, []*eventlog.Item{text(7, "x")}, pinned(101, 7))
	f.src.FailNext(errors.New("boom"))

	msgs := run(f.r.Track(f.store.Items()))
	require.False(t, f.r.Apply(msgs[0].(ResolvedMsg)))
	require.Error(t, f.r.LastError())

	it, _ := f.store.ByID(101)
	require.Equal(t, eventlog.DependencyUnsettled, it.Dependency().State())
	require.Empty(t, it.Dependency().Pending())
	require.Nil(t, f.r.Track(f.store.Items()))

	msgs = run(f.r.RetryFailed())
	require.Len(t, msgs, 1)
	require.True(t, f.r.Apply(msgs[0].(ResolvedMsg)))
	require.Equal(t, int64(2), f.src.DependencyCalls())
}

func TestResolver_ResetMakesResponsesStale(t *testing.T) {
	f := newFixture(t, []*eventlog.Item{text(7, "x")}, pinned(101, 7))
	cmd := f.r.Track(f.store.Items())
	f.r.Reset()

	msgs := run(cmd)
	require.Len(t, msgs, 1)
	require.False(t, f.r.Apply(msgs[0].(ResolvedMsg)))

	it, _ := f.store.ByID(101)
	require.Equal(t, eventlog.DependencyUnsettled, it.Dependency().State())
	require.NotNil(t, f.r.Track(f.store.Items()))
}

func TestResolver_TargetArrivingCancelsRequest(t *testing.T) {
	g := newFixture(t, []*eventlog.Item{text(90, "far")}, pinned(101, 90))
	cmd := g.r.Track(g.store.Items())
	require.Equal(t, 1, g.r.InFlight())

	require.NoError(t, g.store.Insert([]*eventlog.Item{text(90, "near")}, window.Edge{Direction: eventlog.Up, ID: 101}))
	require.Nil(t, g.r.Track(g.store.Items()[:1]))
	require.Equal(t, 0, g.r.InFlight())

	it, _ := g.store.ByID(101)
	require.True(t, it.Dependency().Local())
	require.Equal(t, "Ann pinned «near»", it.Prepared(g.store.Lookup()).Text)

	for _, msg := range run(cmd) {
		require.False(t, g.r.Apply(msg.(ResolvedMsg)))
	}
}

func TestResolver_ForgetRetracksLocalBindings(t *testing.T) {
	f := newFixture(t, []*eventlog.Item{text(100, "remote copy")}, text(100, "hello"), pinned(101, 100))
	require.Nil(t, f.r.Track(f.store.Items()))

	require.True(t, f.store.Remove(100))
	msgs := run(f.r.Forget(100))
	require.Len(t, msgs, 1)

	it, _ := f.store.ByID(101)
	require.Equal(t, eventlog.DependencyUnsettled, it.Dependency().State())
	require.True(t, f.r.Apply(msgs[0].(ResolvedMsg)))
	require.Equal(t, "Ann pinned «remote copy»", it.Prepared(nil).Text)
}
