package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/kestrel-systems/sentinel/internal/actor"
	"github.com/stretchr/testify/require"
)

func noopActor(ctx context.Context, as *actor.ActorState, env actor.Envelope) (actor.Mode, error) {
	return actor.ModeContinue, nil
}

func TestRegisterAndWhereis(t *testing.T) {
	r := New()

	lk, _ := actor.Spawn(context.Background(), noopActor, actor.SpawnOptions{})
	require.NoError(t, r.Register("alice", lk))

	got, err := r.Whereis("alice")
	require.NoError(t, err)
	require.True(t, got.Equal(lk))
}

func TestRegisterTwiceFails(t *testing.T) {
	r := New()

	lk1, _ := actor.Spawn(context.Background(), noopActor, actor.SpawnOptions{})
	lk2, _ := actor.Spawn(context.Background(), noopActor, actor.SpawnOptions{})

	require.NoError(t, r.Register("alice", lk1))
	err := r.Register("alice", lk2)
	require.ErrorIs(t, err, ErrNameTaken)

	got, err := r.Whereis("alice")
	require.NoError(t, err)
	require.True(t, got.Equal(lk1))
}

func TestWhereisUnknownNameFails(t *testing.T) {
	r := New()
	_, err := r.Whereis("nobody")
	require.True(t, errors.Is(err, ErrNameNotFound))
}

func TestUnregisterThenReregister(t *testing.T) {
	r := New()

	lk1, _ := actor.Spawn(context.Background(), noopActor, actor.SpawnOptions{})
	lk2, _ := actor.Spawn(context.Background(), noopActor, actor.SpawnOptions{})

	require.NoError(t, r.Register("alice", lk1))
	r.Unregister("alice")

	_, err := r.Whereis("alice")
	require.ErrorIs(t, err, ErrNameNotFound)

	require.NoError(t, r.Register("alice", lk2))
	got, err := r.Whereis("alice")
	require.NoError(t, err)
	require.True(t, got.Equal(lk2))
}

func TestUnregisterUnknownNameIsNoOp(t *testing.T) {
	r := New()
	r.Unregister("nobody")
}

func TestNamesSnapshot(t *testing.T) {
	r := New()

	lk1, _ := actor.Spawn(context.Background(), noopActor, actor.SpawnOptions{})
	lk2, _ := actor.Spawn(context.Background(), noopActor, actor.SpawnOptions{})

	require.NoError(t, r.Register("alice", lk1))
	require.NoError(t, r.Register("bob", lk2))

	require.ElementsMatch(t, []string{"alice", "bob"}, r.Names())
}
