package services

import (
	"context"
	"testing"

	"github.com/jdamiba/twitter-clone/db/dbtest"

	"github.com/stretchr/testify/require"
)

func TestUpsertUser(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	_, err := s.users.UpsertUser(ctx, UserInput{ID: "u1"})
	require.ErrorIs(t, err, ErrInvalidArgument)

	user, err := s.users.UpsertUser(ctx, UserInput{ID: "u1", Username: "alice"})
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)
	require.Equal(t, "alice", user.DisplayName)

	user, err = s.users.UpsertUser(ctx, UserInput{ID: "u1", Username: "renamed", DisplayName: "Alice A."})
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)
	require.Equal(t, "Alice A.", user.DisplayName)

	_, err = s.users.UpsertUser(ctx, UserInput{ID: "u2", Username: "alice"})
	require.ErrorIs(t, err, ErrInvalidOperation)
}

func TestGetUser(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	a := dbtest.CreateUser(t)
	b := dbtest.CreateUser(t)
	c := dbtest.CreateUser(t)
	dbtest.Follow(t, b.ID, a.ID)
	dbtest.Follow(t, c.ID, a.ID)
	dbtest.Follow(t, a.ID, c.ID)

	profile, err := s.users.GetUser(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.Equal(t, a.Username, profile.Username)
	require.EqualValues(t, 2, profile.FollowersCount)
	require.EqualValues(t, 1, profile.FollowingCount)
	require.True(t, profile.IsFollowing)

	profile, err = s.users.GetUser(ctx, a.ID, "")
	require.NoError(t, err)
	require.False(t, profile.IsFollowing)

	_, err = s.users.GetUser(ctx, "nobody", "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListFollowing(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	a := dbtest.CreateUser(t)
	b := dbtest.CreateUser(t)

	_, err := s.users.ListFollowing(ctx, "")
	require.ErrorIs(t, err, ErrUnauthenticated)

	following, err := s.users.ListFollowing(ctx, a.ID)
	require.NoError(t, err)
	require.Empty(t, following)

	_, err = s.ledger.ToggleFollow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	following, err = s.users.ListFollowing(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, []string{b.ID}, following)
}
