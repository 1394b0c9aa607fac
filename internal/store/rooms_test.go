package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"sketchroom/pkg/interfaces"
	"sketchroom/pkg/types"
)

func TestCreateRoomSeatsCreator(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "u1", "alice")

	rec, err := s.CreateRoom(ctx, newRoomRecord("u1"))
	req.NoError(err)
	req.Equal("Test Room", rec.Name)
	req.Equal("u1", rec.OwnerID)
	req.Len(rec.Members, 1)
	req.Equal("u1", rec.Members[0].UserID)
	req.Equal("alice", rec.Members[0].Username)
	req.True(rec.Members[0].IsReady)
}

func TestGetRoomNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetRoom(context.Background(), "missing")
	require.ErrorIs(t, err, interfaces.ErrRoomNotFound)
}

func TestAddMember(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "u1", "alice")
	seedUser(t, s, "u2", "bob")

	created, err := s.CreateRoom(ctx, newRoomRecord("u1"))
	req.NoError(err)

	joined, err := s.AddMember(ctx, created.ID, "u2")
	req.NoError(err)
	req.Len(joined.Members, 2)
	req.Equal("u1", joined.Members[0].UserID, "members come back in join order")
	req.Equal("u2", joined.Members[1].UserID)
	req.False(joined.Members[1].IsReady)

	_, err = s.AddMember(ctx, created.ID, "u2")
	req.ErrorIs(err, interfaces.ErrAlreadyMember)

	_, err = s.AddMember(ctx, "missing", "u2")
	req.ErrorIs(err, interfaces.ErrRoomNotFound)
}

func TestAddMemberCapacity(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "u1", "alice")
	seedUser(t, s, "u2", "bob")
	seedUser(t, s, "u3", "carol")

	rec := newRoomRecord("u1")
	rec.MaxPlayers = 2
	created, err := s.CreateRoom(ctx, rec)
	req.NoError(err)

	_, err = s.AddMember(ctx, created.ID, "u2")
	req.NoError(err)

	_, err = s.AddMember(ctx, created.ID, "u3")
	req.ErrorIs(err, interfaces.ErrRoomFull)
}

func TestAddMemberLastSlotRace(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "owner", "alice")
	racers := make([]string, 10)
	for i := range racers {
		racers[i] = fmt.Sprintf("racer-%d", i)
		seedUser(t, s, racers[i], fmt.Sprintf("racer%d", i))
	}

	rec := newRoomRecord("owner")
	rec.MaxPlayers = 4
	created, err := s.CreateRoom(ctx, rec)
	req.NoError(err)

	// Ten joiners race for the three free seats; the transactional
	// capacity check must admit exactly three and reject the rest.
	errCh := make(chan error, len(racers))
	var wg sync.WaitGroup
	for _, id := range racers {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			_, err := s.AddMember(ctx, created.ID, userID)
			errCh <- err
		}(id)
	}
	wg.Wait()
	close(errCh)

	var admitted, rejected int
	for err := range errCh {
		switch {
		case err == nil:
			admitted++
		case errors.Is(err, interfaces.ErrRoomFull):
			rejected++
		default:
			t.Fatalf("unexpected join error: %v", err)
		}
	}
	req.Equal(3, admitted)
	req.Equal(7, rejected)

	final, err := s.GetRoom(ctx, created.ID)
	req.NoError(err)
	req.Equal(4, final.MemberCount())
}

func TestAddMemberGameInProgress(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "u1", "alice")
	seedUser(t, s, "u2", "bob")

	created, err := s.CreateRoom(ctx, newRoomRecord("u1"))
	req.NoError(err)
	req.NoError(s.SetRoomStatus(ctx, created.ID, types.RoomStatusPlaying))

	_, err = s.AddMember(ctx, created.ID, "u2")
	req.ErrorIs(err, interfaces.ErrGameInProgress)
}

func TestOneRoomPerUser(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "u1", "alice")
	seedUser(t, s, "u2", "bob")

	first, err := s.CreateRoom(ctx, newRoomRecord("u1"))
	req.NoError(err)
	second, err := s.CreateRoom(ctx, newRoomRecord("u2"))
	req.NoError(err)

	// alice is still seated in her own room; the unique index on user_id
	// rejects a second membership row.
	_, err = s.AddMember(ctx, second.ID, "u1")
	req.ErrorIs(err, interfaces.ErrAlreadyMember)

	// After leaving, the seat frees up.
	_, _, err = s.RemoveMember(ctx, first.ID, "u1")
	req.NoError(err)
	_, err = s.AddMember(ctx, second.ID, "u1")
	req.NoError(err)
}

func TestRemoveMemberTransfersOwnership(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "u1", "alice")
	seedUser(t, s, "u2", "bob")
	seedUser(t, s, "u3", "carol")

	created, err := s.CreateRoom(ctx, newRoomRecord("u1"))
	req.NoError(err)
	_, err = s.AddMember(ctx, created.ID, "u2")
	req.NoError(err)
	_, err = s.AddMember(ctx, created.ID, "u3")
	req.NoError(err)

	rec, dissolved, err := s.RemoveMember(ctx, created.ID, "u1")
	req.NoError(err)
	req.False(dissolved)
	req.Equal("u2", rec.OwnerID, "ownership passes to the earliest-joined remaining member")
	req.Len(rec.Members, 2)
}

func TestRemoveMemberNonOwnerKeepsOwner(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "u1", "alice")
	seedUser(t, s, "u2", "bob")

	created, err := s.CreateRoom(ctx, newRoomRecord("u1"))
	req.NoError(err)
	_, err = s.AddMember(ctx, created.ID, "u2")
	req.NoError(err)

	rec, dissolved, err := s.RemoveMember(ctx, created.ID, "u2")
	req.NoError(err)
	req.False(dissolved)
	req.Equal("u1", rec.OwnerID)
	req.Len(rec.Members, 1)
}

func TestRemoveLastMemberDissolvesRoom(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "u1", "alice")

	created, err := s.CreateRoom(ctx, newRoomRecord("u1"))
	req.NoError(err)

	rec, dissolved, err := s.RemoveMember(ctx, created.ID, "u1")
	req.NoError(err)
	req.True(dissolved)
	req.Nil(rec)

	_, err = s.GetRoom(ctx, created.ID)
	req.ErrorIs(err, interfaces.ErrRoomNotFound)
}

func TestRemoveMemberNotMember(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "u1", "alice")
	seedUser(t, s, "u2", "bob")

	created, err := s.CreateRoom(ctx, newRoomRecord("u1"))
	req.NoError(err)

	_, _, err = s.RemoveMember(ctx, created.ID, "u2")
	req.ErrorIs(err, interfaces.ErrNotMember)

	_, _, err = s.RemoveMember(ctx, "missing", "u1")
	req.ErrorIs(err, interfaces.ErrRoomNotFound)
}

func TestListRoomsByStatus(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "u1", "alice")
	seedUser(t, s, "u2", "bob")

	waiting, err := s.CreateRoom(ctx, newRoomRecord("u1"))
	req.NoError(err)
	playing, err := s.CreateRoom(ctx, newRoomRecord("u2"))
	req.NoError(err)
	req.NoError(s.SetRoomStatus(ctx, playing.ID, types.RoomStatusPlaying))

	open, err := s.ListRoomsByStatus(ctx, types.RoomStatusWaiting)
	req.NoError(err)
	req.Len(open, 1)
	req.Equal(waiting.ID, open[0].ID)
	req.Len(open[0].Members, 1)

	inGame, err := s.ListRoomsByStatus(ctx, types.RoomStatusPlaying)
	req.NoError(err)
	req.Len(inGame, 1)
	req.Equal(playing.ID, inGame[0].ID)
}

func TestSetRoomStatusNotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.SetRoomStatus(context.Background(), "missing", types.RoomStatusPlaying)
	require.ErrorIs(t, err, interfaces.ErrRoomNotFound)
}
