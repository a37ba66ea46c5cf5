package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jdamiba/twitter-clone/db"
	"github.com/jdamiba/twitter-clone/db/dbtest"
	"github.com/jdamiba/twitter-clone/models"

	"github.com/stretchr/testify/require"
)

type testServices struct {
	ledger  *LedgerService
	threads *ThreadService
	posts   *PostService
	feed    *FeedService
	users   *UserService
	events  *recordingPublisher
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	dbtest.Setup(t)
	pub := &recordingPublisher{}
	ledger := NewLedgerService(nil, pub)
	threads := NewThreadService(ledger)
	return &testServices{
		ledger:  ledger,
		threads: threads,
		posts:   NewPostService(ledger, threads, nil, pub),
		feed:    NewFeedService(ledger, threads, 0),
		users:   NewUserService(ledger),
		events:  pub,
	}
}

func TestCreatePost(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	author := dbtest.CreateUser(t)

	post, err := s.posts.CreatePost(ctx, author.ID, "hello", nil)
	require.NoError(t, err)
	require.NotZero(t, post.ID)
	require.Equal(t, author.Username, post.Username)
	require.Equal(t, author.DisplayName, post.DisplayName)
	require.False(t, post.IsEdited)
	require.Nil(t, post.OriginalContent)
	require.Zero(t, post.LikesCount)
	require.False(t, post.IsLiked)
	require.Equal(t, post.CreatedAt, post.UpdatedAt)
	require.NotNil(t, post.Replies)

	reply, err := s.posts.CreatePost(ctx, author.ID, "and another thing", &post.ID)
	require.NoError(t, err)
	require.Equal(t, post.ID, *reply.ReplyToID)
	require.Nil(t, reply.Replies)

	require.Len(t, s.events.byType(EventPostCreated), 2)
}

func TestCreatePostValidation(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	author := dbtest.CreateUser(t)

	_, err := s.posts.CreatePost(ctx, "", "hello", nil)
	require.ErrorIs(t, err, ErrUnauthenticated)

	_, err = s.posts.CreatePost(ctx, author.ID, "", nil)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = s.posts.CreatePost(ctx, author.ID, strings.Repeat("a", 141), nil)
	require.ErrorIs(t, err, ErrInvalidArgument)

	// 140 multibyte runes fit even though they are more than 140 bytes
	_, err = s.posts.CreatePost(ctx, author.ID, strings.Repeat("ж", 140), nil)
	require.NoError(t, err)

	missing := int64(9999)
	_, err = s.posts.CreatePost(ctx, author.ID, "reply to nothing", &missing)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.posts.CreatePost(ctx, "ghost", "hello", nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEditPostKeepsFirstOriginal(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	author := dbtest.CreateUser(t)
	fan := dbtest.CreateUser(t)

	post, err := s.posts.CreatePost(ctx, author.ID, "v1", nil)
	require.NoError(t, err)
	dbtest.Like(t, fan.ID, post.ID)

	edited, err := s.posts.EditPost(ctx, author.ID, post.ID, "v2")
	require.NoError(t, err)
	require.Equal(t, "v2", edited.Content)
	require.True(t, edited.IsEdited)
	require.NotNil(t, edited.OriginalContent)
	require.Equal(t, "v1", *edited.OriginalContent)
	require.EqualValues(t, 1, edited.LikesCount)
	require.False(t, edited.UpdatedAt.Before(edited.CreatedAt))

	edited, err = s.posts.EditPost(ctx, author.ID, post.ID, "v3")
	require.NoError(t, err)
	require.Equal(t, "v3", edited.Content)
	require.Equal(t, "v1", *edited.OriginalContent)
}

func TestEditPostErrors(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	author := dbtest.CreateUser(t)
	stranger := dbtest.CreateUser(t)
	post := dbtest.CreatePost(t, author.ID, "mine", nil, time.Now())

	_, err := s.posts.EditPost(ctx, "", post.ID, "x")
	require.ErrorIs(t, err, ErrUnauthenticated)

	_, err = s.posts.EditPost(ctx, author.ID, post.ID, strings.Repeat("x", 200))
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = s.posts.EditPost(ctx, stranger.ID, post.ID, "hijack")
	require.ErrorIs(t, err, ErrNotFoundOrUnauthorized)

	_, err = s.posts.EditPost(ctx, author.ID, post.ID+1, "nothing there")
	require.ErrorIs(t, err, ErrNotFoundOrUnauthorized)

	var stored models.Post
	require.NoError(t, db.ORM.First(&stored, post.ID).Error)
	require.Equal(t, "mine", stored.Content)
	require.False(t, stored.IsEdited)
}

func TestDeletePost(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	author := dbtest.CreateUser(t)
	fan := dbtest.CreateUser(t)
	root := dbtest.CreatePost(t, author.ID, "root", nil, time.Now())
	reply := dbtest.CreatePost(t, fan.ID, "reply", &root.ID, time.Now())
	dbtest.Like(t, fan.ID, root.ID)

	require.ErrorIs(t, s.posts.DeletePost(ctx, "", root.ID), ErrUnauthenticated)
	require.ErrorIs(t, s.posts.DeletePost(ctx, fan.ID, root.ID), ErrNotFoundOrUnauthorized)

	require.NoError(t, s.posts.DeletePost(ctx, author.ID, root.ID))

	_, err := s.posts.GetPost(ctx, root.ID, "")
	require.ErrorIs(t, err, ErrNotFound)

	var likes int64
	require.NoError(t, db.ORM.Model(&models.Like{}).Where("post_id = ?", root.ID).Count(&likes).Error)
	require.Zero(t, likes)

	// the reply survives with a dangling parent reference
	orphan, err := s.posts.GetPost(ctx, reply.ID, "")
	require.NoError(t, err)
	require.Equal(t, root.ID, *orphan.ReplyToID)

	require.Len(t, s.events.byType(EventPostDeleted), 1)
	require.ErrorIs(t, s.posts.DeletePost(ctx, author.ID, root.ID), ErrNotFoundOrUnauthorized)
}

func TestGetPostWithReplies(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	author := dbtest.CreateUser(t)
	viewer := dbtest.CreateUser(t)
	base := time.Now().Add(-time.Hour)

	root := dbtest.CreatePost(t, author.ID, "root", nil, base)
	r2 := dbtest.CreatePost(t, viewer.ID, "second", &root.ID, base.Add(2*time.Minute))
	r1 := dbtest.CreatePost(t, viewer.ID, "first", &root.ID, base.Add(time.Minute))
	dbtest.CreatePost(t, author.ID, "nested", &r1.ID, base.Add(3*time.Minute))
	dbtest.Like(t, viewer.ID, root.ID)
	dbtest.Like(t, author.ID, r2.ID)

	got, err := s.posts.GetPost(ctx, root.ID, viewer.ID)
	require.NoError(t, err)
	require.True(t, got.IsLiked)
	require.EqualValues(t, 1, got.LikesCount)
	require.Len(t, got.Replies, 2)
	require.Equal(t, r1.ID, got.Replies[0].ID)
	require.Equal(t, r2.ID, got.Replies[1].ID)
	require.EqualValues(t, 1, got.Replies[1].LikesCount)
	require.False(t, got.Replies[1].IsLiked)
	require.Equal(t, viewer.Username, got.Replies[0].Username)

	// a reply fetched directly is not threaded
	child, err := s.posts.GetPost(ctx, r1.ID, viewer.ID)
	require.NoError(t, err)
	require.Nil(t, child.Replies)
}
