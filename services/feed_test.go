package services

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/jdamiba/twitter-clone/db/dbtest"
	"github.com/jdamiba/twitter-clone/models"

	"github.com/stretchr/testify/require"
)

func ids(items []*models.AnnotatedPost) []int64 {
	out := make([]int64, 0, len(items))
	for _, p := range items {
		out = append(out, p.ID)
	}
	return out
}

func TestGlobalFeedPagination(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	author := dbtest.CreateUser(t)
	base := time.Now().Add(-time.Hour)

	var posts []*models.Post
	for i := 0; i < 23; i++ {
		posts = append(posts, dbtest.CreatePost(t, author.ID, fmt.Sprintf("post %d", i), nil, base.Add(time.Duration(i)*time.Second)))
	}
	// replies never show up as global feed items
	dbtest.CreatePost(t, author.ID, "reply", &posts[0].ID, base.Add(time.Hour))

	page, err := s.feed.ListFeed(ctx, FeedQuery{Mode: FeedGlobal, Page: 1})
	require.NoError(t, err)
	require.EqualValues(t, 23, page.Total)
	require.Equal(t, 3, page.TotalPages)
	require.Equal(t, 1, page.Page)
	require.Len(t, page.Items, 10)
	require.Equal(t, posts[22].ID, page.Items[0].ID)
	require.Equal(t, posts[13].ID, page.Items[9].ID)

	page, err = s.feed.ListFeed(ctx, FeedQuery{Mode: FeedGlobal, Page: 3})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	require.Equal(t, posts[0].ID, page.Items[2].ID)
	require.Len(t, page.Items[2].Replies, 1)

	page, err = s.feed.ListFeed(ctx, FeedQuery{Mode: FeedGlobal, Page: 4})
	require.NoError(t, err)
	require.Empty(t, page.Items)
	require.NotNil(t, page.Items)
	require.Equal(t, 3, page.TotalPages)

	page, err = s.feed.ListFeed(ctx, FeedQuery{Mode: FeedGlobal, Page: math.MaxInt/10 + 2})
	require.NoError(t, err)
	require.Empty(t, page.Items)
	require.Equal(t, math.MaxInt/10+2, page.Page)
	require.EqualValues(t, 23, page.Total)

	page, err = s.feed.ListFeed(ctx, FeedQuery{Mode: FeedGlobal, Page: math.MaxInt})
	require.NoError(t, err)
	require.Empty(t, page.Items)

	page, err = s.feed.ListFeed(ctx, FeedQuery{Mode: FeedGlobal, Page: -2})
	require.NoError(t, err)
	require.Equal(t, 1, page.Page)
	require.Len(t, page.Items, 10)
}

func TestFeedOrderTieBreaksOnID(t *testing.T) {
	s := newTestServices(t)
	author := dbtest.CreateUser(t)
	at := time.Now().Add(-time.Minute)

	first := dbtest.CreatePost(t, author.ID, "same time a", nil, at)
	second := dbtest.CreatePost(t, author.ID, "same time b", nil, at)

	page, err := s.feed.ListFeed(context.Background(), FeedQuery{Mode: FeedGlobal})
	require.NoError(t, err)
	require.Equal(t, []int64{second.ID, first.ID}, ids(page.Items))
}

func TestEmptyFeed(t *testing.T) {
	s := newTestServices(t)

	page, err := s.feed.ListFeed(context.Background(), FeedQuery{Mode: FeedGlobal})
	require.NoError(t, err)
	require.Empty(t, page.Items)
	require.Zero(t, page.Total)
	require.Zero(t, page.TotalPages)
}

func TestFollowingFeed(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	viewer := dbtest.CreateUser(t)
	followed := dbtest.CreateUser(t)
	stranger := dbtest.CreateUser(t)
	base := time.Now().Add(-time.Hour)

	own := dbtest.CreatePost(t, viewer.ID, "mine", nil, base)
	theirs := dbtest.CreatePost(t, followed.ID, "theirs", nil, base.Add(time.Minute))
	dbtest.CreatePost(t, stranger.ID, "unrelated", nil, base.Add(2*time.Minute))
	dbtest.CreatePost(t, followed.ID, "a reply", &own.ID, base.Add(3*time.Minute))
	dbtest.Follow(t, viewer.ID, followed.ID)

	_, err := s.feed.ListFeed(ctx, FeedQuery{Mode: FeedFollowing})
	require.ErrorIs(t, err, ErrUnauthenticated)

	page, err := s.feed.ListFeed(ctx, FeedQuery{Mode: FeedFollowing, ViewerID: viewer.ID})
	require.NoError(t, err)
	require.Equal(t, []int64{theirs.ID, own.ID}, ids(page.Items))
	require.Len(t, page.Items[1].Replies, 1)
	require.Empty(t, page.Items[0].Replies)
}

func TestAuthorFeedIncludesReplies(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	author := dbtest.CreateUser(t)
	other := dbtest.CreateUser(t)
	base := time.Now().Add(-time.Hour)

	otherRoot := dbtest.CreatePost(t, other.ID, "other root", nil, base)
	root := dbtest.CreatePost(t, author.ID, "root", nil, base.Add(time.Minute))
	reply := dbtest.CreatePost(t, author.ID, "reply", &otherRoot.ID, base.Add(2*time.Minute))
	dbtest.CreatePost(t, other.ID, "reply to author", &root.ID, base.Add(3*time.Minute))

	_, err := s.feed.ListFeed(ctx, FeedQuery{Mode: FeedAuthor})
	require.ErrorIs(t, err, ErrInvalidArgument)

	page, err := s.feed.ListFeed(ctx, FeedQuery{Mode: FeedAuthor, TargetID: author.ID})
	require.NoError(t, err)
	require.Equal(t, []int64{reply.ID, root.ID}, ids(page.Items))
	require.Nil(t, page.Items[0].Replies)
	require.Len(t, page.Items[1].Replies, 1)
}

func TestLikedFeed(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	author := dbtest.CreateUser(t)
	viewer := dbtest.CreateUser(t)
	other := dbtest.CreateUser(t)
	base := time.Now().Add(-time.Hour)

	p1 := dbtest.CreatePost(t, author.ID, "one", nil, base)
	p2 := dbtest.CreatePost(t, author.ID, "two", &p1.ID, base.Add(time.Minute))
	dbtest.CreatePost(t, author.ID, "three", nil, base.Add(2*time.Minute))
	dbtest.Like(t, viewer.ID, p1.ID)
	dbtest.Like(t, viewer.ID, p2.ID)
	dbtest.Like(t, other.ID, p2.ID)

	_, err := s.feed.ListFeed(ctx, FeedQuery{Mode: FeedLiked})
	require.ErrorIs(t, err, ErrUnauthenticated)

	page, err := s.feed.ListFeed(ctx, FeedQuery{Mode: FeedLiked, ViewerID: viewer.ID})
	require.NoError(t, err)
	require.Equal(t, []int64{p2.ID, p1.ID}, ids(page.Items))
	require.True(t, page.Items[0].IsLiked)
	require.EqualValues(t, 2, page.Items[0].LikesCount)
	require.Nil(t, page.Items[1].Replies)

	// another user's likes seen by an anonymous viewer
	page, err = s.feed.ListFeed(ctx, FeedQuery{Mode: FeedLiked, TargetID: other.ID})
	require.NoError(t, err)
	require.Equal(t, []int64{p2.ID}, ids(page.Items))
	require.False(t, page.Items[0].IsLiked)
}

func TestSearchPosts(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	author := dbtest.CreateUser(t)
	base := time.Now().Add(-time.Hour)

	hello := dbtest.CreatePost(t, author.ID, "Hello World", nil, base)
	reply := dbtest.CreatePost(t, author.ID, "well, HELLO again", &hello.ID, base.Add(time.Minute))
	dbtest.CreatePost(t, author.ID, "goodbye", nil, base.Add(2*time.Minute))
	percent := dbtest.CreatePost(t, author.ID, "100% sure", nil, base.Add(3*time.Minute))
	dbtest.CreatePost(t, author.ID, "1000 times", nil, base.Add(4*time.Minute))
	under := dbtest.CreatePost(t, author.ID, "snake_case", nil, base.Add(5*time.Minute))
	dbtest.CreatePost(t, author.ID, "snakeXcase", nil, base.Add(6*time.Minute))

	_, err := s.feed.SearchPosts(ctx, "", "", 1)
	require.ErrorIs(t, err, ErrInvalidArgument)

	page, err := s.feed.SearchPosts(ctx, "hello", "", 1)
	require.NoError(t, err)
	require.Equal(t, []int64{reply.ID, hello.ID}, ids(page.Items))
	require.Nil(t, page.Items[1].Replies)

	page, err = s.feed.SearchPosts(ctx, "0%", "", 1)
	require.NoError(t, err)
	require.Equal(t, []int64{percent.ID}, ids(page.Items))

	page, err = s.feed.SearchPosts(ctx, "e_c", "", 1)
	require.NoError(t, err)
	require.Equal(t, []int64{under.ID}, ids(page.Items))

	apples := dbtest.CreatePost(t, author.ID, "ÄPFEL kaufen", nil, base.Add(7*time.Minute))
	page, err = s.feed.SearchPosts(ctx, "ÄPFEL", "", 1)
	require.NoError(t, err)
	require.Equal(t, []int64{apples.ID}, ids(page.Items))

	page, err = s.feed.SearchPosts(ctx, "KAUFEN", "", 1)
	require.NoError(t, err)
	require.Equal(t, []int64{apples.ID}, ids(page.Items))

	page, err = s.feed.SearchPosts(ctx, "nothing matches", "", 1)
	require.NoError(t, err)
	require.Empty(t, page.Items)
}

func TestEscapeLike(t *testing.T) {
	require.Equal(t, `100\%`, escapeLike("100%"))
	require.Equal(t, `a\_b`, escapeLike("a_b"))
	require.Equal(t, `c:\\dir`, escapeLike(`c:\dir`))
}

func TestThreadScenario(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	a := dbtest.CreateUser(t)
	b := dbtest.CreateUser(t)
	c := dbtest.CreateUser(t)

	root, err := s.posts.CreatePost(ctx, a.ID, "root1", nil)
	require.NoError(t, err)
	reply, err := s.posts.CreatePost(ctx, b.ID, "reply1", &root.ID)
	require.NoError(t, err)

	got, err := s.posts.GetPost(ctx, root.ID, "")
	require.NoError(t, err)
	require.Equal(t, []int64{reply.ID}, ids(got.Replies))

	_, err = s.posts.CreatePost(ctx, c.ID, "reply to reply", &reply.ID)
	require.NoError(t, err)
	got, err = s.posts.GetPost(ctx, reply.ID, "")
	require.NoError(t, err)
	require.Empty(t, got.Replies)

	got, err = s.posts.GetPost(ctx, root.ID, "")
	require.NoError(t, err)
	require.Equal(t, []int64{reply.ID}, ids(got.Replies))
}

func TestAttachRepliesSkipsNonRoots(t *testing.T) {
	s := newTestServices(t)
	author := dbtest.CreateUser(t)
	root := dbtest.CreatePost(t, author.ID, "root", nil, time.Now())
	reply := dbtest.CreatePost(t, author.ID, "reply", &root.ID, time.Now())

	items := []*models.AnnotatedPost{{Post: *reply}}
	require.NoError(t, s.threads.AttachReplies(context.Background(), items))
	require.Nil(t, items[0].Replies)

	items = []*models.AnnotatedPost{{Post: *root}}
	require.NoError(t, s.threads.AttachReplies(context.Background(), items))
	require.Len(t, items[0].Replies, 1)
}
