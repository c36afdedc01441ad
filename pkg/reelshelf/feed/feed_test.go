package feed

import (
	"context"
	"fmt"
	"net/url"
	"testing"

	"github.com/reelshelf/reelshelf/pkg/reelshelf/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	models.AutoMigrate(db)
	return db
}

type testUser struct {
	models.User
	Channel models.Channel
}

func createTestUser(t *testing.T, db *gorm.DB, username string) testUser {
	user := models.User{Username: username, Email: username + "@example.com", SystemRole: models.SystemRoleUser}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	profile := models.NewProfile(user.ID)
	db.Create(&profile)
	collection := models.Collection{UserID: user.ID, Name: username}
	db.Create(&collection)
	channel := models.Channel{CollectionID: collection.ID, Name: username + "'s channel"}
	if err := db.Create(&channel).Error; err != nil {
		t.Fatalf("Failed to create test channel: %v", err)
	}
	return testUser{User: user, Channel: channel}
}

func createTestVideo(t *testing.T, db *gorm.DB, title string, orientation models.Orientation, tagNames ...string) models.Video {
	video := models.Video{
		Title:       title,
		SourceURL:   "https://example.com/" + url.PathEscape(title),
		Orientation: orientation,
	}
	for _, name := range tagNames {
		tag := models.Tag{Name: name}
		db.Where("name = ?", models.NormalizeTagName(name)).FirstOrCreate(&tag)
		video.Tags = append(video.Tags, tag)
	}
	if err := db.Create(&video).Error; err != nil {
		t.Fatalf("Failed to create test video: %v", err)
	}
	return video
}

func createTestBookmark(t *testing.T, db *gorm.DB, u testUser, v models.Video, access models.Access) models.Bookmark {
	b := models.Bookmark{
		UserID:    u.ID,
		ChannelID: u.Channel.ID,
		VideoID:   v.ID,
		Title:     fmt.Sprintf("%s by %s", v.Title, u.Username),
		Access:    access,
	}
	if err := db.Create(&b).Error; err != nil {
		t.Fatalf("Failed to create test bookmark: %v", err)
	}
	return b
}

func fetchPage(t *testing.T, b *Builder, raw string, v Viewer) *Page {
	t.Helper()
	values, _ := url.ParseQuery(raw)
	p, err := ParseParams(values, 20, 100)
	if err != nil {
		t.Fatalf("ParseParams(%q) failed: %v", raw, err)
	}
	result, err := b.Page(context.Background(), p, v)
	if err != nil {
		t.Fatalf("Page(%q) failed: %v", raw, err)
	}
	return result
}

func ids(p *Page) []uint {
	out := make([]uint, len(p.Bookmarks))
	for i, b := range p.Bookmarks {
		out[i] = b.ID
	}
	return out
}

func contains(list []uint, id uint) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

func TestDedupPicksMinimumID(t *testing.T) {
	db := setupTestDB(t)
	builder := NewBuilder(db, Policy{IncludeAdult: true})

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	carol := createTestUser(t, db, "carol")
	video := createTestVideo(t, db, "Shared", models.OrientationSFW)
	other := createTestVideo(t, db, "Other", models.OrientationSFW)

	first := createTestBookmark(t, db, alice, video, models.AccessPublic)
	createTestBookmark(t, db, bob, video, models.AccessPublic)
	createTestBookmark(t, db, carol, video, models.AccessPublic)
	single := createTestBookmark(t, db, bob, other, models.AccessPublic)

	result := fetchPage(t, builder, "", Viewer{})
	if result.Total != 2 {
		t.Fatalf("Expected 2 distinct videos, got %d", result.Total)
	}
	got := ids(result)
	if !contains(got, first.ID) || !contains(got, single.ID) || len(got) != 2 {
		t.Errorf("Expected representatives %d and %d, got %v", first.ID, single.ID, got)
	}

	for _, b := range result.Bookmarks {
		if b.ID == first.ID && b.VideoID != video.ID {
			t.Error("Representative must reference the shared video")
		}
	}
}

func TestPrivateExcludedForEveryFilter(t *testing.T) {
	db := setupTestDB(t)
	builder := NewBuilder(db, Policy{IncludeAdult: true})

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	video := createTestVideo(t, db, "Secret Cats", models.OrientationGay, "cats")
	hidden := createTestBookmark(t, db, alice, video, models.AccessPrivate)
	db.Create(&models.VideoLike{UserID: bob.ID, VideoID: video.ID})
	db.Create(&models.Follow{FollowerID: bob.ID, FollowedID: alice.ID})

	queries := []string{
		"",
		"orientation=gay",
		"user=alice",
		"liked_by=bob",
		"following=true",
		"tag=cats",
		"q=secret",
		"sort=popular",
		"sort=random",
		"orientation=gay&user=alice&tag=cats&q=cats&following=true",
	}
	for _, viewer := range []Viewer{{}, {UserID: bob.ID}} {
		for _, q := range queries {
			if result := fetchPage(t, builder, q, viewer); contains(ids(result), hidden.ID) {
				t.Errorf("Private bookmark visible to %+v for %q", viewer, q)
			}
		}
	}

	if !contains(ids(fetchPage(t, builder, "", Viewer{UserID: alice.ID})), hidden.ID) {
		t.Error("Expected owner to see own private bookmark")
	}
	if !contains(ids(fetchPage(t, builder, "", Viewer{UserID: 99, Moderator: true})), hidden.ID) {
		t.Error("Expected moderator to see private bookmark")
	}
}

func TestExclusionHappensBeforeGrouping(t *testing.T) {
	db := setupTestDB(t)
	builder := NewBuilder(db, Policy{IncludeAdult: true})

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	video := createTestVideo(t, db, "V", models.OrientationSFW)

	first := createTestBookmark(t, db, alice, video, models.AccessPublic)
	second := createTestBookmark(t, db, bob, video, models.AccessPublic)

	result := fetchPage(t, builder, "", Viewer{})
	if got := ids(result); len(got) != 1 || got[0] != first.ID {
		t.Fatalf("Expected only %d, got %v", first.ID, got)
	}

	db.Model(&first).Update("access", models.AccessPrivate)

	result = fetchPage(t, builder, "", Viewer{})
	if got := ids(result); len(got) != 1 || got[0] != second.ID {
		t.Errorf("Expected %d to take over, got %v", second.ID, got)
	}
}

func TestFollowingFilter(t *testing.T) {
	db := setupTestDB(t)
	builder := NewBuilder(db, Policy{IncludeAdult: true})

	viewer := createTestUser(t, db, "viewer")
	followed := createTestUser(t, db, "followed")
	stranger := createTestUser(t, db, "stranger")
	db.Create(&models.Follow{FollowerID: viewer.ID, FollowedID: followed.ID})

	fromFollowed := createTestBookmark(t, db, followed, createTestVideo(t, db, "A", models.OrientationSFW), models.AccessPublic)
	createTestBookmark(t, db, stranger, createTestVideo(t, db, "B", models.OrientationSFW), models.AccessPublic)

	result := fetchPage(t, builder, "following=true", Viewer{UserID: viewer.ID})
	for _, b := range result.Bookmarks {
		if b.UserID != followed.ID {
			t.Errorf("Expected only followed users, got bookmark by %d", b.UserID)
		}
	}
	if got := ids(result); len(got) != 1 || got[0] != fromFollowed.ID {
		t.Errorf("Expected [%d], got %v", fromFollowed.ID, got)
	}

	anonymous := fetchPage(t, builder, "following=true", Viewer{})
	unfiltered := fetchPage(t, builder, "", Viewer{})
	if anonymous.Total != unfiltered.Total || anonymous.Total != 2 {
		t.Errorf("Expected anonymous following=true to match no filter, got %d vs %d", anonymous.Total, unfiltered.Total)
	}
}

func TestTagFilterCaseInsensitive(t *testing.T) {
	db := setupTestDB(t)
	builder := NewBuilder(db, Policy{IncludeAdult: true})

	alice := createTestUser(t, db, "alice")
	tagged := createTestBookmark(t, db, alice, createTestVideo(t, db, "Tagged", models.OrientationStraight, "NSFW"), models.AccessAdult)
	createTestBookmark(t, db, alice, createTestVideo(t, db, "Plain", models.OrientationStraight), models.AccessPublic)

	upper := ids(fetchPage(t, builder, "tag=NSFW", Viewer{}))
	lower := ids(fetchPage(t, builder, "tag=nsfw", Viewer{}))
	if fmt.Sprint(upper) != fmt.Sprint(lower) {
		t.Errorf("Expected identical results, got %v and %v", upper, lower)
	}
	if len(upper) != 1 || upper[0] != tagged.ID {
		t.Errorf("Expected [%d], got %v", tagged.ID, upper)
	}

	if got := ids(fetchPage(t, builder, "tag=nsf", Viewer{})); len(got) != 0 {
		t.Errorf("Expected tag filter to be exact, got %v", got)
	}
}

func TestSearchFields(t *testing.T) {
	db := setupTestDB(t)
	builder := NewBuilder(db, Policy{IncludeAdult: true})

	alice := createTestUser(t, db, "alice")

	byVideoTitle := createTestBookmark(t, db, alice, createTestVideo(t, db, "Kitten Compilation", models.OrientationSFW), models.AccessPublic)
	byVideoTag := createTestBookmark(t, db, alice, createTestVideo(t, db, "Untitled", models.OrientationSFW, "kittens"), models.AccessPublic)

	describedVideo := createTestVideo(t, db, "Something", models.OrientationSFW)
	byDescription := models.Bookmark{UserID: alice.ID, ChannelID: alice.Channel.ID, VideoID: describedVideo.ID, Title: "nothing", Description: "has a KITTEN in it"}
	db.Create(&byDescription)

	unrelated := createTestBookmark(t, db, alice, createTestVideo(t, db, "Dogs", models.OrientationGay), models.AccessPublic)

	got := ids(fetchPage(t, builder, "q=kitten", Viewer{}))
	for _, want := range []uint{byVideoTitle.ID, byVideoTag.ID, byDescription.ID} {
		if !contains(got, want) {
			t.Errorf("Expected %d in search results %v", want, got)
		}
	}
	if contains(got, unrelated.ID) {
		t.Errorf("Did not expect %d in search results", unrelated.ID)
	}

	// search and filters combine with AND
	if got := ids(fetchPage(t, builder, "q=kitten&orientation=gay", Viewer{})); len(got) != 0 {
		t.Errorf("Expected no results, got %v", got)
	}

	if got := ids(fetchPage(t, builder, "q=%25", Viewer{})); len(got) != 0 {
		t.Errorf("Expected %% to match literally, got %v", got)
	}
}

func TestOwnerAndLikedByFilters(t *testing.T) {
	db := setupTestDB(t)
	builder := NewBuilder(db, Policy{IncludeAdult: true})

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	v1 := createTestVideo(t, db, "One", models.OrientationSFW)
	v2 := createTestVideo(t, db, "Two", models.OrientationSFW)
	a1 := createTestBookmark(t, db, alice, v1, models.AccessPublic)
	b2 := createTestBookmark(t, db, bob, v2, models.AccessPublic)
	db.Create(&models.VideoLike{UserID: alice.ID, VideoID: v2.ID})

	if got := ids(fetchPage(t, builder, "user=alice", Viewer{})); len(got) != 1 || got[0] != a1.ID {
		t.Errorf("Expected alice's bookmark only, got %v", got)
	}
	if got := ids(fetchPage(t, builder, "liked_by=alice", Viewer{})); len(got) != 1 || got[0] != b2.ID {
		t.Errorf("Expected liked video only, got %v", got)
	}
	if got := ids(fetchPage(t, builder, "user=nobody", Viewer{})); len(got) != 0 {
		t.Errorf("Expected no results for unknown user, got %v", got)
	}
}

func TestSortAllStable(t *testing.T) {
	db := setupTestDB(t)
	builder := NewBuilder(db, Policy{IncludeAdult: true})

	alice := createTestUser(t, db, "alice")
	var created []uint
	for i := 0; i < 5; i++ {
		b := createTestBookmark(t, db, alice, createTestVideo(t, db, fmt.Sprintf("V%d", i), models.OrientationSFW), models.AccessPublic)
		created = append(created, b.ID)
	}

	first := ids(fetchPage(t, builder, "sort=all", Viewer{}))
	second := ids(fetchPage(t, builder, "sort=all", Viewer{}))
	if fmt.Sprint(first) != fmt.Sprint(second) {
		t.Errorf("Expected stable order, got %v then %v", first, second)
	}
	if first[0] != created[len(created)-1] {
		t.Errorf("Expected newest bookmark first, got %v", first)
	}
}

func TestSortPopular(t *testing.T) {
	db := setupTestDB(t)
	builder := NewBuilder(db, Policy{IncludeAdult: true})

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	widely := createTestVideo(t, db, "Widely bookmarked", models.OrientationSFW)
	liked := createTestVideo(t, db, "Liked", models.OrientationSFW)
	plain := createTestVideo(t, db, "Plain", models.OrientationSFW)
	db.Model(&liked).Update("likes_count", 10)

	w := createTestBookmark(t, db, alice, widely, models.AccessPublic)
	createTestBookmark(t, db, bob, widely, models.AccessPublic)
	l := createTestBookmark(t, db, alice, liked, models.AccessPublic)
	p := createTestBookmark(t, db, alice, plain, models.AccessPublic)

	got := ids(fetchPage(t, builder, "sort=popular", Viewer{}))
	want := []uint{w.ID, l.ID, p.ID}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Expected popular order %v, got %v", want, got)
	}
}

func TestSortRandomReturnsEverything(t *testing.T) {
	db := setupTestDB(t)
	builder := NewBuilder(db, Policy{IncludeAdult: true})

	alice := createTestUser(t, db, "alice")
	for i := 0; i < 4; i++ {
		createTestBookmark(t, db, alice, createTestVideo(t, db, fmt.Sprintf("R%d", i), models.OrientationSFW), models.AccessPublic)
	}

	result := fetchPage(t, builder, "sort=random", Viewer{})
	if len(result.Bookmarks) != 4 || result.Total != 4 {
		t.Errorf("Expected all 4 entries, got %d of %d", len(result.Bookmarks), result.Total)
	}
}

func TestPagination(t *testing.T) {
	db := setupTestDB(t)
	builder := NewBuilder(db, Policy{IncludeAdult: true})

	alice := createTestUser(t, db, "alice")
	for i := 0; i < 5; i++ {
		createTestBookmark(t, db, alice, createTestVideo(t, db, fmt.Sprintf("P%d", i), models.OrientationSFW), models.AccessPublic)
	}

	first := fetchPage(t, builder, "page=1&page_size=2", Viewer{})
	third := fetchPage(t, builder, "page=3&page_size=2", Viewer{})
	beyond := fetchPage(t, builder, "page=9&page_size=2", Viewer{})

	if len(first.Bookmarks) != 2 || first.Total != 5 {
		t.Errorf("Expected 2 of 5 on first page, got %d of %d", len(first.Bookmarks), first.Total)
	}
	if len(third.Bookmarks) != 1 {
		t.Errorf("Expected 1 on last page, got %d", len(third.Bookmarks))
	}
	if len(beyond.Bookmarks) != 0 || beyond.Total != 5 {
		t.Errorf("Expected empty page beyond range, got %d", len(beyond.Bookmarks))
	}

	all := map[uint]bool{}
	for _, n := range []string{"1", "2", "3"} {
		for _, id := range ids(fetchPage(t, builder, "page_size=2&page="+n, Viewer{})) {
			if all[id] {
				t.Errorf("Bookmark %d appeared on two pages", id)
			}
			all[id] = true
		}
	}
	if len(all) != 5 {
		t.Errorf("Expected 5 distinct entries across pages, got %d", len(all))
	}
}

func TestRepresentativeAndGet(t *testing.T) {
	db := setupTestDB(t)
	builder := NewBuilder(db, Policy{IncludeAdult: true})

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	video := createTestVideo(t, db, "V", models.OrientationSFW)
	hidden := createTestBookmark(t, db, alice, video, models.AccessPrivate)
	visible := createTestBookmark(t, db, bob, video, models.AccessPublic)

	rep, err := builder.Representative(context.Background(), video.ID, Viewer{})
	if err != nil {
		t.Fatalf("Representative failed: %v", err)
	}
	if rep.ID != visible.ID {
		t.Errorf("Expected visible bookmark %d, got %d", visible.ID, rep.ID)
	}
	if rep.User.Username != "bob" || rep.Channel.Collection.Name != "bob" {
		t.Errorf("Expected relations to be loaded, got %+v", rep.User)
	}

	if _, err := builder.Representative(context.Background(), 9999, Viewer{}); err == nil {
		t.Error("Expected error for video without bookmarks")
	}

	if _, err := builder.Get(context.Background(), hidden.ID, Viewer{}); err == nil {
		t.Error("Expected private bookmark to be hidden from anonymous viewer")
	}
	if _, err := builder.Get(context.Background(), hidden.ID, Viewer{UserID: alice.ID}); err != nil {
		t.Errorf("Expected owner to load own bookmark: %v", err)
	}
}

func TestNewEntry(t *testing.T) {
	db := setupTestDB(t)
	builder := NewBuilder(db, Policy{IncludeAdult: true})

	alice := createTestUser(t, db, "alice")
	video := createTestVideo(t, db, "Video Title", models.OrientationBi)
	video.ThumbnailURL = "https://example.com/t.jpg"
	db.Save(&video)
	b := models.Bookmark{UserID: alice.ID, ChannelID: alice.Channel.ID, VideoID: video.ID, Description: "desc"}
	db.Create(&b)
	tag := models.Tag{Name: "Fun"}
	db.Create(&tag)
	db.Model(&b).Association("Tags").Append(&tag)

	result := fetchPage(t, builder, "", Viewer{})
	entry := NewEntry(result.Bookmarks[0], "/media/default.jpg")

	if entry.Title != "Video Title" {
		t.Errorf("Expected video title fallback, got %q", entry.Title)
	}
	if entry.Username != "alice" || entry.UserAvatarURL != "/media/default.jpg" {
		t.Errorf("Unexpected user fields %+v", entry)
	}
	if entry.ChannelName != "alice's channel" || entry.CollectionName != "alice" {
		t.Errorf("Unexpected channel fields %+v", entry)
	}
	if entry.Orientation != models.OrientationBi || entry.ThumbnailURL != "https://example.com/t.jpg" {
		t.Errorf("Unexpected video fields %+v", entry)
	}
	if len(entry.Tags) != 1 || entry.Tags[0] != "fun" {
		t.Errorf("Expected [fun], got %v", entry.Tags)
	}
}
