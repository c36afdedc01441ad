package bookmarks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/auth"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/feed"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/models"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/notifications"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/validation"
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

func createTestUser(t *testing.T, db *gorm.DB, username string) models.User {
	user, err := auth.CreateAccount(db, username, username+"@example.com", "password123", models.SystemRoleUser)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func createTestVideo(t *testing.T, db *gorm.DB, title string, creator *models.User) models.Video {
	video := models.Video{
		Title:       title,
		SourceURL:   "https://example.com/watch/" + title,
		Orientation: models.OrientationSFW,
	}
	if creator != nil {
		video.CreatedByID = &creator.ID
	}
	if err := db.Create(&video).Error; err != nil {
		t.Fatalf("Failed to create test video: %v", err)
	}
	return video
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	validation.Register()
	r := gin.New()
	builder := feed.NewBuilder(db, feed.Policy{IncludeAdult: true})
	handler := NewHandler(db, builder, notifications.NewNotifier(db), "/media/default.jpg")
	handler.RegisterRoutes(r.Group("/api"))
	return r
}

func getAuthHeader(user models.User) string {
	token, _ := auth.GenerateToken(user.ID, user.Username, string(user.SystemRole))
	return "Bearer " + token
}

func request(router *gin.Engine, method, path string, user *models.User, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set("Authorization", getAuthHeader(*user))
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decode(t *testing.T, resp *httptest.ResponseRecorder) BookmarkResponse {
	t.Helper()
	var b BookmarkResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &b); err != nil {
		t.Fatalf("Failed to decode bookmark: %v", err)
	}
	return b
}

func notificationsOf(db *gorm.DB, userID uint, kind models.NotificationType) int64 {
	var count int64
	db.Model(&models.Notification{}).Where("recipient_id = ? AND type = ?", userID, kind).Count(&count)
	return count
}

func TestCreateBookmark(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	alice := createTestUser(t, db, "alice")
	video := createTestVideo(t, db, "cats", nil)

	resp := request(router, "POST", "/api/bookmarks/create", &alice, gin.H{
		"video_id":    video.ID,
		"description": "great",
		"tags":        []string{"Funny Cats", "funnycats", "  "},
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	b := decode(t, resp)
	if b.Access != models.AccessPublic {
		t.Errorf("Expected default access public, got %s", b.Access)
	}
	if b.ChannelName != "alice's channel" || b.CollectionName != "alice" {
		t.Errorf("Expected default channel, got %s / %s", b.ChannelName, b.CollectionName)
	}
	if len(b.Tags) != 1 || b.Tags[0] != "funnycats" {
		t.Errorf("Expected normalized tags [funnycats], got %v", b.Tags)
	}
	if b.Title != "cats" {
		t.Errorf("Expected video title fallback, got %q", b.Title)
	}
}

func TestCreateBookmarkDuplicate(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	alice := createTestUser(t, db, "alice")
	video := createTestVideo(t, db, "cats", nil)

	body := gin.H{"video_id": video.ID}
	request(router, "POST", "/api/bookmarks/create", &alice, body)
	resp := request(router, "POST", "/api/bookmarks/create", &alice, body)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for duplicate, got %d", resp.Code)
	}

	var errBody map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &errBody)
	fields, _ := errBody["fields"].(map[string]interface{})
	if _, ok := fields["video_id"]; !ok {
		t.Errorf("Expected video_id field error, got %v", errBody)
	}

	var count int64
	db.Model(&models.Bookmark{}).Count(&count)
	if count != 1 {
		t.Errorf("Expected 1 bookmark, got %d", count)
	}
}

func TestCreateBookmarkValidation(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	video := createTestVideo(t, db, "cats", nil)

	bobChannel, _ := auth.DefaultChannel(db, bob.ID)

	tests := []struct {
		name   string
		body   gin.H
		status int
	}{
		{"missing video", gin.H{}, http.StatusBadRequest},
		{"unknown video", gin.H{"video_id": 9999}, http.StatusNotFound},
		{"bad access", gin.H{"video_id": video.ID, "access": "secret"}, http.StatusBadRequest},
		{"foreign channel", gin.H{"video_id": video.ID, "channel_id": bobChannel.ID}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := request(router, "POST", "/api/bookmarks/create", &alice, tt.body)
			if resp.Code != tt.status {
				t.Errorf("Expected %d, got %d: %s", tt.status, resp.Code, resp.Body.String())
			}
		})
	}

	if resp := request(router, "POST", "/api/bookmarks/create", nil, gin.H{"video_id": video.ID}); resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", resp.Code)
	}
}

func TestManualCreateReusesVideo(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	body := gin.H{
		"video": gin.H{
			"source_url":    "https://videos.example.com/v/1",
			"title":         "Skate Tricks",
			"thumbnail_url": "https://videos.example.com/t/1.jpg",
			"orientation":   "sfw",
			"tags":          []string{"Skate", "tricks"},
		},
		"bookmark": gin.H{"description": "first", "tags": []string{"mine"}},
	}

	resp := request(router, "POST", "/api/bookmarks/manual-create", &alice, body)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	first := decode(t, resp)

	resp = request(router, "POST", "/api/bookmarks/manual-create", &bob, body)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected 201 for second user, got %d: %s", resp.Code, resp.Body.String())
	}
	second := decode(t, resp)

	if first.VideoID != second.VideoID {
		t.Errorf("Expected the same video, got %d and %d", first.VideoID, second.VideoID)
	}

	var videos []models.Video
	db.Preload("Tags").Find(&videos)
	if len(videos) != 1 {
		t.Fatalf("Expected 1 video, got %d", len(videos))
	}
	if len(videos[0].Tags) != 2 || videos[0].CreatedByID == nil || *videos[0].CreatedByID != alice.ID {
		t.Errorf("Unexpected video %+v", videos[0])
	}

	if n := notificationsOf(db, alice.ID, models.NotificationVideoBookmark); n != 1 {
		t.Errorf("Expected video creator to be notified once, got %d", n)
	}

	if resp := request(router, "POST", "/api/bookmarks/manual-create", &alice, body); resp.Code != http.StatusBadRequest {
		t.Errorf("Expected duplicate to be rejected, got %d", resp.Code)
	}

	bad := gin.H{"video": gin.H{"source_url": "not a url", "title": "x", "orientation": "other"}}
	resp = request(router, "POST", "/api/bookmarks/manual-create", &alice, bad)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", resp.Code)
	}
	var errBody struct {
		Fields map[string]string `json:"fields"`
	}
	json.Unmarshal(resp.Body.Bytes(), &errBody)
	if errBody.Fields["source_url"] == "" || errBody.Fields["orientation"] == "" {
		t.Errorf("Expected source_url and orientation errors, got %v", errBody.Fields)
	}
}

func TestFollowersNotifiedOfPublicBookmarks(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	alice := createTestUser(t, db, "alice")
	fan := createTestUser(t, db, "fan")
	db.Create(&models.Follow{FollowerID: fan.ID, FollowedID: alice.ID})

	request(router, "POST", "/api/bookmarks/create", &alice, gin.H{"video_id": createTestVideo(t, db, "a", nil).ID})
	request(router, "POST", "/api/bookmarks/create", &alice, gin.H{"video_id": createTestVideo(t, db, "b", nil).ID, "access": "private"})

	if n := notificationsOf(db, fan.ID, models.NotificationNewContent); n != 1 {
		t.Errorf("Expected 1 new content notification, got %d", n)
	}
}

func TestCollectBookmark(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	resp := request(router, "POST", "/api/bookmarks/create", &alice, gin.H{
		"video_id": createTestVideo(t, db, "cats", nil).ID,
		"title":    "Best cats",
		"tags":     []string{"cats"},
	})
	source := decode(t, resp)

	resp = request(router, "POST", "/api/bookmarks/collect", &bob, gin.H{"bookmark_id": source.ID})
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	copied := decode(t, resp)
	if copied.ID == source.ID || copied.UserID != bob.ID || copied.Title != "Best cats" {
		t.Errorf("Unexpected copy %+v", copied)
	}
	if len(copied.Tags) != 1 || copied.Tags[0] != "cats" {
		t.Errorf("Expected tags copied, got %v", copied.Tags)
	}
	if n := notificationsOf(db, alice.ID, models.NotificationBookmarkSave); n != 1 {
		t.Errorf("Expected source owner notified, got %d", n)
	}

	hidden := decode(t, request(router, "POST", "/api/bookmarks/create", &alice, gin.H{
		"video_id": createTestVideo(t, db, "secret", nil).ID,
		"access":   "private",
	}))
	if resp := request(router, "POST", "/api/bookmarks/collect", &bob, gin.H{"bookmark_id": hidden.ID}); resp.Code != http.StatusNotFound {
		t.Errorf("Expected 404 collecting a private bookmark, got %d", resp.Code)
	}
}

func TestGetBookmarkVisibility(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	hidden := decode(t, request(router, "POST", "/api/bookmarks/create", &alice, gin.H{
		"video_id": createTestVideo(t, db, "secret", nil).ID,
		"access":   "private",
	}))
	path := fmt.Sprintf("/api/bookmarks/%d", hidden.ID)

	if resp := request(router, "GET", path, nil, nil); resp.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for anonymous, got %d", resp.Code)
	}
	if resp := request(router, "GET", path, &bob, nil); resp.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for another user, got %d", resp.Code)
	}
	if resp := request(router, "GET", path, &alice, nil); resp.Code != http.StatusOK {
		t.Errorf("Expected 200 for owner, got %d", resp.Code)
	}
	if resp := request(router, "GET", "/api/bookmarks/abc", nil, nil); resp.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad id, got %d", resp.Code)
	}
}

func TestUpdateBookmark(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	created := decode(t, request(router, "POST", "/api/bookmarks/create", &alice, gin.H{
		"video_id": createTestVideo(t, db, "cats", nil).ID,
		"title":    "old",
		"tags":     []string{"a"},
	}))
	path := fmt.Sprintf("/api/bookmarks/%d", created.ID)

	resp := request(router, "PATCH", path, &alice, gin.H{"title": "new", "tags": []string{"B", "c"}})
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	updated := decode(t, resp)
	if updated.Title != "new" || len(updated.Tags) != 2 || updated.Description != "" {
		t.Errorf("Unexpected update %+v", updated)
	}

	if resp := request(router, "PATCH", path, &bob, gin.H{"title": "hijack"}); resp.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for non-owner, got %d", resp.Code)
	}

	db.Create(&models.Report{BookmarkID: created.ID, ReportType: models.ReportBrokenSource})
	db.Model(&models.Bookmark{}).Where("id = ?", created.ID).Update("access", models.AccessPrivate)
	if resp := request(router, "PATCH", path, &alice, gin.H{"access": "public"}); resp.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 changing access under review, got %d", resp.Code)
	}
	if resp := request(router, "PATCH", path, &alice, gin.H{"description": "still editable"}); resp.Code != http.StatusOK {
		t.Errorf("Expected other fields to stay editable, got %d", resp.Code)
	}
}

func TestUsersBookmarked(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	carol := createTestUser(t, db, "carol")
	video := createTestVideo(t, db, "cats", nil)

	request(router, "POST", "/api/bookmarks/create", &alice, gin.H{"video_id": video.ID})
	request(router, "POST", "/api/bookmarks/create", &bob, gin.H{"video_id": video.ID})
	request(router, "POST", "/api/bookmarks/create", &carol, gin.H{"video_id": video.ID, "access": "private"})

	resp := request(router, "GET", fmt.Sprintf("/api/videos/%d/users-bookmarked", video.ID), nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.Code)
	}
	var users []PublicUser
	json.Unmarshal(resp.Body.Bytes(), &users)
	if len(users) != 2 || users[0].Username != "alice" || users[1].Username != "bob" {
		t.Errorf("Expected alice and bob, got %+v", users)
	}
	if users[0].AvatarURL != "/media/default.jpg" {
		t.Errorf("Expected default avatar, got %q", users[0].AvatarURL)
	}
}
