package notifications

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/auth"
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

func createTestUser(t *testing.T, db *gorm.DB, username string) models.User {
	user, err := auth.CreateAccount(db, username, username+"@example.com", "password123", models.SystemRoleUser)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(db).RegisterRoutes(r.Group("/api"))
	return r
}

func getAuthHeader(user models.User) string {
	token, _ := auth.GenerateToken(user.ID, user.Username, string(user.SystemRole))
	return "Bearer " + token
}

func do(router *gin.Engine, method, path string, user models.User) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, nil)
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func countFor(db *gorm.DB, userID uint) int64 {
	var count int64
	db.Model(&models.Notification{}).Where("recipient_id = ?", userID).Count(&count)
	return count
}

func TestNotifySkipsSelf(t *testing.T) {
	db := setupTestDB(t)
	n := NewNotifier(db)
	alice := createTestUser(t, db, "alice")

	sent, err := n.Notify(Event{RecipientID: alice.ID, ActorID: alice.ID, Type: models.NotificationVideoLike})
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if sent || countFor(db, alice.ID) != 0 {
		t.Error("Expected no notification to self")
	}
}

func TestNotifyHonoursPreferences(t *testing.T) {
	db := setupTestDB(t)
	n := NewNotifier(db)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	db.Model(&models.Profile{}).Where("user_id = ?", alice.ID).Update("notify_on_own_video_liked", false)

	sent, _ := n.Notify(Event{RecipientID: alice.ID, ActorID: bob.ID, Type: models.NotificationVideoLike, Verb: "liked your video"})
	if sent {
		t.Error("Expected opted-out like notification to be dropped")
	}

	sent, _ = n.Notify(Event{
		RecipientID: alice.ID,
		ActorID:     bob.ID,
		Type:        models.NotificationFollow,
		Verb:        "started following you",
		Target:      models.NotificationTarget{Kind: models.TargetUser, ObjectID: bob.ID},
	})
	if !sent {
		t.Error("Expected follow notification to be stored")
	}

	var stored models.Notification
	db.Where("recipient_id = ?", alice.ID).First(&stored)
	if stored.Target.Kind != models.TargetUser || stored.Target.ObjectID != bob.ID {
		t.Errorf("Unexpected target %+v", stored.Target)
	}
	if stored.ActorID == nil || *stored.ActorID != bob.ID {
		t.Errorf("Expected actor %d, got %v", bob.ID, stored.ActorID)
	}

	db.Model(&models.Profile{}).Where("user_id = ?", alice.ID).Update("notify_on_follow", false)
	if sent, _ := n.Notify(Event{RecipientID: alice.ID, Type: models.NotificationSystem, Verb: "welcome"}); !sent {
		t.Error("Expected system notifications to ignore preferences")
	}
}

func TestNotifyFollowers(t *testing.T) {
	db := setupTestDB(t)
	n := NewNotifier(db)
	author := createTestUser(t, db, "author")
	fan := createTestUser(t, db, "fan")
	quiet := createTestUser(t, db, "quiet")
	stranger := createTestUser(t, db, "stranger")

	db.Create(&models.Follow{FollowerID: fan.ID, FollowedID: author.ID})
	db.Create(&models.Follow{FollowerID: quiet.ID, FollowedID: author.ID})
	db.Model(&models.Profile{}).Where("user_id = ?", quiet.ID).Update("notify_on_new_bookmark_from_followed_user", false)

	sent, err := n.NotifyFollowers(Event{ActorID: author.ID, Type: models.NotificationNewContent, Verb: "bookmarked a new video"})
	if err != nil {
		t.Fatalf("NotifyFollowers failed: %v", err)
	}
	if sent != 1 {
		t.Errorf("Expected 1 notification, got %d", sent)
	}
	if countFor(db, fan.ID) != 1 || countFor(db, quiet.ID) != 0 || countFor(db, stranger.ID) != 0 {
		t.Error("Notifications reached the wrong recipients")
	}
}

func TestNotificationEndpoints(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	n := NewNotifier(db)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	for i := 0; i < 3; i++ {
		n.Send(Event{RecipientID: alice.ID, ActorID: bob.ID, Type: models.NotificationVideoLike, Verb: "liked your video"})
	}
	n.Send(Event{RecipientID: bob.ID, ActorID: alice.ID, Type: models.NotificationFollow, Verb: "started following you"})

	resp := do(router, "GET", "/api/notifications", alice)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var list []NotificationResponse
	json.Unmarshal(resp.Body.Bytes(), &list)
	if len(list) != 3 || list[0].ActorUsername != "bob" {
		t.Fatalf("Unexpected notifications %+v", list)
	}

	var unread map[string]int64
	json.Unmarshal(do(router, "GET", "/api/notifications/unread-count", alice).Body.Bytes(), &unread)
	if unread["unread_count"] != 3 {
		t.Errorf("Expected 3 unread, got %d", unread["unread_count"])
	}

	if resp := do(router, "POST", "/api/notifications/"+itoa(list[0].ID)+"/read", alice); resp.Code != http.StatusOK {
		t.Errorf("Expected 200 marking read, got %d", resp.Code)
	}
	json.Unmarshal(do(router, "GET", "/api/notifications/unread-count", alice).Body.Bytes(), &unread)
	if unread["unread_count"] != 2 {
		t.Errorf("Expected 2 unread, got %d", unread["unread_count"])
	}

	// another user's notification is not visible
	if resp := do(router, "POST", "/api/notifications/"+itoa(list[1].ID)+"/read", bob); resp.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for someone else's notification, got %d", resp.Code)
	}

	do(router, "POST", "/api/notifications/read-all", alice)
	json.Unmarshal(do(router, "GET", "/api/notifications/unread-count", alice).Body.Bytes(), &unread)
	if unread["unread_count"] != 0 {
		t.Errorf("Expected 0 unread, got %d", unread["unread_count"])
	}

	json.Unmarshal(do(router, "GET", "/api/notifications/unread-count", bob).Body.Bytes(), &unread)
	if unread["unread_count"] != 1 {
		t.Errorf("Expected bob's notification untouched, got %d", unread["unread_count"])
	}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
