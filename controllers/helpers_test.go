package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/barter-api/middleware"
	"github.com/kendall-kelly/barter-api/models"
	"github.com/kendall-kelly/barter-api/services"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testSubjectHeader names the token subject for mockAuthMiddleware
const testSubjectHeader = "X-Test-Subject"

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to connect to test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Item{}, &models.Trade{}, &models.ChatMessage{}))
	return db
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// mockAuthMiddleware stands in for token validation: the subject comes from
// a test header and the access token is fixed.
func mockAuthMiddleware(accessToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if subject := c.GetHeader(testSubjectHeader); subject != "" {
			c.Set("user_id", subject)
			c.Set("access_token", accessToken)
		}
		c.Next()
	}
}

func createTestUser(t *testing.T, db *gorm.DB, first, last string) models.User {
	t.Helper()
	user := models.User{
		AuthSubject: subjectFor(first),
		FirstName:   first,
		LastName:    last,
		Email:       fmt.Sprintf("%s@example.com", first),
		AvatarURL:   models.DefaultAvatar,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func subjectFor(first string) string {
	return "auth0|" + first
}

func createTestItem(t *testing.T, db *gorm.DB, owner models.User, title string) models.Item {
	t.Helper()
	item := models.Item{
		OwnerID:  owner.ID,
		Title:    title,
		Category: "misc",
		Price:    25,
		Status:   models.ItemAvailable,
	}
	require.NoError(t, db.Create(&item).Error)
	return item
}

// performRequest sends body as JSON (nil for none) on behalf of subject
func performRequest(router http.Handler, method, path, subject string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		if raw, ok := body.(string); ok {
			reader = bytes.NewBufferString(raw)
		} else {
			encoded, _ := json.Marshal(body)
			reader = bytes.NewBuffer(encoded)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if subject != "" {
		req.Header.Set(testSubjectHeader, subject)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// envelope is the response shape shared by every endpoint
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "Response should be valid JSON: %s", w.Body.String())
	if data != nil && env.Success {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

// apiRouter wires every controller over db the way the server does,
// with mockAuthMiddleware in place of token validation.
type apiRouter struct {
	*gin.Engine
	db        *gorm.DB
	identity  *services.UserDirectory
	catalog   *services.GormItemCatalog
	images    *services.MockImageService
	publisher *services.MockEventPublisher
}

func newAPIRouter(t *testing.T, userInfo services.UserInfoProvider) *apiRouter {
	t.Helper()
	db := setupTestDB(t)
	r := &apiRouter{
		Engine:    setupTestRouter(),
		db:        db,
		identity:  services.NewUserDirectory(db),
		catalog:   services.NewItemCatalog(db),
		images:    services.NewMockImageService(),
		publisher: services.NewMockEventPublisher(),
	}
	media := services.NewMediaResolver(r.images, "https://api.example.com")
	deps := services.Deps{DB: db, Catalog: r.catalog, Identity: r.identity, Publisher: r.publisher, Media: media}

	trades := NewTradeController(services.NewTradeService(deps))
	chat := NewChatController(services.NewChatService(deps))
	items := NewItemController(r.catalog, r.images, media)
	users := NewUserController(r.identity, userInfo, media)
	uploads := NewUploadController(r.images, "")

	v1 := r.Group("/api/v1")
	v1.Use(mockAuthMiddleware("test-access-token"))
	v1.POST("/users", users.CreateUser)

	authed := v1.Group("")
	authed.Use(middleware.RequireCaller(r.identity))
	authed.GET("/users", users.ListUsers)
	authed.GET("/users/me", users.GetMyProfile)
	authed.PUT("/users/me", users.UpdateMyProfile)
	authed.POST("/items", items.CreateItem)
	authed.GET("/items", items.ListItems)
	authed.GET("/items/mine", items.ListMyItems)
	authed.GET("/items/user/:user_id", items.ListUserItems)
	authed.GET("/items/:id", items.GetItem)
	authed.DELETE("/items/:id", items.DeleteItem)
	authed.POST("/uploads", uploads.UploadImage)
	authed.POST("/trades", trades.CreateTrade)
	authed.POST("/trades/check", trades.CheckExistingTrade)
	authed.GET("/trades/sent", trades.ListSentTrades)
	authed.GET("/trades/received", trades.ListReceivedTrades)
	authed.GET("/trades/:id", trades.GetTrade)
	authed.POST("/trades/:id/status", trades.UpdateTradeStatus)
	authed.GET("/trades/:id/messages", chat.ListMessages)
	authed.POST("/chat/messages", chat.SendMessage)
	return r
}
