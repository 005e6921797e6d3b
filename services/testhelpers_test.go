package services

import (
	"fmt"
	"testing"

	"github.com/kendall-kelly/barter-api/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to connect to test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every query shares the one in-memory database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Item{}, &models.Trade{}, &models.ChatMessage{}))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, first, last string) models.User {
	t.Helper()
	user := models.User{
		AuthSubject: "auth0|" + first + last,
		FirstName:   first,
		LastName:    last,
		Email:       fmt.Sprintf("%s.%s@example.com", first, last),
		AvatarURL:   models.DefaultAvatar,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createTestItem(t *testing.T, db *gorm.DB, owner models.User, title string) models.Item {
	t.Helper()
	item := models.Item{
		OwnerID:     owner.ID,
		Title:       title,
		Category:    "books",
		Price:       10,
		Description: title + " in good condition",
		ImageKey:    "uploads/" + title + ".png",
		Status:      models.ItemAvailable,
	}
	require.NoError(t, db.Create(&item).Error)
	return item
}

func reloadItem(t *testing.T, db *gorm.DB, id uint) models.Item {
	t.Helper()
	var item models.Item
	require.NoError(t, db.First(&item, id).Error)
	return item
}

func reloadTrade(t *testing.T, db *gorm.DB, id uint) models.Trade {
	t.Helper()
	var trade models.Trade
	require.NoError(t, db.First(&trade, id).Error)
	return trade
}

// tradeFixture is two traders with one item each plus an outsider with a third item
type tradeFixture struct {
	db        *gorm.DB
	publisher *MockEventPublisher
	trades    *TradeService
	alice     models.User
	bob       models.User
	carol     models.User
	aliceItem models.Item
	bobItem   models.Item
	carolItem models.Item
}

func newTradeFixture(t *testing.T, policy TransitionPolicy) *tradeFixture {
	t.Helper()
	db := setupTestDB(t)
	f := &tradeFixture{db: db, publisher: NewMockEventPublisher()}
	f.alice = createTestUser(t, db, "Alice", "Archer")
	f.bob = createTestUser(t, db, "Bob", "Baker")
	f.carol = createTestUser(t, db, "Carol", "Cooper")
	f.aliceItem = createTestItem(t, db, f.alice, "bicycle")
	f.bobItem = createTestItem(t, db, f.bob, "guitar")
	f.carolItem = createTestItem(t, db, f.carol, "camera")
	f.trades = NewTradeService(Deps{DB: db, Publisher: f.publisher, Policy: policy})
	return f
}

// propose has Alice offer her item for Bob's
func (f *tradeFixture) propose(t *testing.T) *models.Trade {
	t.Helper()
	trade, err := f.trades.Create(t.Context(), f.alice.ID, CreateTradeInput{
		OfferedItemID:   f.aliceItem.ID,
		RequestedItemID: f.bobItem.ID,
		ReceiverID:      f.bob.ID,
	})
	require.NoError(t, err)
	return trade
}
