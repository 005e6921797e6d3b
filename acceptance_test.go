package main

import (
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/kendall-kelly/barter-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// marketplace is three registered users, each with one listed item
type marketplace struct {
	*testServer
	aliceToken, bobToken, carolToken string
	aliceID, bobID, carolID          uint
	bicycle, guitar, lamp            uint
}

func newMarketplace(t *testing.T) *marketplace {
	t.Helper()
	m := &marketplace{testServer: newTestServer(t)}
	m.aliceToken, m.aliceID = m.register(t, "Alice", "Archer")
	m.bobToken, m.bobID = m.register(t, "Bob", "Baker")
	m.carolToken, m.carolID = m.register(t, "Carol", "Cook")
	m.bicycle = m.listItem(t, m.aliceToken, "Bicycle")
	m.guitar = m.listItem(t, m.bobToken, "Guitar")
	m.lamp = m.listItem(t, m.carolToken, "Lamp")
	return m
}

func (m *marketplace) propose(t *testing.T, token string, offered, requested, receiver uint) uint {
	t.Helper()
	w := m.do(t, http.MethodPost, "/api/v1/trades", token, map[string]uint{
		"offered_item_id":   offered,
		"requested_item_id": requested,
		"receiver_id":       receiver,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var trade models.Trade
	decodeResponse(t, w, &trade)
	return trade.ID
}

func (m *marketplace) setStatus(t *testing.T, token string, tradeID uint, status string) int {
	t.Helper()
	w := m.do(t, http.MethodPost, fmt.Sprintf("/api/v1/trades/%d/status", tradeID), token, map[string]string{"status": status})
	return w.Code
}

// TestAcceptedItemsCannotBeTradedAgain walks the propose, accept, re-propose scenario
func TestAcceptedItemsCannotBeTradedAgain(t *testing.T) {
	m := newMarketplace(t)

	tradeID := m.propose(t, m.aliceToken, m.bicycle, m.guitar, m.bobID)
	require.Equal(t, http.StatusOK, m.setStatus(t, m.bobToken, tradeID, "accepted"))

	for _, itemID := range []uint{m.bicycle, m.guitar} {
		w := m.do(t, http.MethodGet, fmt.Sprintf("/api/v1/items/%d", itemID), m.carolToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var item models.ItemView
		decodeResponse(t, w, &item)
		assert.Equal(t, models.ItemTraded, item.Status)
	}

	w := m.do(t, http.MethodPost, "/api/v1/trades", m.carolToken, map[string]uint{
		"offered_item_id":   m.lamp,
		"requested_item_id": m.guitar,
		"receiver_id":       m.bobID,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ITEM_NOT_AVAILABLE", errorCode(t, w))
}

// TestConcurrentAcceptsOverSharedItem accepts two proposals for the same item at once
func TestConcurrentAcceptsOverSharedItem(t *testing.T) {
	m := newMarketplace(t)

	fromAlice := m.propose(t, m.aliceToken, m.bicycle, m.guitar, m.bobID)
	fromCarol := m.propose(t, m.carolToken, m.lamp, m.guitar, m.bobID)

	codes := make([]int, 2)
	var wg sync.WaitGroup
	for i, tradeID := range []uint{fromAlice, fromCarol} {
		wg.Add(1)
		go func(i int, tradeID uint) {
			defer wg.Done()
			w := m.do(t, http.MethodPost, fmt.Sprintf("/api/v1/trades/%d/status", tradeID), m.bobToken, map[string]string{"status": "accepted"})
			codes[i] = w.Code
		}(i, tradeID)
	}
	wg.Wait()

	assert.ElementsMatch(t, []int{http.StatusOK, http.StatusConflict}, codes, "exactly one accept wins")

	var accepted int64
	require.NoError(t, m.db.Model(&models.Trade{}).Where("status = ?", models.TradeAccepted).Count(&accepted).Error)
	assert.Equal(t, int64(1), accepted)
}

func TestOnlyEntitledRolesChangeStatus(t *testing.T) {
	m := newMarketplace(t)
	tradeID := m.propose(t, m.aliceToken, m.bicycle, m.guitar, m.bobID)

	tests := []struct {
		name           string
		token          string
		status         string
		expectedStatus int
	}{
		{"Sender cannot accept", m.aliceToken, "accepted", http.StatusForbidden},
		{"Sender cannot decline", m.aliceToken, "declined", http.StatusForbidden},
		{"Receiver cannot cancel", m.bobToken, "cancelled", http.StatusForbidden},
		{"Outsider cannot accept", m.carolToken, "accepted", http.StatusForbidden},
		{"Unknown status", m.bobToken, "archived", http.StatusBadRequest},
		{"Either side may reset to pending", m.aliceToken, "pending", http.StatusOK},
		{"Sender may cancel", m.aliceToken, "cancelled", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedStatus, m.setStatus(t, tt.token, tradeID, tt.status))
		})
	}
}

func TestOutsiderIsForbiddenFromTradeScopedCalls(t *testing.T) {
	m := newMarketplace(t)
	tradeID := m.propose(t, m.aliceToken, m.bicycle, m.guitar, m.bobID)

	calls := []struct {
		name   string
		method string
		path   string
		body   interface{}
	}{
		{"get", http.MethodGet, fmt.Sprintf("/api/v1/trades/%d", tradeID), nil},
		{"update status", http.MethodPost, fmt.Sprintf("/api/v1/trades/%d/status", tradeID), map[string]string{"status": "completed"}},
		{"send", http.MethodPost, "/api/v1/chat/messages", map[string]interface{}{"trade_id": tradeID, "receiver_id": m.bobID, "message": "hi"}},
		{"list", http.MethodGet, fmt.Sprintf("/api/v1/trades/%d/messages", tradeID), nil},
	}

	for _, call := range calls {
		t.Run(call.name, func(t *testing.T) {
			w := m.do(t, call.method, call.path, m.carolToken, call.body)
			assert.Equal(t, http.StatusForbidden, w.Code)
			assert.Equal(t, "NOT_A_PARTICIPANT", errorCode(t, w))
		})
	}
}

func TestSentAndReceivedInboxes(t *testing.T) {
	m := newMarketplace(t)
	first := m.propose(t, m.aliceToken, m.bicycle, m.guitar, m.bobID)
	second := m.propose(t, m.aliceToken, m.bicycle, m.lamp, m.carolID)
	third := m.propose(t, m.carolToken, m.lamp, m.guitar, m.bobID)

	inbox := func(token, path string) []uint {
		w := m.do(t, http.MethodGet, path, token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var summaries []models.TradeSummary
		decodeResponse(t, w, &summaries)
		ids := make([]uint, 0, len(summaries))
		for _, s := range summaries {
			ids = append(ids, s.ID)
		}
		return ids
	}

	assert.Equal(t, []uint{second, first}, inbox(m.aliceToken, "/api/v1/trades/sent"), "newest first")
	assert.Equal(t, []uint{third, first}, inbox(m.bobToken, "/api/v1/trades/received"))
	assert.Equal(t, []uint{second}, inbox(m.carolToken, "/api/v1/trades/received"))
	assert.Equal(t, []uint{third}, inbox(m.carolToken, "/api/v1/trades/sent"))
	assert.Empty(t, inbox(m.bobToken, "/api/v1/trades/sent"))
}

func TestHelloMessageScenario(t *testing.T) {
	m := newMarketplace(t)
	tradeID := m.propose(t, m.aliceToken, m.bicycle, m.guitar, m.bobID)

	w := m.do(t, http.MethodPost, "/api/v1/chat/messages", m.aliceToken, map[string]interface{}{
		"trade_id":    tradeID,
		"receiver_id": m.bobID,
		"message":     "  hello  ",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = m.do(t, http.MethodGet, fmt.Sprintf("/api/v1/trades/%d/messages", tradeID), m.bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var messages []models.ChatMessageView
	decodeResponse(t, w, &messages)
	require.Len(t, messages, 1)
	assert.Equal(t, "hello", messages[0].Message)
	assert.False(t, messages[0].IsRead)
	assert.Equal(t, m.aliceID, messages[0].SenderID)
	assert.Equal(t, m.bobID, messages[0].ReceiverID)
	assert.Equal(t, "Alice Archer", messages[0].SenderName)
}

func TestChatRejectsBlankMessagesAndKeepsOrder(t *testing.T) {
	m := newMarketplace(t)
	tradeID := m.propose(t, m.aliceToken, m.bicycle, m.guitar, m.bobID)

	w := m.do(t, http.MethodPost, "/api/v1/chat/messages", m.bobToken, map[string]interface{}{
		"trade_id":    tradeID,
		"receiver_id": m.aliceID,
		"message":     " \t\n ",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "EMPTY_MESSAGE", errorCode(t, w))

	sent := []struct {
		token    string
		receiver uint
		text     string
	}{
		{m.aliceToken, m.bobID, "would you swap?"},
		{m.bobToken, m.aliceID, "maybe, is it a road bike?"},
		{m.aliceToken, m.bobID, "yes"},
		{m.bobToken, m.aliceID, "deal"},
	}
	for _, msg := range sent {
		w := m.do(t, http.MethodPost, "/api/v1/chat/messages", msg.token, map[string]interface{}{
			"trade_id":    tradeID,
			"receiver_id": msg.receiver,
			"message":     msg.text,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w = m.do(t, http.MethodGet, fmt.Sprintf("/api/v1/trades/%d/messages", tradeID), m.aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var messages []models.ChatMessageView
	decodeResponse(t, w, &messages)
	require.Len(t, messages, len(sent))
	for i, msg := range sent {
		assert.Equal(t, msg.text, messages[i].Message)
		assert.Equal(t, msg.receiver, messages[i].ReceiverID)
		if i > 0 {
			assert.False(t, messages[i].Timestamp.Before(messages[i-1].Timestamp))
		}
	}
}
