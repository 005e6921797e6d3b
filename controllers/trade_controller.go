package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/barter-api/services"
)

// CreateTradeRequest represents the request body for proposing a trade
type CreateTradeRequest struct {
	OfferedItemID   uint `json:"offered_item_id"`
	RequestedItemID uint `json:"requested_item_id"`
	ReceiverID      uint `json:"receiver_id"`
}

// CheckTradeRequest represents the request body for POST /trades/check
type CheckTradeRequest struct {
	RequestedItemID uint `json:"requested_item_id"`
	ReceiverID      uint `json:"receiver_id"`
}

// UpdateTradeStatusRequest represents the request body for POST /trades/:id/status
type UpdateTradeStatusRequest struct {
	Status string `json:"status"`
}

// TradeController serves the trade ledger over HTTP
type TradeController struct {
	trades services.TradeLedger
}

func NewTradeController(trades services.TradeLedger) *TradeController {
	return &TradeController{trades: trades}
}

// CreateTrade handles POST /api/v1/trades
func (tc *TradeController) CreateTrade(c *gin.Context) {
	callerID, ok := requireCaller(c)
	if !ok {
		return
	}

	var req CreateTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, "Invalid request data")
		return
	}

	trade, err := tc.trades.Create(c.Request.Context(), callerID, services.CreateTradeInput{
		OfferedItemID:   req.OfferedItemID,
		RequestedItemID: req.RequestedItemID,
		ReceiverID:      req.ReceiverID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, trade)
}

// CheckExistingTrade handles POST /api/v1/trades/check
func (tc *TradeController) CheckExistingTrade(c *gin.Context) {
	callerID, ok := requireCaller(c)
	if !ok {
		return
	}

	var req CheckTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, "Invalid request data")
		return
	}

	result, err := tc.trades.CheckExisting(c.Request.Context(), callerID, req.RequestedItemID, req.ReceiverID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, result)
}

// UpdateTradeStatus handles POST /api/v1/trades/:id/status
func (tc *TradeController) UpdateTradeStatus(c *gin.Context) {
	callerID, ok := requireCaller(c)
	if !ok {
		return
	}
	tradeID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateTradeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, "Invalid request data")
		return
	}

	trade, err := tc.trades.UpdateStatus(c.Request.Context(), callerID, tradeID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, trade)
}

// GetTrade handles GET /api/v1/trades/:id
func (tc *TradeController) GetTrade(c *gin.Context) {
	callerID, ok := requireCaller(c)
	if !ok {
		return
	}
	tradeID, ok := parseID(c, "id")
	if !ok {
		return
	}

	detail, err := tc.trades.Get(c.Request.Context(), tradeID, callerID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, detail)
}

// ListSentTrades handles GET /api/v1/trades/sent
func (tc *TradeController) ListSentTrades(c *gin.Context) {
	callerID, ok := requireCaller(c)
	if !ok {
		return
	}

	trades, err := tc.trades.ListSent(c.Request.Context(), callerID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, trades)
}

// ListReceivedTrades handles GET /api/v1/trades/received
func (tc *TradeController) ListReceivedTrades(c *gin.Context) {
	callerID, ok := requireCaller(c)
	if !ok {
		return
	}

	trades, err := tc.trades.ListReceived(c.Request.Context(), callerID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, trades)
}
