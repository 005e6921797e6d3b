package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/barter-api/services"
)

// SendMessageRequest represents the request body for POST /chat/messages
type SendMessageRequest struct {
	TradeID    uint   `json:"trade_id"`
	ReceiverID uint   `json:"receiver_id"`
	Message    string `json:"message"`
}

// ChatController serves the negotiation channel of a trade
type ChatController struct {
	chat services.NegotiationChannel
}

func NewChatController(chat services.NegotiationChannel) *ChatController {
	return &ChatController{chat: chat}
}

// SendMessage handles POST /api/v1/chat/messages
func (cc *ChatController) SendMessage(c *gin.Context) {
	callerID, ok := requireCaller(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, "Invalid request data")
		return
	}

	msg, err := cc.chat.Send(c.Request.Context(), callerID, services.SendMessageInput{
		TradeID:    req.TradeID,
		ReceiverID: req.ReceiverID,
		Message:    req.Message,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, msg)
}

// ListMessages handles GET /api/v1/trades/:id/messages
func (cc *ChatController) ListMessages(c *gin.Context) {
	callerID, ok := requireCaller(c)
	if !ok {
		return
	}
	tradeID, ok := parseID(c, "id")
	if !ok {
		return
	}

	messages, err := cc.chat.List(c.Request.Context(), tradeID, callerID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, messages)
}
