package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"medcost/monitoring"
)

const (
	wsMaxMessageSize = 4096
	wsWriteWait      = 10 * time.Second
)

// handleWSPredict 实时预测通道：每条文本消息是一条被保险人记录，每条回复是一个预测结果。
func (h *Handler) handleWSPredict(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessageSize)

	ctx := r.Context()
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		var resp predictResponse
		var req predictRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			h.metrics.ObservePrediction(channelWS, monitoring.OutcomeInvalidInput, 0, 0)
			resp = predictResponse{
				Code:    monitoring.OutcomeInvalidInput,
				Message: "消息不是有效的JSON",
				Error:   err.Error(),
			}
		} else {
			_, resp = h.respond(ctx, channelWS, req)
		}

		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(resp); err != nil {
			h.logger.Warn("websocket write failed", zap.Error(err))
			return
		}
	}
}
