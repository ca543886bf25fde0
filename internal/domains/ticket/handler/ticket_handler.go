package handler

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"vnpay-broker/internal/domains/ticket/model"
	"vnpay-broker/internal/domains/ticket/service"
)

type TicketHandler struct {
	renderer *service.Renderer
}

func NewTicketHandler(renderer *service.Renderer) *TicketHandler {
	return &TicketHandler{renderer: renderer}
}

// ViewTicket renders a ticket QR payload
// GET /tickets/view?data=...
func (h *TicketHandler) ViewTicket(c *gin.Context) {
	h.view(c, model.KindTicket)
}

// ViewBooking renders a booking QR payload
// GET /bookings/view?data=...
func (h *TicketHandler) ViewBooking(c *gin.Context) {
	h.view(c, model.KindBooking)
}

func (h *TicketHandler) view(c *gin.Context, kind string) {
	ticket, err := service.DecodePayload(c.Query("data"))
	if err != nil {
		log.Debug().Err(err).Str("kind", kind).Msg("Rejected ticket payload")
		h.writeError(c, http.StatusBadRequest, "Mã QR không hợp lệ hoặc đã bị hỏng.")
		return
	}
	// route decides the kind, not the payload
	ticket.Kind = kind

	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, ticket); err != nil {
		log.Error().Err(err).Str("code", ticket.Code).Msg("Ticket render failed")
		h.writeError(c, http.StatusInternalServerError, "Không thể hiển thị vé.")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (h *TicketHandler) writeError(c *gin.Context, status int, message string) {
	var buf bytes.Buffer
	if err := h.renderer.RenderError(&buf, message); err != nil {
		c.String(status, message)
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}
