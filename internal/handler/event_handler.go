package handler

import (
	"net/http"
	"strconv"

	"go-gin-event-store/internal/model"
	"go-gin-event-store/internal/service"
	apperrors "go-gin-event-store/pkg/app_errors"
	"go-gin-event-store/pkg/logger"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	msgEventCreated   = "Event created successfully!"
	msgEventUpdated   = "Event updated successfully!"
	msgWinnerSet      = "Winner has been set successfully!"
	msgEventDeleted   = "Event deleted successfully."
	msgEventNotFound  = "Event not found."
	msgFieldsRequired = "Event name, sport, and date are required."
	msgWinnerRequired = "Winner name is required."
	msgInvalidDate    = "Invalid event date."
)

type EventHandler struct {
	service service.EventService
}

func NewEventHandler(service service.EventService) *EventHandler {
	return &EventHandler{service: service}
}

func (h *EventHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/events", h.List)
	r.POST("/events", h.Create)
	r.PUT("/events/:id", h.Update)
	r.PUT("/events/:id/winner", h.SetWinner)
	r.DELETE("/events/:id", h.Delete)
}

// EventRequest is the body of create and full update.
type EventRequest struct {
	EventName        string  `json:"event_name" binding:"required"`
	Sport            string  `json:"sport" binding:"required"`
	EventDate        string  `json:"event_date" binding:"required"`
	WinnerPlayerName *string `json:"winner_player_name"`
}

type SetWinnerRequest struct {
	WinnerPlayerName string `json:"winner_player_name" binding:"required"`
}

func (h *EventHandler) List(c *gin.Context) {
	events, err := h.service.List(c)
	if err != nil {
		h.handleError(c, err, "List")
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *EventHandler) Create(c *gin.Context) {
	params, ok := h.bindEvent(c)
	if !ok {
		return
	}
	id, err := h.service.Create(c, params)
	if err != nil {
		h.handleError(c, err, "Create")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msgEventCreated, "eventId": id})
}

// Update and SetWinner validate the body before looking at :id, so a bad
// request is a 400 whatever the path says.
func (h *EventHandler) Update(c *gin.Context) {
	params, ok := h.bindEvent(c)
	if !ok {
		return
	}
	id, ok := h.eventID(c)
	if !ok {
		return
	}
	if err := h.service.Update(c, id, params); err != nil {
		h.handleError(c, err, "Update")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msgEventUpdated})
}

func (h *EventHandler) SetWinner(c *gin.Context) {
	var req SetWinnerRequest
	if err := BindJson(c, &req, msgWinnerRequired); err != nil {
		return
	}
	id, ok := h.eventID(c)
	if !ok {
		return
	}
	if err := h.service.SetWinner(c, id, req.WinnerPlayerName); err != nil {
		h.handleError(c, err, "SetWinner")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msgWinnerSet})
}

func (h *EventHandler) Delete(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c, id); err != nil {
		h.handleError(c, err, "Delete")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msgEventDeleted})
}

func (h *EventHandler) bindEvent(c *gin.Context) (model.EventParams, bool) {
	var req EventRequest
	if err := BindJson(c, &req, msgFieldsRequired); err != nil {
		return model.EventParams{}, false
	}
	date, err := model.ParseDate(req.EventDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidDate})
		return model.EventParams{}, false
	}
	return model.EventParams{
		EventName:        req.EventName,
		Sport:            req.Sport,
		EventDate:        date,
		WinnerPlayerName: req.WinnerPlayerName,
	}, true
}

// eventID parses the :id segment. A value that is not an integer cannot match
// any row, so it is reported as not found.
func (h *EventHandler) eventID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": msgEventNotFound})
		return 0, false
	}
	return id, true
}

// handleError passes database errors through verbatim; callers of this API
// rely on the driver message.
func (h *EventHandler) handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrEventNotFound):
		log.Warn("Event not found")
		c.JSON(http.StatusNotFound, gin.H{"error": msgEventNotFound})
	case errors.Is(err, apperrors.ErrWinnerRequired):
		log.Warn("Invalid input")
		c.JSON(http.StatusBadRequest, gin.H{"error": msgWinnerRequired})
	case errors.Is(err, apperrors.ErrInvalidInput):
		log.Warn("Invalid input")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
