package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/service/booking"
	"github.com/Domenick1991/flightbooking/internal/service/flights"
	"github.com/gin-gonic/gin"
)

type FlightHandler struct {
	service  flights.FlightUseCase
	bookings booking.BookingUseCase
}

type createFlightRequest struct {
	FlightNumber       string    `json:"flight_number" binding:"required"`
	Airline            string    `json:"airline" binding:"required"`
	DepartureAirportID int64     `json:"departure_airport_id" binding:"required"`
	ArrivalAirportID   int64     `json:"arrival_airport_id" binding:"required"`
	DepartureTime      time.Time `json:"departure_time" binding:"required"`
	ArrivalTime        time.Time `json:"arrival_time" binding:"required"`
	TotalSeats         int       `json:"total_seats" binding:"required"`
	AvailableSeats     int       `json:"available_seats"`
	PriceCents         int64     `json:"price_cents" binding:"required"`
}

// updateFlightRequest has no available_seats: the counter is owned by bookings.
type updateFlightRequest struct {
	Airline       *string    `json:"airline"`
	DepartureTime *time.Time `json:"departure_time"`
	ArrivalTime   *time.Time `json:"arrival_time"`
	PriceCents    *int64     `json:"price_cents"`
}

func NewFlightHandler(service flights.FlightUseCase, bookings booking.BookingUseCase) *FlightHandler {
	return &FlightHandler{service: service, bookings: bookings}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.POST("", h.create)
	router.GET("/:id", h.get)
	router.PUT("/:id", h.update)
	router.DELETE("/:id", h.delete)
	router.GET("/:id/bookings", h.listBookings)
}

func (h *FlightHandler) list(c *gin.Context) {
	departure, ok := queryID(c, "departure_airport_id")
	if !ok {
		return
	}
	arrival, ok := queryID(c, "arrival_airport_id")
	if !ok {
		return
	}

	result, err := h.service.Search(c.Request.Context(), flights.SearchQuery{
		DepartureAirportID: departure,
		ArrivalAirportID:   arrival,
		Date:               c.Query("date"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *FlightHandler) create(c *gin.Context) {
	var req createFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	flight, err := h.service.Create(c.Request.Context(), flights.CreateFlightInput{
		FlightNumber:       req.FlightNumber,
		Airline:            req.Airline,
		DepartureAirportID: req.DepartureAirportID,
		ArrivalAirportID:   req.ArrivalAirportID,
		DepartureTime:      req.DepartureTime,
		ArrivalTime:        req.ArrivalTime,
		TotalSeats:         req.TotalSeats,
		AvailableSeats:     req.AvailableSeats,
		PriceCents:         req.PriceCents,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, flight)
}

func (h *FlightHandler) get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	flight, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, flight)
}

func (h *FlightHandler) update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	flight, err := h.service.Update(c.Request.Context(), id, domain.FlightUpdate{
		Airline:       req.Airline,
		DepartureTime: req.DepartureTime,
		ArrivalTime:   req.ArrivalTime,
		PriceCents:    req.PriceCents,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, flight)
}

func (h *FlightHandler) delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FlightHandler) listBookings(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := h.service.GetByID(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	bookings, err := h.bookings.ListBookings(c.Request.Context(), domain.BookingFilter{FlightID: id})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}
