// Package server exposes the traffic-control API over HTTP and WebSocket.
package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/citypulse/trafficd/internal/engine"
	"github.com/citypulse/trafficd/internal/events"
	"github.com/citypulse/trafficd/internal/geo"
	"github.com/citypulse/trafficd/internal/hub"
	"github.com/citypulse/trafficd/internal/model"
)

// Server wires the engine, the event hub, and the spatial index into a gin
// router.
type Server struct {
	router *gin.Engine
	engine *engine.Engine
	hub    *hub.Hub
	index  *geo.Index
	log    *logrus.Entry
}

// New builds the router with all routes registered.
func New(eng *engine.Engine, h *hub.Hub, index *geo.Index, log *logrus.Logger) *Server {
	s := &Server{
		router: gin.Default(),
		engine: eng,
		hub:    h,
		index:  index,
		log:    log.WithField("component", "server"),
	}
	s.setupRoutes()
	return s
}

// Router returns the underlying handler for an http.Server.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(cors.Default())

	s.router.GET("/", s.root)
	s.router.GET("/health", s.health)

	api := s.router.Group("/api")
	{
		api.GET("/intersections", s.listIntersections)
		api.GET("/intersections/nearby", s.nearbyIntersections)
		api.GET("/intersections/:id", s.getIntersection)

		api.GET("/emergency-vehicles", s.listVehicles)
		api.POST("/emergency-vehicles", s.createVehicle)

		api.POST("/priority-override/:intersection_id", s.priorityOverride)
		api.GET("/traffic-status", s.trafficStatus)

		api.GET("/incidents", s.listIncidents)
		api.POST("/incidents", s.reportIncident)
		api.POST("/incidents/:id/resolve", s.resolveIncident)
	}

	s.router.GET("/ws", s.handleWebSocket)
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Smart City Traffic Control API",
		"version": "1.0.0",
		"status":  "online",
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) listIntersections(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Intersections())
}

func (s *Server) getIntersection(c *gin.Context) {
	in, err := s.engine.Intersection(c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, in)
}

func (s *Server) nearbyIntersections(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	if errLat != nil || errLon != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon query parameters are required"})
		return
	}

	radius := engine.AutoTriggerRadiusKm
	if raw := c.Query("radius"); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil || r <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "radius must be a positive number"})
			return
		}
		radius = r
	}

	ids := s.index.Nearby(geo.Coordinate{Latitude: lat, Longitude: lon}, radius)
	out := make([]model.Intersection, 0, len(ids))
	for _, id := range ids {
		in, err := s.engine.Intersection(id)
		if err != nil {
			continue
		}
		out = append(out, in)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) listVehicles(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.ActiveVehicles())
}

// Coordinates are pointers so that a legitimate 0.0 still passes the
// required binding.
type createVehicleRequest struct {
	ID               string     `json:"id"`
	Type             string     `json:"type" binding:"required"`
	Latitude         *float64   `json:"latitude" binding:"required"`
	Longitude        *float64   `json:"longitude" binding:"required"`
	DestinationLat   *float64   `json:"destination_lat" binding:"required"`
	DestinationLon   *float64   `json:"destination_lon" binding:"required"`
	Speed            float64    `json:"speed"`
	Route            []string   `json:"route"`
	PriorityLevel    int        `json:"priority_level" binding:"required,min=1,max=10"`
	EstimatedArrival *time.Time `json:"estimated_arrival"`
}

func (s *Server) createVehicle(c *gin.Context) {
	var req createVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	v, err := s.engine.RegisterVehicle(model.EmergencyVehicle{
		ID:               req.ID,
		Type:             req.Type,
		Latitude:         *req.Latitude,
		Longitude:        *req.Longitude,
		DestinationLat:   *req.DestinationLat,
		DestinationLon:   *req.DestinationLon,
		Speed:            req.Speed,
		Route:            req.Route,
		PriorityLevel:    req.PriorityLevel,
		EstimatedArrival: req.EstimatedArrival,
	})
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "created", "vehicle": v})
}

type overrideRequest struct {
	VehicleID     string `json:"vehicle_id" binding:"required"`
	PriorityLevel int    `json:"priority_level"`
	Duration      int    `json:"duration"`
}

func (s *Server) priorityOverride(c *gin.Context) {
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in, err := s.engine.PriorityOverride(model.PriorityRequest{
		VehicleID:      req.VehicleID,
		IntersectionID: c.Param("intersection_id"),
		PriorityLevel:  req.PriorityLevel,
		Duration:       req.Duration,
	})
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "priority override activated", "intersection": in})
}

func (s *Server) trafficStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Status())
}

func (s *Server) listIncidents(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Incidents())
}

type reportIncidentRequest struct {
	Type              string   `json:"type" binding:"required"`
	Latitude          *float64 `json:"latitude" binding:"required"`
	Longitude         *float64 `json:"longitude" binding:"required"`
	Severity          int      `json:"severity" binding:"required"`
	Description       string   `json:"description"`
	EmergencyVehicles []string `json:"emergency_vehicles"`
}

func (s *Server) reportIncident(c *gin.Context) {
	var req reportIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inc, err := s.engine.ReportIncident(model.TrafficIncident{
		Type:              req.Type,
		Latitude:          *req.Latitude,
		Longitude:         *req.Longitude,
		Severity:          req.Severity,
		Description:       req.Description,
		EmergencyVehicles: req.EmergencyVehicles,
	})
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reported", "incident": inc})
}

func (s *Server) resolveIncident(c *gin.Context) {
	inc, err := s.engine.ResolveIncident(c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "resolved", "incident": inc})
}

func (s *Server) renderError(c *gin.Context, err error) {
	switch {
	case engine.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.log.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	sub := s.hub.Subscribe()
	s.log.WithField("subscriber", sub.ID).Info("websocket client connected")

	go s.wsWritePump(conn, sub)
	go s.wsReadPump(conn, sub)
}

// wsWritePump sends an initial snapshot, then forwards hub events until the
// subscription closes.
func (s *Server) wsWritePump(conn *websocket.Conn, sub *hub.Subscriber) {
	defer conn.Close()

	snapshot := events.NewTrafficUpdate(time.Now().UTC(), s.engine.Intersections(), s.engine.ActiveVehicles())
	if err := s.writeEvent(conn, snapshot); err != nil {
		s.hub.Unsubscribe(sub.ID)
		return
	}

	for {
		select {
		case <-sub.Done:
			return
		case evt, ok := <-sub.C:
			if !ok {
				return
			}
			if err := s.writeEvent(conn, evt); err != nil {
				s.hub.Unsubscribe(sub.ID)
				return
			}
		}
	}
}

func (s *Server) writeEvent(conn *websocket.Conn, evt events.Event) error {
	payload, err := evt.Marshal()
	if err != nil {
		s.log.WithError(err).WithField("event", evt.Type).Error("failed to marshal event")
		return nil
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// wsReadPump drains client frames to detect disconnects.
func (s *Server) wsReadPump(conn *websocket.Conn, sub *hub.Subscriber) {
	defer func() {
		s.hub.Unsubscribe(sub.ID)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
