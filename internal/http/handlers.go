package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/taxi-dispatch/internal/dispatch"
	"github.com/example/taxi-dispatch/internal/matcher"
	"github.com/example/taxi-dispatch/internal/models"
	"github.com/example/taxi-dispatch/internal/pricing"
)

// FareEstimator prices a trip from free-form pickup/drop inputs.
type FareEstimator interface {
	Estimate(ctx context.Context, pickup, drop string) pricing.Fare
}

// PositionHistory lists logged positions in insertion order.
type PositionHistory interface {
	List(ctx context.Context, vehicleID string) ([]models.HistoryRecord, error)
}

type Deps struct {
	Coordinator *matcher.Coordinator
	Fares       FareEstimator
	History     PositionHistory
	WSReg       *dispatch.WSRegistry
	// Ready reports whether backing services are reachable; nil means always ready.
	Ready  func(ctx context.Context) error
	Logger *slog.Logger
}

type Server struct {
	coord   *matcher.Coordinator
	fares   FareEstimator
	history PositionHistory
	wsReg   *dispatch.WSRegistry
	ready   func(ctx context.Context) error
	logger  *slog.Logger
	mux     *mux.Router
}

func NewServer(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	wsReg := d.WSReg
	if wsReg == nil {
		wsReg = dispatch.NewWSRegistry()
	}
	s := &Server{
		coord:   d.Coordinator,
		fares:   d.Fares,
		history: d.History,
		wsReg:   wsReg,
		ready:   d.Ready,
		logger:  logger,
		mux:     mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/location/{vehicleId}", s.handleLocation).Methods(http.MethodGet)
	s.mux.HandleFunc("/book", s.handleBook).Methods(http.MethodPost)
	s.mux.HandleFunc("/bookingInfo/{vehicleId}", s.handleBookingInfo).Methods(http.MethodGet)
	s.mux.HandleFunc("/estimateFare", s.handleEstimateFare).Methods(http.MethodGet)
	s.mux.HandleFunc("/acceptRide", s.lifecycle(s.coord.Accept, "Ride accepted")).Methods(http.MethodPost)
	s.mux.HandleFunc("/rejectRide", s.lifecycle(s.coord.Reject, "Ride rejected")).Methods(http.MethodPost)
	s.mux.HandleFunc("/confirmPickup", s.lifecycle(s.coord.ConfirmPickup, "Pickup confirmed")).Methods(http.MethodPost)
	s.mux.HandleFunc("/startTrip", s.lifecycle(s.coord.StartTrip, "Trip started")).Methods(http.MethodPost)
	s.mux.HandleFunc("/endTrip", s.lifecycle(s.coord.EndTrip, "Trip ended")).Methods(http.MethodPost)
	s.mux.HandleFunc("/cancelBooking/{rider}", s.handleCancel).Methods(http.MethodPost)
	s.mux.HandleFunc("/allVehicles", s.handleAllVehicles).Methods(http.MethodGet)
	s.mux.HandleFunc("/history/{vehicleId}", s.handleHistory).Methods(http.MethodGet)
	s.mux.HandleFunc("/userBooking/{rider}", s.handleUserBooking).Methods(http.MethodGet)
	s.mux.HandleFunc("/passenger/{vehicleId}", s.handlePassenger).Methods(http.MethodGet)
	s.mux.HandleFunc("/updateStatus", s.handleUpdateStatus).Methods(http.MethodPost)
	s.mux.HandleFunc("/ws/{vehicleId}", s.handleWS)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods(http.MethodGet)
	s.mux.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	snap, err := s.coord.Poll(r.Context(), mux.Vars(r)["vehicleId"])
	if err != nil {
		s.writeMatcherError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type bookRequest struct {
	Rider  string `json:"rider"`
	Pickup string `json:"pickup"`
	Drop   string `json:"drop"`
}

type bookResponse struct {
	Success   bool         `json:"success"`
	RideID    string       `json:"rideId"`
	VehicleID string       `json:"vehicleId"`
	ETA       float64      `json:"eta"`
	Pickup    models.Coord `json:"pickup"`
	Drop      models.Coord `json:"drop"`
	Fare      pricing.Fare `json:"fare"`
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "MissingFields", "invalid JSON body")
		return
	}
	b, err := s.coord.Book(r.Context(), req.Rider, req.Pickup, req.Drop)
	if err != nil {
		s.writeMatcherError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookResponse{
		Success:   true,
		RideID:    b.RideID,
		VehicleID: b.VehicleID,
		ETA:       b.ETAMinutes,
		Pickup:    b.Pickup,
		Drop:      b.Drop,
		Fare:      b.Fare,
	})
}

func (s *Server) handleBookingInfo(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["vehicleId"]
	if !s.coord.Known(id) {
		s.writeMatcherError(w, r, matcher.ErrNotFound)
		return
	}
	info, ok := s.coord.BookingInfo(id)
	if !ok {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// vehicleId is accepted for compatibility; fares do not depend on the vehicle.
func (s *Server) handleEstimateFare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fare := pricing.NotAvailable
	if s.fares != nil {
		fare = s.fares.Estimate(r.Context(), q.Get("pickup"), q.Get("drop"))
	}
	writeJSON(w, http.StatusOK, map[string]pricing.Fare{"fare": fare})
}

type vehicleRequest struct {
	VehicleID string `json:"vehicleId"`
	Status    string `json:"status,omitempty"`
}

type actionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// lifecycle adapts a per-vehicle coordinator transition to a POST handler
// taking {"vehicleId": "..."}.
func (s *Server) lifecycle(op func(context.Context, string) error, done string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req vehicleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.VehicleID) == "" {
			writeError(w, http.StatusBadRequest, "MissingFields", "vehicleId is required")
			return
		}
		if err := op(r.Context(), req.VehicleID); err != nil {
			s.writeMatcherError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, actionResponse{Success: true, Message: done})
	}
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.coord.Cancel(r.Context(), mux.Vars(r)["rider"]); err != nil {
		s.writeMatcherError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Success: true, Message: "Booking cancelled"})
}

type vehicleView struct {
	VehicleID string             `json:"vehicleId"`
	Lat       float64            `json:"lat"`
	Lng       float64            `json:"lng"`
	Type      models.VehicleType `json:"type"`
	Status    string             `json:"status"`
}

func (s *Server) handleAllVehicles(w http.ResponseWriter, r *http.Request) {
	vs := s.coord.Vehicles()
	out := make([]vehicleView, 0, len(vs))
	for _, v := range vs {
		out = append(out, vehicleView{VehicleID: v.ID, Lat: v.Loc.Lat, Lng: v.Loc.Lng, Type: v.Type, Status: v.Status})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["vehicleId"]
	if !s.coord.Known(id) {
		s.writeMatcherError(w, r, matcher.ErrNotFound)
		return
	}
	out := make([]models.Coord, 0)
	if s.history != nil {
		recs, err := s.history.List(r.Context(), id)
		if err != nil {
			s.writeMatcherError(w, r, matcher.ErrStorageUnavailable)
			return
		}
		for _, rec := range recs {
			out = append(out, rec.Loc)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUserBooking(w http.ResponseWriter, r *http.Request) {
	var resp struct {
		VehicleID *string `json:"vehicleId"`
	}
	if id, ok := s.coord.RiderVehicle(mux.Vars(r)["rider"]); ok {
		resp.VehicleID = &id
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePassenger(w http.ResponseWriter, r *http.Request) {
	var resp struct {
		Rider *string `json:"rider"`
	}
	if rider, ok := s.coord.PassengerFor(mux.Vars(r)["vehicleId"]); ok {
		resp.Rider = &rider
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req vehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.VehicleID == "" || req.Status == "" {
		writeError(w, http.StatusBadRequest, "MissingFields", "vehicleId and status are required")
		return
	}
	if err := s.coord.SetStatus(req.VehicleID, req.Status); err != nil {
		s.writeMatcherError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

var upgrader = websocket.Upgrader{}

// handleWS keeps a notification session open for a vehicle or the admin
// console until the client goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["vehicleId"]
	if id != dispatch.AdminTarget && !s.coord.Known(id) {
		s.writeMatcherError(w, r, matcher.ErrNotFound)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "target", id, "error", err)
		return
	}
	s.wsReg.Add(id, conn)
	s.logger.Info("websocket session opened", "target", id)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.wsReg.Remove(id, conn)
			_ = conn.Close()
			s.logger.Info("websocket session closed", "target", id)
			return
		}
	}
}
