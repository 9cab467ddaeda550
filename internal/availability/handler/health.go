package handler

import (
	"context"
	httputil "lodgr/pkg/http"
	kafkamw "lodgr/pkg/kafka/middleware"
	"lodgr/pkg/logger"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

type UnitCounter interface {
	Units() int
}

// HoldCounter counts unexpired active holds in the journal.
type HoldCounter interface {
	CountActive(ctx context.Context, now time.Time) (int64, error)
}

type DropCounter interface {
	Dropped() int64
}

type HealthResponse struct {
	Status        string                   `json:"status"`
	Database      string                   `json:"database,omitempty"`
	Units         *int                     `json:"units,omitempty"`
	ActiveHolds   *int64                   `json:"activeHolds,omitempty"`
	DroppedEvents *int64                   `json:"droppedEvents,omitempty"`
	Events        *kafkamw.MetricsSnapshot `json:"events,omitempty"`
}

type HealthHandler struct {
	db           Pinger
	units        UnitCounter
	holds        HoldCounter
	drops        DropCounter
	kafkaMetrics *kafkamw.Metrics
	log          *logger.Logger
}

// NewHealthHandler builds the liveness and readiness handler. Any source but
// db may be nil; its field is then left out of the readiness payload.
func NewHealthHandler(db Pinger, units UnitCounter, holds HoldCounter, drops DropCounter, kafkaMetrics *kafkamw.Metrics, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:           db,
		units:        units,
		holds:        holds,
		drops:        drops,
		kafkaMetrics: kafkaMetrics,
		log:          log,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
	})
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ready", Database: "ok"}
	if h.units != nil {
		n := h.units.Units()
		resp.Units = &n
	}
	if h.drops != nil {
		n := h.drops.Dropped()
		resp.DroppedEvents = &n
	}
	if h.kafkaMetrics != nil {
		snapshot := h.kafkaMetrics.Snapshot()
		resp.Events = &snapshot
	}

	if err := h.db.Ping(ctx, readpref.Primary()); err != nil {
		h.log.Error("Database health check failed",
			"error", err,
			"path", r.URL.Path,
		)
		resp.Status = "unavailable"
		resp.Database = "error"
		httputil.WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	if h.holds != nil {
		if n, err := h.holds.CountActive(ctx, time.Now().UTC()); err != nil {
			h.log.Warn("Failed to count active holds", "error", err)
		} else {
			resp.ActiveHolds = &n
		}
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
