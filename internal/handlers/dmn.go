package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/kevin07696/gateway-console/internal/dmn"
	"github.com/kevin07696/gateway-console/pkg/observability"
)

// DMNHandler receives gateway notifications and serves the retained log.
type DMNHandler struct {
	classifier *dmn.Classifier
	store      *dmn.Store
	logger     *zap.Logger
}

// NewDMNHandler creates a DMN handler
func NewDMNHandler(classifier *dmn.Classifier, store *dmn.Store, logger *zap.Logger) *DMNHandler {
	return &DMNHandler{
		classifier: classifier,
		store:      store,
		logger:     logger,
	}
}

// HandleIngest GET|POST /dmn. Ingestion never fails: the gateway retries
// deliveries it considers unacknowledged, so every request gets 200 OK.
func (h *DMNHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	h.ingest(w, r, "")
}

// HandleThreeDSCallback GET|POST /dmn/3ds is the challenge completion
// endpoint the popup posts back to. Same classifier, labeled for the UI.
func (h *DMNHandler) HandleThreeDSCallback(w http.ResponseWriter, r *http.Request) {
	h.ingest(w, r, "3DS Callback")
}

func (h *DMNHandler) ingest(w http.ResponseWriter, r *http.Request, label string) {
	payload := h.classifier.Payload(r)
	h.store.Insert(dmn.NewRecord(label, payload))

	observability.RecordNotification(payload[dmn.KeyMessageType])

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// listResponse is the JSON body for the notification log
type listResponse struct {
	Count int          `json:"count"`
	DMNs  []dmn.Record `json:"dmns"`
}

// HandleList GET /api/dmns returns retained notifications, most recent
// first. DELETE clears the log.
func (h *DMNHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		records := h.store.List()
		writeJSON(w, http.StatusOK, listResponse{Count: len(records), DMNs: records})

	case http.MethodDelete:
		h.store.Clear()
		h.logger.Info("Notification log cleared")
		w.WriteHeader(http.StatusNoContent)

	default:
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	}
}
