package ingest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/Artic67/iot-labs/internal/domain"
	"github.com/Artic67/iot-labs/internal/ports"
)

// Server exposes the ingestion service over HTTP: batch intake, CRUDL on
// stored records, and a WebSocket subscription channel per producer id.
type Server struct {
	svc       *Service
	obs       ports.Observability
	subBuffer int
	upgrader  websocket.Upgrader
}

func NewServer(svc *Service, obs ports.Observability, subBuffer int) *Server {
	if subBuffer < 1 {
		subBuffer = 16
	}
	return &Server{
		svc:       svc,
		obs:       obs,
		subBuffer: subBuffer,
		upgrader:  websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /processed_agent_data/{$}", s.handleIngest)
	mux.HandleFunc("GET /processed_agent_data/{$}", s.handleList)
	mux.HandleFunc("GET /processed_agent_data/{id}", s.handleGet)
	mux.HandleFunc("PUT /processed_agent_data/{id}", s.handleUpdate)
	mux.HandleFunc("DELETE /processed_agent_data/{id}", s.handleDelete)
	mux.HandleFunc("GET /ws/{user_id}", s.handleSubscribe)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var batch []domain.RawProcessedAgentData
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		writeDetail(w, http.StatusBadRequest, "malformed JSON body: "+err.Error())
		return
	}

	committed, err := s.svc.Ingest(r.Context(), batch)
	if err != nil {
		var ingErr *IngestError
		status := http.StatusInternalServerError
		var valErr *domain.ValidationError
		if errors.As(err, &valErr) {
			status = http.StatusBadRequest
		}
		detail := err.Error()
		if errors.As(err, &ingErr) {
			// Partial commit: tell the caller exactly how far the batch got.
			writeJSON(w, status, map[string]any{
				"detail":    detail,
				"committed": ingErr.Committed,
			})
			return
		}
		writeDetail(w, status, detail)
		return
	}
	writeJSON(w, http.StatusOK, committed)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	rec, err := s.svc.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := s.svc.List(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if records == nil {
		records = []domain.StoredRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	var raw domain.RawProcessedAgentData
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeDetail(w, http.StatusBadRequest, "malformed JSON body: "+err.Error())
		return
	}
	rec, err := s.svc.Update(r.Context(), id, raw)
	if err != nil {
		var valErr *domain.ValidationError
		if errors.As(err, &valErr) {
			writeDetail(w, http.StatusBadRequest, valErr.Error())
			return
		}
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	rec, err := s.svc.Delete(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleSubscribe upgrades the connection and streams every record ingested
// for the producer id until the client disconnects or falls too far behind.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.PathValue("user_id"), 10, 64)
	if err != nil || userID < 0 {
		writeDetail(w, http.StatusBadRequest, "invalid user id")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.obs.LogError("websocket upgrade failed", err)
		return
	}

	sub := s.svc.Registry().Subscribe(userID, s.subBuffer)

	go func() {
		for rec := range sub.C {
			if err := conn.WriteJSON(rec); err != nil {
				break
			}
		}
		conn.Close()
	}()

	// The subscriber sends nothing meaningful; reading only detects
	// disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.svc.Registry().Unsubscribe(sub)
	conn.Close()
	s.obs.LogInfo("subscriber disconnected",
		ports.Field{Key: "user_id", Value: userID},
		ports.Field{Key: "subscription_id", Value: sub.ID})
}

func recordID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid record id")
		return 0, false
	}
	return id, true
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Data not found")
		return
	}
	writeDetail(w, http.StatusInternalServerError, err.Error())
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
