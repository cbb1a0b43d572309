package httpapi

import (
	"bytes"
	"net/http"
	"time"

	"github.com/roach88/slotswap/internal/calendar"
	"github.com/roach88/slotswap/internal/slot"
)

type createEventBody struct {
	Title     string    `json:"title"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Status    string    `json:"status"`
}

type updateEventBody struct {
	Title     *string    `json:"title"`
	StartTime *time.Time `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`
	Status    *string    `json:"status"`
}

type swapRequestBody struct {
	MySlotID    string `json:"mySlotId"`
	TheirSlotID string `json:"theirSlotId"`
}

type swapResponseBody struct {
	Accept *bool `json:"accept"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.svc.ListMyEvents(r.Context(), callerID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var body createEventBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	status := slot.OwnerBusy
	if body.Status != "" {
		var err error
		if status, err = slot.ParseOwnerStatus(body.Status); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	e, err := s.svc.CreateEvent(r.Context(), callerID(r), slot.NewEvent{
		Title:     body.Title,
		StartTime: body.StartTime,
		EndTime:   body.EndTime,
		Status:    status,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"event": e})
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var body updateEventBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	patch := slot.EventPatch{
		Title:     body.Title,
		StartTime: body.StartTime,
		EndTime:   body.EndTime,
	}
	if body.Status != nil {
		status, err := slot.ParseOwnerStatus(*body.Status)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		patch.Status = &status
	}

	e, err := s.svc.UpdateEvent(r.Context(), callerID(r), r.PathValue("id"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"event": e})
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteEvent(r.Context(), callerID(r), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "event deleted"})
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	events, err := s.svc.ListMyEvents(r.Context(), caller)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := calendar.Write(&buf, caller, events, s.now()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleSwappable(w http.ResponseWriter, r *http.Request) {
	slots, err := s.svc.ListSwappable(r.Context(), callerID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": slots})
}

func (s *Server) handleMySwappable(w http.ResponseWriter, r *http.Request) {
	slots, err := s.svc.ListMySwappable(r.Context(), callerID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": slots})
}

func (s *Server) handleSwapRequest(w http.ResponseWriter, r *http.Request) {
	var body swapRequestBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if body.MySlotID == "" || body.TheirSlotID == "" {
		s.writeError(w, r, slot.Errorf(slot.CodeInvalidOperation, "mySlotId and theirSlotId are required"))
		return
	}

	req, err := s.svc.RequestSwap(r.Context(), callerID(r), body.MySlotID, body.TheirSlotID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"swapRequest": req})
}

func (s *Server) handleIncoming(w http.ResponseWriter, r *http.Request) {
	requests, err := s.svc.ListIncoming(r.Context(), callerID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": requests})
}

func (s *Server) handleOutgoing(w http.ResponseWriter, r *http.Request) {
	requests, err := s.svc.ListOutgoing(r.Context(), callerID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": requests})
}

func (s *Server) handleSwapResponse(w http.ResponseWriter, r *http.Request) {
	var body swapResponseBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if body.Accept == nil {
		s.writeError(w, r, slot.Errorf(slot.CodeInvalidOperation, "accept must be true or false"))
		return
	}

	req, err := s.svc.RespondToSwap(r.Context(), callerID(r), r.PathValue("requestId"), *body.Accept)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"swapRequest": req})
}
