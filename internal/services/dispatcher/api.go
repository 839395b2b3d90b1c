package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/LeonardoBeccarini/telldus_queue/internal/model"
	"github.com/LeonardoBeccarini/telldus_queue/pkg/txqueue"
)

// API espone la coda su HTTP.
type API struct {
	intake      *Intake
	waitTimeout time.Duration
}

func NewAPI(in *Intake, waitTimeout time.Duration) *API {
	if waitTimeout <= 0 {
		waitTimeout = 5 * time.Second
	}
	return &API{intake: in, waitTimeout: waitTimeout}
}

func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /devices/{id}/{action}", a.issue)
	mux.HandleFunc("GET /queue", a.queue)
	mux.HandleFunc("POST /admin/queue/halt", a.halt)
	mux.HandleFunc("POST /admin/queue/clear", a.clear)
	mux.HandleFunc("POST /admin/queue/dequeue", a.dequeue)
}

type issueResponse struct {
	RequestID string `json:"request_id"`
	DeviceID  int    `json:"device_id"`
	Action    string `json:"action"`
	Level     *int   `json:"level,omitempty"`
	Queued    int    `json:"queued"`
	Status    string `json:"status,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

type queueResponse struct {
	Busy    bool            `json:"busy"`
	Queued  int             `json:"queued"`
	Entries []txqueue.Entry `json:"entries"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// POST /devices/{id}/{action}[?level=N][&wait=true]
// Risponde 202 appena il comando e' in coda; con wait=true attende il primo invio.
func (a *API) issue(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParseDeviceID(r.PathValue("id"))
	if err != nil {
		a.reject(w, err)
		return
	}
	req := model.CommandRequest{
		RequestID: strings.TrimSpace(r.Header.Get("X-Request-ID")),
		DeviceID:  int(id),
		Action:    r.PathValue("action"),
	}
	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("level")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			a.reject(w, model.ErrInvalidLevel)
			return
		}
		req.Level = &n
	}

	ticket, err := a.intake.Submit(req, SurfaceHTTP)
	if err != nil {
		a.reject(w, err)
		return
	}

	resp := issueResponse{
		RequestID: ticket.RequestID,
		DeviceID:  int(ticket.Command.DeviceID),
		Action:    string(ticket.Command.Action),
		Queued:    a.intake.Service().Scheduler().Len(),
	}
	if ticket.Command.Action == model.ActionDim {
		lvl := int(ticket.Command.Level)
		resp.Level = &lvl
	}

	code := http.StatusAccepted
	if wait, _ := strconv.ParseBool(q.Get("wait")); wait {
		ctx, cancel := context.WithTimeout(r.Context(), a.waitTimeout)
		defer cancel()
		if done, sendErr := ticket.Wait(ctx); done {
			code = http.StatusOK
			resp.Status = "OK"
			if sendErr != nil {
				code = http.StatusBadGateway
				resp.Status = "FAIL"
				resp.Reason = sendErr.Error()
			}
		}
	}
	writeJSON(w, code, resp)
}

func (a *API) queue(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.snapshot())
}

func (a *API) halt(w http.ResponseWriter, _ *http.Request) {
	a.intake.Service().Scheduler().Halt()
	writeJSON(w, http.StatusOK, a.snapshot())
}

func (a *API) clear(w http.ResponseWriter, _ *http.Request) {
	a.intake.Service().Scheduler().Clear()
	writeJSON(w, http.StatusOK, a.snapshot())
}

func (a *API) dequeue(w http.ResponseWriter, _ *http.Request) {
	a.intake.Service().Scheduler().Dequeue()
	writeJSON(w, http.StatusOK, a.snapshot())
}

func (a *API) snapshot() queueResponse {
	s := a.intake.Service().Scheduler()
	entries := s.Snapshot()
	return queueResponse{Busy: s.Busy(), Queued: len(entries), Entries: entries}
}

func (a *API) reject(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	if isRequestError(err) {
		code = http.StatusBadRequest
	}
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func isRequestError(err error) bool {
	return errors.Is(err, model.ErrUnknownAction) ||
		errors.Is(err, model.ErrInvalidLevel) ||
		errors.Is(err, model.ErrInvalidDevice)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
