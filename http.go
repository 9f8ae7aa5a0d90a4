package ledgerxgo

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const principalHeader = "principal"

func NewHTTPHandler(svc Service, log *zerolog.Logger) http.Handler {
	hndlr := &httpHandler{
		Svc: svc,
		Log: log,
	}
	mux := chi.NewMux()
	mux.NotFound(HTTPNotFound)
	mux.Route("/accounts", func(r chi.Router) {
		r.Post("/", hndlr.CreateAccount)
		r.Get("/", hndlr.Accounts)
		r.Route("/{acctID:[0-9]+}", func(rr chi.Router) {
			rr.Delete("/", hndlr.DeleteAccount)
			rr.Post("/deposit", hndlr.Deposit)
			rr.Post("/withdraw", hndlr.Withdraw)
			rr.Post("/transfer", hndlr.Transfer)
			rr.Get("/balance", hndlr.Balance)
			rr.Get("/statement", hndlr.Statement)
		})
	})
	mux.Route("/operations", func(r chi.Router) {
		r.Get("/", hndlr.Operations)
		r.Get("/{opID:[0-9]+}", hndlr.Operation)
	})
	mux.Get("/audit/benefit/{page:[0-9]+}/{size:[0-9]+}", hndlr.AuditInfo)

	return mux
}

type httpHandler struct {
	Svc Service
	Log *zerolog.Logger
}

type balanceJSONResp struct {
	Balance string `json:"balance"`
}

func (h *httpHandler) decode(w http.ResponseWriter, r *http.Request, method string, dst any) bool {
	buf, err := io.ReadAll(r.Body)
	defer r.Body.Close()
	if err != nil {
		h.Log.Err(err).Str("method", method).Msg("error reading HTTP request")
		WriteHTTPError(w, ErrInternalServer)
		return false
	}
	if err = json.Unmarshal(buf, dst); err != nil {
		h.Log.Err(err).Str("method", method).Msg("error unmarshalling JSON")
		WriteHTTPError(w, ErrBadRequest{Fields: map[string]string{"request body": "malformed JSON"}})
		return false
	}
	return true
}

func (h *httpHandler) pathID(w http.ResponseWriter, r *http.Request, method, param string) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(chi.URLParam(r, param))
	if err != nil {
		h.Log.Err(err).Str("method", method).Msgf("error parsing %s", param)
		WriteHTTPError(w, ErrBadRequest{Fields: map[string]string{param: "invalid format"}})
		return 0, false
	}
	return id, true
}

func (h *httpHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountReq
	if !h.decode(w, r, "createAccount", &req) {
		return
	}
	req.Principal = r.Header.Get(principalHeader)
	acct, err := h.Svc.CreateAccount(r.Context(), req)
	if err != nil {
		WriteHTTPError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, acct)
}

func (h *httpHandler) Accounts(w http.ResponseWriter, r *http.Request) {
	page, size := 0, 20
	fields := map[string]string{}
	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			fields["page"] = "invalid format"
		}
		page = n
	}
	if v := r.URL.Query().Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			fields["size"] = "invalid format"
		}
		size = n
	}
	if len(fields) > 0 {
		WriteHTTPError(w, ErrBadRequest{Fields: fields})
		return
	}
	req := AccountsReq{
		Page:      PageReq{Page: page, Size: size},
		Principal: r.Header.Get(principalHeader),
	}
	accts, err := h.Svc.Accounts(r.Context(), req)
	if err != nil {
		WriteHTTPError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accts)
}

func (h *httpHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	acctID, ok := h.pathID(w, r, "deleteAccount", "acctID")
	if !ok {
		return
	}
	req := DeleteAccountReq{
		AcctID:    acctID,
		Principal: r.Header.Get(principalHeader),
	}
	if err := h.Svc.DeleteAccount(r.Context(), req); err != nil {
		WriteHTTPError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *httpHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req ChargeReq
	if !h.decode(w, r, "deposit", &req) {
		return
	}
	acctID, ok := h.pathID(w, r, "deposit", "acctID")
	if !ok {
		return
	}
	req.AcctID = acctID
	req.Principal = r.Header.Get(principalHeader)
	op, err := h.Svc.Deposit(r.Context(), req)
	if err != nil {
		WriteHTTPError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, op)
}

func (h *httpHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req ChargeReq
	if !h.decode(w, r, "withdraw", &req) {
		return
	}
	acctID, ok := h.pathID(w, r, "withdraw", "acctID")
	if !ok {
		return
	}
	req.AcctID = acctID
	req.Principal = r.Header.Get(principalHeader)
	op, err := h.Svc.Withdraw(r.Context(), req)
	if err != nil {
		WriteHTTPError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, op)
}

func (h *httpHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferReq
	if !h.decode(w, r, "transfer", &req) {
		return
	}
	acctID, ok := h.pathID(w, r, "transfer", "acctID")
	if !ok {
		return
	}
	req.From = acctID
	req.Principal = r.Header.Get(principalHeader)
	op, err := h.Svc.Transfer(r.Context(), req)
	if err != nil {
		WriteHTTPError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, op)
}

func (h *httpHandler) Balance(w http.ResponseWriter, r *http.Request) {
	acctID, ok := h.pathID(w, r, "balance", "acctID")
	if !ok {
		return
	}
	req := BalanceReq{
		AcctID:    acctID,
		Principal: r.Header.Get(principalHeader),
	}
	bal, err := h.Svc.Balance(r.Context(), req)
	if err != nil {
		WriteHTTPError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceJSONResp{Balance: bal.StringFixed(amountPlaces)})
}

func (h *httpHandler) Statement(w http.ResponseWriter, r *http.Request) {
	acctID, ok := h.pathID(w, r, "statement", "acctID")
	if !ok {
		return
	}
	req := StatementReq{
		AcctID:    acctID,
		Principal: r.Header.Get(principalHeader),
	}
	// rendered into a buffer so a failure can still produce a JSON error
	buf := new(bytes.Buffer)
	if err := h.Svc.Statement(r.Context(), buf, req); err != nil {
		WriteHTTPError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	if _, err := buf.WriteTo(w); err != nil {
		h.Log.Err(err).Str("method", "statement").Msg("error writing statement")
	}
}

func (h *httpHandler) Operation(w http.ResponseWriter, r *http.Request) {
	opID, ok := h.pathID(w, r, "operation", "opID")
	if !ok {
		return
	}
	req := OperationReq{
		OpID:      opID,
		Principal: r.Header.Get(principalHeader),
	}
	op, err := h.Svc.Operation(r.Context(), req)
	if err != nil {
		WriteHTTPError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, op)
}

func (h *httpHandler) Operations(w http.ResponseWriter, r *http.Request) {
	ops, err := h.Svc.Operations(r.Context(), OperationsReq{Principal: r.Header.Get(principalHeader)})
	if err != nil {
		WriteHTTPError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ops)
}

func (h *httpHandler) AuditInfo(w http.ResponseWriter, r *http.Request) {
	fields := map[string]string{}
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil {
		fields["page"] = "invalid format"
	}
	size, err := strconv.Atoi(chi.URLParam(r, "size"))
	if err != nil {
		fields["size"] = "invalid format"
	}
	if len(fields) > 0 {
		WriteHTTPError(w, ErrBadRequest{Fields: fields})
		return
	}
	req := AuditPageReq{
		Page:      page,
		Size:      size,
		Principal: r.Header.Get(principalHeader),
	}
	res, err := h.Svc.ReconcileAudits(r.Context(), req)
	if err != nil {
		WriteHTTPError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().
			Err(err).
			Msg("response encoding failed")
	}
}

func WriteHTTPError(w http.ResponseWriter, err error) {
	var ne error
	defer func() {
		if ne != nil {
			log.Error().
				Err(ne).
				Msg("error response encoding failed")
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	errnf := &ErrNotFound{}
	errbr := &ErrBadRequest{}
	erramt := &ErrInvalidAmount{}
	errtr := &ErrTransient{}
	switch {
	case errors.As(err, errnf):
		w.WriteHeader(http.StatusNotFound)
		ne = json.NewEncoder(w).Encode(errnf)
	case errors.As(err, errbr):
		w.WriteHeader(http.StatusBadRequest)
		ne = json.NewEncoder(w).Encode(errbr)
	case errors.As(err, erramt):
		w.WriteHeader(http.StatusBadRequest)
		ne = json.NewEncoder(w).Encode(map[string]map[string]string{
			"fields": {"amount": erramt.Reason},
		})
	case errors.Is(err, ErrForbidden):
		w.WriteHeader(http.StatusForbidden)
		ne = json.NewEncoder(w).Encode(map[string]string{"message": "forbidden"})
	case errors.As(err, errtr), errors.Is(err, ErrTooBusy), errors.Is(err, ErrConcurrentModification):
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusServiceUnavailable)
		ne = json.NewEncoder(w).Encode(map[string]string{"message": "temporarily unavailable, retry"})
	default:
		w.WriteHeader(http.StatusInternalServerError)
		resp := map[string]string{
			"message": "server error",
		}
		ne = json.NewEncoder(w).Encode(resp)
	}
}

func HTTPNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	resp := map[string]string{
		"path": r.URL.Path,
	}
	json.NewEncoder(w).Encode(resp)
}
