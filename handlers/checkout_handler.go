package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"bnpl-checkout/logger"
	"bnpl-checkout/order"
	"bnpl-checkout/resume"
	"bnpl-checkout/shared"
)

type CheckoutHandler struct {
	flows      Flows
	orders     *OrderHandler
	signer     *resume.Signer
	apiBaseURL string
	appBaseURL string
}

func NewCheckoutHandler(flows Flows, orders *OrderHandler, signer *resume.Signer, apiBaseURL, appBaseURL string) *CheckoutHandler {
	return &CheckoutHandler{
		flows:      flows,
		orders:     orders,
		signer:     signer,
		apiBaseURL: apiBaseURL,
		appBaseURL: strings.TrimRight(appBaseURL, "/"),
	}
}

// sendFlowError maps flow errors to responses. Rejections carry the message
// the shopper should see.
func sendFlowError(w http.ResponseWriter, r *http.Request, err error) {
	var rejected *RejectedError
	switch {
	case errors.Is(err, ErrSessionNotFound):
		sendJSONError(w, r, err.Error(), http.StatusNotFound)
	case errors.As(err, &rejected):
		sendJSONError(w, r, rejected.Message, http.StatusUnprocessableEntity)
	default:
		logger.FromContext(r.Context()).Error("Checkout flow call failed", "error", err)
		sendJSONError(w, r, "Checkout is unavailable right now", http.StatusBadGateway)
	}
}

// HandleStart starts the session's checkout flow for the current cart.
func (h *CheckoutHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	st := h.orders.carts.Get(r.Context(), sessionID)
	if len(st.Items) == 0 {
		sendJSONError(w, r, order.ErrEmptyCart.Error(), http.StatusBadRequest)
		return
	}

	req := shared.CheckoutFlowRequest{
		SessionID:     sessionID,
		CartID:        sessionID,
		TotalAmount:   order.Total(st.Total),
		ReturnBaseURL: h.apiBaseURL,
	}
	started, err := h.flows.Start(r.Context(), req)
	if err != nil {
		sendFlowError(w, r, err)
		return
	}

	status := http.StatusCreated
	if !started {
		status = http.StatusOK
	}
	respondJSON(w, status, map[string]any{
		"workflowId":  shared.CheckoutWorkflowID(sessionID),
		"totalAmount": req.TotalAmount,
	})
}

func (h *CheckoutHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	s, err := h.flows.View(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		sendFlowError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

type actionResponse struct {
	shared.ActionResult
	Order *order.Summary `json:"order,omitempty"`
}

// HandleAction applies one shopper action. A confirmed payment also places
// the BNPL order for the session's cart.
func (h *CheckoutHandler) HandleAction(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	var act shared.Action
	if err := decodeJSON(r, &act); err != nil {
		sendJSONError(w, r, "Invalid request body", http.StatusBadRequest)
		return
	}
	act.Kind = chi.URLParam(r, "action")

	res, err := h.flows.Act(r.Context(), sessionID, act)
	if err != nil {
		sendFlowError(w, r, err)
		return
	}

	out := actionResponse{ActionResult: res}
	if act.Kind == shared.ActionConfirmPayment {
		o, err := h.orders.place(r.Context(), sessionID, order.PaymentBNPL)
		if err != nil {
			logger.FromContext(r.Context()).Error("Payment confirmed but order not placed", "sessionID", sessionID, "error", err)
		} else {
			out.Order = &o
		}
	}
	respondJSON(w, http.StatusOK, out)
}

// HandleAuthenticate relays the auth provider's result into the flow.
func (h *CheckoutHandler) HandleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var u shared.User
	if err := decodeJSON(r, &u); err != nil || u.ID == "" {
		sendJSONError(w, r, "user id is required", http.StatusBadRequest)
		return
	}
	if err := h.flows.Authenticate(r.Context(), chi.URLParam(r, "sessionID"), u); err != nil {
		sendFlowError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type resumeRequest struct {
	QueryParam bool `json:"queryParam"`
}

// HandleResume is called when the app loads without a resume token; the
// flow's pending request decides whether verification continues.
func (h *CheckoutHandler) HandleResume(w http.ResponseWriter, r *http.Request) {
	var req resumeRequest
	if err := decodeJSON(r, &req); err != nil {
		sendJSONError(w, r, "Invalid request body", http.StatusBadRequest)
		return
	}
	err := h.flows.Resume(r.Context(), chi.URLParam(r, "sessionID"), shared.ResumeRequest{QueryParam: req.QueryParam})
	if err != nil {
		sendFlowError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// HandleReturn is the partner's redirect-back target. It checks the resume
// token, signals the flow and replaces the URL with the clean app route.
func (h *CheckoutHandler) HandleReturn(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sessionID := q.Get(shared.SessionParam)
	if sessionID == "" {
		sendJSONError(w, r, "session is required", http.StatusBadRequest)
		return
	}

	req := shared.ResumeRequest{QueryParam: q.Get(shared.ReturnQueryParam) == "true"}
	if token := q.Get(shared.ResumeTokenParam); token != "" {
		claims, err := h.signer.Verify(token)
		if err != nil {
			logger.FromContext(r.Context()).Warn("Rejected resume token", "sessionID", sessionID, "error", err)
			sendJSONError(w, r, "Invalid or expired resume link", http.StatusBadRequest)
			return
		}
		if claims.WorkflowID != shared.CheckoutWorkflowID(sessionID) {
			logger.FromContext(r.Context()).Warn("Resume token for another session", "sessionID", sessionID, "workflowID", claims.WorkflowID)
			sendJSONError(w, r, "Invalid or expired resume link", http.StatusBadRequest)
			return
		}
		req.RequestID = claims.RequestID
	}

	if err := h.flows.Resume(r.Context(), sessionID, req); err != nil {
		sendFlowError(w, r, err)
		return
	}

	target := h.appBaseURL + shared.AppPath + "?" + url.Values{shared.SessionParam: {sessionID}}.Encode()
	http.Redirect(w, r, target, http.StatusFound)
}
