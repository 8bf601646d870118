package inbound

import (
	"net/http"

	"github.com/shandysiswandi/mailrelay/internal/pkg/router"
	"github.com/shandysiswandi/mailrelay/internal/relay/usecase"
)

type HTTPEndpoint struct {
	uc uc
}

// Submit relays a contact-form submission and answers 201 {"message": "SUCCESS"}.
func (h *HTTPEndpoint) Submit(r *router.Request) (any, error) {
	var req SubmitRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.Submit(r.Context(), usecase.SubmitInput{
		Email:   req.Email,
		Name:    req.Name,
		Message: req.Message,
	}); err != nil {
		return nil, err
	}

	return router.Ack{Code: http.StatusCreated, Text: "SUCCESS"}, nil
}

// GenerateAuthCode redirects to the consent screen.
func (h *HTTPEndpoint) GenerateAuthCode(r *router.Request) (any, error) {
	url, err := h.uc.GenerateAuthURL(r.Context())
	if err != nil {
		return nil, err
	}

	return router.Redirect{URL: url}, nil
}

// OAuthCallback receives the authorization code from the consent screen.
func (h *HTTPEndpoint) OAuthCallback(r *router.Request) (any, error) {
	if err := h.uc.Callback(r.Context(), usecase.CallbackInput{
		Code:  r.GetQuery("code"),
		State: r.GetQuery("state"),
	}); err != nil {
		return nil, err
	}

	return router.Ack{Code: http.StatusOK, Text: "AUTHORIZED"}, nil
}

func (h *HTTPEndpoint) Health(r *router.Request) (any, error) {
	out := h.uc.Health(r.Context())

	return HealthResponse{Credential: out.Credential, Dispatch: out.Dispatch}, nil
}
