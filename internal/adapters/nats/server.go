// Package natsadapter answers token verification requests from sibling
// services over a NATS queue subscription.
package natsadapter

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	nats "github.com/nats-io/nats.go"

	"github.com/example/contacts-api/internal/token"
)

// Denylist reports whether an access token id was revoked before its expiry.
type Denylist interface {
	IsDenied(ctx context.Context, jti string) (bool, error)
}

type VerifyHandler struct {
	codec     *token.Codec
	denied    Denylist
	respondFn func(msg *nats.Msg, resp verifyResponse)
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	OK    bool   `json:"ok"`
	Email string `json:"email,omitempty"`
	Error string `json:"error,omitempty"`
}

// NewVerifyHandler builds a responder. The denylist may be nil, in which case
// revoked-but-unexpired access tokens still verify.
func NewVerifyHandler(codec *token.Codec, denied Denylist) *VerifyHandler {
	return &VerifyHandler{codec: codec, denied: denied, respondFn: respond}
}

func (h *VerifyHandler) Subscribe(conn *nats.Conn, subject, queue string) error {
	if conn == nil {
		return errors.New("nats connection is nil")
	}
	_, err := conn.QueueSubscribe(subject, queue, h.handle)
	return err
}

func (h *VerifyHandler) handle(msg *nats.Msg) {
	var req verifyRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		h.respondFn(msg, verifyResponse{OK: false, Error: "invalid_payload"})
		return
	}
	claims, err := h.codec.Parse(req.Token, token.PurposeAccess)
	if err != nil {
		h.respondFn(msg, verifyResponse{OK: false, Error: verifyErrorCode(err)})
		return
	}
	if h.denied != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if denied, err := h.denied.IsDenied(ctx, claims.JTI); err == nil && denied {
			h.respondFn(msg, verifyResponse{OK: false, Error: "revoked"})
			return
		}
	}
	h.respondFn(msg, verifyResponse{OK: true, Email: claims.Email})
}

func verifyErrorCode(err error) string {
	switch {
	case errors.Is(err, token.ErrExpired):
		return "expired"
	case errors.Is(err, token.ErrWrongPurpose):
		return "wrong_purpose"
	default:
		return "invalid_token"
	}
}

func respond(msg *nats.Msg, resp verifyResponse) {
	data, _ := json.Marshal(resp)
	_ = msg.Respond(data)
}
