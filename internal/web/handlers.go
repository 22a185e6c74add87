package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/vitos/signal_trader/internal/domain"
	"go.uber.org/zap"
)

const maxPayloadBytes = 1 << 20

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("signal_trader is running"))
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("Pinged!"))
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		s.logger.Warn("Failed to read webhook body", zap.Error(err))
		writeResult(w, http.StatusBadRequest, domain.Failure("unreadable payload"))
		return
	}

	root, err := parsePayload(body)
	if err != nil {
		s.logger.Warn("Rejected webhook payload", zap.Error(err))
		writeResult(w, http.StatusBadRequest, domain.Failure(err.Error()))
		return
	}
	if subtle.ConstantTimeCompare([]byte(root.Get("passphrase").String()), []byte(s.opts.Passphrase)) != 1 {
		s.logger.Warn("Webhook passphrase mismatch", zap.String("remote", r.RemoteAddr))
		writeResult(w, http.StatusForbidden, domain.Failure("Access Denied!"))
		return
	}
	sig, err := decodeSignal(root, s.opts.Defaults)
	if err != nil {
		s.logger.Warn("Rejected webhook payload", zap.Error(err))
		writeResult(w, http.StatusBadRequest, domain.Failure(err.Error()))
		return
	}
	sig.ID = uuid.NewString()

	// Signals run to completion even if the caller disconnects.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.opts.SignalTimeout)
	defer cancel()

	res := s.handler.Handle(ctx, sig)
	if s.hub != nil {
		s.hub.Publish(OutcomeEvent{
			SignalID: sig.ID,
			Symbol:   sig.Symbol,
			Side:     string(sig.Side),
			Market:   string(sig.Market),
			Code:     res.Code,
			Message:  res.Message,
			Time:     time.Now().UTC(),
		})
	}
	writeResult(w, http.StatusOK, res)
}

func writeResult(w http.ResponseWriter, status int, res domain.Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(res)
}
