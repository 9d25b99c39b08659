package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"echodao-backend/internal/app"
	"echodao-backend/internal/blockchain"
	"echodao-backend/internal/model"
	"echodao-backend/internal/ports/http/middleware/requestid"
	"echodao-backend/internal/treasury"

	"go.uber.org/zap"
)

type errorResponse struct {
	Detail      string       `json:"detail"`
	RequiredFee *model.Ether `json:"required_fee,omitempty"`
}

func (ser server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	response, err := json.Marshal(body)
	if err != nil {
		ser.logger.Error("marshalling the response failed: " + err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(response); err != nil {
		ser.logger.Error("failed to write the response: " + err.Error())
	}
}

func (ser server) badRequest(w http.ResponseWriter, r *http.Request, message string) {
	ser.logger.Warn(message, zap.String("requestID", requestid.FromContext(r.Context())))
	ser.writeJSON(w, http.StatusBadRequest, errorResponse{Detail: message})
}

// respondError is the single place mapping operation failures to status codes.
func (ser server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorStatus(err)
	fields := []zap.Field{zap.Int("status", status), zap.String("requestID", requestid.FromContext(r.Context()))}

	switch {
	case status >= http.StatusInternalServerError:
		ser.logger.Error(err.Error(), fields...)
	default:
		ser.logger.Info(err.Error(), fields...)
	}

	ser.writeJSON(w, status, body)
}

func errorStatus(err error) (int, errorResponse) {
	body := errorResponse{Detail: err.Error()}

	var (
		guardErr    *app.GuardError
		simErr      *blockchain.SimulationError
		revertedErr *blockchain.RevertedError
		fundingErr  *treasury.FundingNotVisibleError
	)

	switch {
	case errors.As(err, &guardErr):
		body.RequiredFee = guardErr.RequiredFee
		switch guardErr.Kind {
		case app.GuardQuotaExceeded:
			return http.StatusTooManyRequests, body
		case app.GuardFeeInsufficient:
			return http.StatusPaymentRequired, body
		default:
			return http.StatusBadRequest, body
		}
	case errors.Is(err, app.ErrProposalNotFound):
		return http.StatusNotFound, body
	case errors.Is(err, app.ErrInvalidInput):
		return http.StatusBadRequest, body
	case errors.As(err, &simErr), errors.As(err, &revertedErr):
		return http.StatusBadRequest, body
	case errors.Is(err, app.ErrUpstreamUnavailable):
		return http.StatusBadGateway, body
	case errors.As(err, &fundingErr):
		return http.StatusServiceUnavailable, body
	case errors.Is(err, blockchain.ErrNetworkTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, body
	default:
		return http.StatusInternalServerError, body
	}
}
