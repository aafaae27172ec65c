package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"netifmgr/internal/pkg/logging"
	"netifmgr/internal/types"

	"github.com/sirupsen/logrus"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Device string `json:"device,omitempty"`
	Field  string `json:"field,omitempty"`
	Value  string `json:"value,omitempty"`

	// Set for PartialApplyFailure.
	Attempted     *types.AddressConfig `json:"attempted,omitempty"`
	LastKnownGood *types.AddressConfig `json:"lastKnownGood,omitempty"`
	Completed     []string             `json:"completed,omitempty"`
	FailedStep    string               `json:"failedStep,omitempty"`

	// Set for ApplyVerificationFailed.
	Diff string `json:"diff,omitempty"`
}

func statusFor(kind types.Kind) int {
	switch kind {
	case types.KindInvalidIPv4, types.KindInvalidMask, types.KindInvalidPrefixLength,
		types.KindInvalidGateway, types.KindInvalidMethod, types.KindInvalidPayload:
		return http.StatusBadRequest
	case types.KindNotFound:
		return http.StatusNotFound
	case types.KindConflict, types.KindConcurrentModification:
		return http.StatusConflict
	case types.KindPermissionDenied:
		return http.StatusForbidden
	case types.KindProbeUnavailable:
		return http.StatusServiceUnavailable
	case types.KindTimeout:
		return http.StatusGatewayTimeout
	case types.KindApplyVerificationFailed, types.KindPartialApplyFailure:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func newErrorResponse(err error) ErrorResponse {
	resp := ErrorResponse{Error: err.Error()}
	if kind := types.KindOf(err); kind != "" {
		resp.Kind = string(kind)
	}

	var e *types.Error
	if errors.As(err, &e) {
		resp.Device, resp.Field, resp.Value = e.Device, e.Field, e.Value
	}

	var partial *types.PartialApplyError
	if errors.As(err, &partial) {
		attempted := partial.Attempted
		resp.Device = partial.Device
		resp.Attempted = &attempted
		resp.LastKnownGood = partial.LastKnownGood
		resp.Completed = partial.Completed
		resp.FailedStep = partial.FailedStep
	}

	var verification *types.VerificationError
	if errors.As(err, &verification) {
		resp.Device = verification.Device
		resp.Diff = verification.Diff()
	}
	return resp
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := newErrorResponse(err)
	status := statusFor(types.Kind(resp.Kind))

	entry := logging.WithComponent("api").WithFields(requestFields(r)).WithError(err)
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}
	writeJSON(w, r, status, resp)
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		logging.WithComponent("api").WithFields(requestFields(r)).WithError(err).Error("Failed to encode response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func requestFields(r *http.Request) logrus.Fields {
	return logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}
}
