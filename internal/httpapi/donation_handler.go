package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"church_app_backend/internal/domain"
	"church_app_backend/internal/logging"
)

const (
	maxBodyBytes       = 1 << 16
	internalErrorBody  = "internal error"
	missingFieldsError = "missing amount or userId"
)

type donationHandler struct {
	service DonationCreator
	logger  *logrus.Entry
}

// createDonationRequest mirrors the mobile client's payload. Amount stays raw
// so only a bare JSON integer is accepted; UserID is a pointer to tell a
// missing field apart from an empty one.
type createDonationRequest struct {
	Amount json.RawMessage `json:"amount"`
	UserID *string         `json:"userId"`
}

func (h *donationHandler) create(w http.ResponseWriter, r *http.Request) {
	log := h.logger.WithFields(logging.Fields{
		"event":      "donation_http",
		"request_id": RequestIDFrom(r.Context()),
	})

	req, err := decodeDonationRequest(r)
	if err != nil {
		log.WithError(err).Warn("invalid donation payload")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.IdempotencyKey = r.Header.Get(headerIdempotencyKey)

	if h.service == nil {
		log.Error("donation service is not configured")
		writeError(w, http.StatusInternalServerError, internalErrorBody)
		return
	}

	result, err := h.service.CreateIntent(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		// the service has already logged the provider detail
		log.WithField("user_id", req.UserID).Error("donation intent failed")
		writeError(w, http.StatusInternalServerError, internalErrorBody)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func decodeDonationRequest(r *http.Request) (domain.DonationRequest, error) {
	var body createDonationRequest

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.DonationRequest{}, errors.New(missingFieldsError)
		}
		return domain.DonationRequest{}, fmt.Errorf("malformed JSON body: %w", err)
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return domain.DonationRequest{}, errors.New("malformed JSON body: unexpected data after object")
	}

	raw := bytes.TrimSpace(body.Amount)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) ||
		body.UserID == nil || strings.TrimSpace(*body.UserID) == "" {
		return domain.DonationRequest{}, errors.New(missingFieldsError)
	}

	amount, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return domain.DonationRequest{}, errors.New("amount must be an integer in the smallest currency unit")
	}

	return domain.DonationRequest{
		Amount: amount,
		UserID: *body.UserID,
	}, nil
}
