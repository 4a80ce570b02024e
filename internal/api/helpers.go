package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/mnarita/kioku/internal/errors"
	"github.com/mnarita/kioku/internal/srs"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.NewBadRequestError("invalid JSON body")
	}
	return nil
}

func deckIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "deckID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewValidationError("deckID", "must be a positive integer")
	}
	return id, nil
}

func handleParam(r *http.Request) (srs.Handle, error) {
	raw := chi.URLParam(r, "handle")
	h, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || h < 0 {
		return srs.NoHandle, errors.NewValidationError("handle", "must be a non-negative integer")
	}
	return srs.Handle(h), nil
}

func parseAnswerKind(s string) (srs.AnswerKind, error) {
	switch s {
	case "retry":
		return srs.AnswerRetry, nil
	case "correct":
		return srs.AnswerCorrect, nil
	case "wrong":
		return srs.AnswerWrong, nil
	case "easy":
		return srs.AnswerEasy, nil
	default:
		return 0, errors.NewValidationError("answer", "must be retry, correct, wrong or easy")
	}
}
