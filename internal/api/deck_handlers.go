package api

import (
	"net/http"

	"github.com/mnarita/kioku/internal/logger"
)

type deckRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleListDecks(w http.ResponseWriter, r *http.Request) {
	decks, err := s.DeckService.ListDecks(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"decks": decks})
}

func (s *Server) handleCreateDeck(w http.ResponseWriter, r *http.Request) {
	var req deckRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	deck, err := s.DeckService.CreateDeck(r.Context(), req.Name)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, deck)
}

func (s *Server) handleGetDeck(w http.ResponseWriter, r *http.Request) {
	id, err := deckIDParam(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	deck, err := s.DeckService.GetDeck(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, deck)
}

func (s *Server) handleRenameDeck(w http.ResponseWriter, r *http.Request) {
	id, err := deckIDParam(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req deckRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.DeckService.RenameDeck(r.Context(), id, req.Name); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"renamed": true})
}

func (s *Server) handleDeleteDeck(w http.ResponseWriter, r *http.Request) {
	id, err := deckIDParam(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.DeckService.DeleteDeck(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (s *Server) handleFixStats(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	queued, err := s.DeckService.FixStats(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	log.Info("fix-stats requested: %d decks queued", queued)
	respondJSON(w, http.StatusAccepted, map[string]any{"queued": queued})
}
