package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/health", s.handleHealth)

	r.Route("/api/decks", func(r chi.Router) {
		r.Get("/", s.handleListDecks)
		r.Post("/", s.handleCreateDeck)
		r.Post("/fix-stats", s.handleFixStats)

		r.Route("/{deckID}", func(r chi.Router) {
			r.Get("/", s.handleGetDeck)
			r.Put("/name", s.handleRenameDeck)
			r.Delete("/", s.handleDeleteDeck)

			r.Post("/start-day", s.handleStartTestDay)
			r.Post("/undo", s.handleUndo)
			r.Post("/change-answer", s.handleChangeAnswer)
			r.Get("/stats", s.handleDayStats)
			r.Get("/tested", s.handleTestedToday)
			r.Get("/next-card", s.handleNextCard)
			r.Get("/new-card-eta", s.handleNewCardEta)

			r.Post("/cards", s.handleCreateCard)
			r.Get("/cards/by-item/{userData}", s.handleCardByUserData)
			r.Route("/cards/{handle}", func(r chi.Router) {
				r.Get("/", s.handleGetCard)
				r.Delete("/", s.handleDeleteCard)
				r.Delete("/group", s.handleDeleteCardGroup)
				r.Post("/answer", s.handleAnswer)
				r.Post("/merge", s.handleMergeGroups)
				r.Post("/split", s.handleSplitGroup)
				r.Post("/increase-level", s.handleIncreaseLevel)
				r.Post("/decrease-level", s.handleDecreaseLevel)
				r.Post("/reset", s.handleResetCard)
			})
		})
	})

	return r
}
