package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/mnarita/kioku/internal/errors"
	"github.com/mnarita/kioku/internal/srs"
)

type createCardRequest struct {
	Group    *int32 `json:"group,omitempty"`
	UserData int64  `json:"user_data"`
}

type answerRequest struct {
	Answer      string `json:"answer"`
	SpentTenths int    `json:"spent_tenths"`
	Simulate    bool   `json:"simulate"`
}

type changeAnswerRequest struct {
	Answer string `json:"answer"`
}

type mergeRequest struct {
	Other int32 `json:"other"`
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	deckID, err := deckIDParam(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req createCardRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	group := srs.NoHandle
	if req.Group != nil {
		group = srs.Handle(*req.Group)
	}
	h, err := s.StudyService.CreateCard(r.Context(), deckID, group, req.UserData)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"handle": h})
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	deckID, h, err := studyParams(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	info, err := s.StudyService.CardInfo(r.Context(), deckID, h)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleCardByUserData(w http.ResponseWriter, r *http.Request) {
	deckID, err := deckIDParam(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	userData, err := strconv.ParseInt(chi.URLParam(r, "userData"), 10, 64)
	if err != nil {
		handleError(w, r, errors.NewValidationError("userData", "must be an integer"))
		return
	}
	info, err := s.StudyService.CardByUserData(r.Context(), deckID, userData)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	deckID, h, err := studyParams(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.StudyService.DeleteCard(r.Context(), deckID, h); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (s *Server) handleDeleteCardGroup(w http.ResponseWriter, r *http.Request) {
	deckID, h, err := studyParams(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.StudyService.DeleteCardGroup(r.Context(), deckID, h); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	deckID, h, err := studyParams(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req answerRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	kind, err := parseAnswerKind(req.Answer)
	if err != nil {
		handleError(w, r, err)
		return
	}
	res, err := s.StudyService.Answer(r.Context(), deckID, h, kind, req.SpentTenths, req.Simulate)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleMergeGroups(w http.ResponseWriter, r *http.Request) {
	deckID, h, err := studyParams(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req mergeRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.StudyService.MergeGroups(r.Context(), deckID, h, srs.Handle(req.Other)); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"merged": true})
}

func (s *Server) handleSplitGroup(w http.ResponseWriter, r *http.Request) {
	deckID, h, err := studyParams(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.StudyService.SplitGroup(r.Context(), deckID, h); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"split": true})
}

func (s *Server) handleIncreaseLevel(w http.ResponseWriter, r *http.Request) {
	deckID, h, err := studyParams(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.StudyService.IncreaseSpacingLevel(r.Context(), deckID, h); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"adjusted": true})
}

func (s *Server) handleDecreaseLevel(w http.ResponseWriter, r *http.Request) {
	deckID, h, err := studyParams(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.StudyService.DecreaseSpacingLevel(r.Context(), deckID, h); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"adjusted": true})
}

func (s *Server) handleResetCard(w http.ResponseWriter, r *http.Request) {
	deckID, h, err := studyParams(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.StudyService.ResetCardStudyData(r.Context(), deckID, h); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"reset": true})
}

func (s *Server) handleStartTestDay(w http.ResponseWriter, r *http.Request) {
	deckID, err := deckIDParam(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	started, err := s.StudyService.StartTestDay(r.Context(), deckID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"started": started})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	deckID, err := deckIDParam(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.StudyService.Undo(r.Context(), deckID); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"undone": true})
}

func (s *Server) handleChangeAnswer(w http.ResponseWriter, r *http.Request) {
	deckID, err := deckIDParam(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req changeAnswerRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	kind, err := parseAnswerKind(req.Answer)
	if err != nil {
		handleError(w, r, err)
		return
	}
	res, err := s.StudyService.ChangeLastAnswer(r.Context(), deckID, kind)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleDayStats(w http.ResponseWriter, r *http.Request) {
	deckID, err := deckIDParam(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	rows, err := s.StudyService.DayStats(r.Context(), deckID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"stats": rows})
}

func (s *Server) handleTestedToday(w http.ResponseWriter, r *http.Request) {
	deckID, err := deckIDParam(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	handles, err := s.StudyService.TestedToday(r.Context(), deckID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"tested": handles})
}

func (s *Server) handleNextCard(w http.ResponseWriter, r *http.Request) {
	deckID, err := deckIDParam(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	info, err := s.StudyService.NextCard(r.Context(), deckID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if info == nil {
		respondJSON(w, http.StatusOK, map[string]any{"card": nil})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"card": info})
}

func (s *Server) handleNewCardEta(w http.ResponseWriter, r *http.Request) {
	deckID, err := deckIDParam(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	eta, err := s.StudyService.NewCardEta(r.Context(), deckID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"eta_tenths": eta})
}

func studyParams(r *http.Request) (int64, srs.Handle, error) {
	deckID, err := deckIDParam(r)
	if err != nil {
		return 0, srs.NoHandle, err
	}
	h, err := handleParam(r)
	if err != nil {
		return 0, srs.NoHandle, err
	}
	return deckID, h, nil
}
