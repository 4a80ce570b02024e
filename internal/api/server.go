package api

import (
	"github.com/mnarita/kioku/internal/services"
	"github.com/mnarita/kioku/internal/worker"
)

type Server struct {
	DeckService  services.DeckService
	StudyService services.StudyService
	RebuildPool  *worker.Pool
}
