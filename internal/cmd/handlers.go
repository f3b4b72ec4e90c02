package main

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/quizbid/quizbid/internal/auction"
	"github.com/quizbid/quizbid/internal/question"
	"github.com/quizbid/quizbid/internal/team"
)

type teamStore interface {
	CreateTeam(ctx context.Context, req team.CreateTeamRequest) (*team.Team, error)
	GetTeamByCode(ctx context.Context, code string) (*team.Team, error)
	ListTeams(ctx context.Context) ([]team.Team, error)
}

type questionStore interface {
	CreateQuestion(ctx context.Context, req question.CreateQuestionRequest) (*auction.Question, error)
	ListAll(ctx context.Context) ([]auction.Question, error)
	ListOwned(ctx context.Context) ([]auction.Question, error)
}

type ledgerStore interface {
	CreateEntry(ctx context.Context, team string, points int64) error
	ListEntries(ctx context.Context) ([]auction.LedgerEntry, error)
}

// apiHandlers serves the plain-JSON CRUD surface around the auction:
// team registration, the question catalog, and the standings view.
type apiHandlers struct {
	teams     teamStore
	questions questionStore
	ledger    ledgerStore
	config    *Config
}

func (h *apiHandlers) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/teams", h.handleTeams)
	mux.HandleFunc("/api/questions", h.handleQuestions)
	mux.HandleFunc("/api/standings", h.handleStandings)
}

func (h *apiHandlers) handleTeams(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		teams, err := h.teams.ListTeams(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, teams)

	case http.MethodPost:
		var req team.CreateTeamRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Code == "" {
			http.Error(w, "code is required", http.StatusBadRequest)
			return
		}

		// The code keys the ledger and the gateway identity, so a
		// re-registration must not open a second ledger row.
		existing, err := h.teams.GetTeamByCode(r.Context(), req.Code)
		if err != nil {
			writeError(w, err)
			return
		}
		if existing != nil {
			http.Error(w, "team code already registered", http.StatusConflict)
			return
		}

		created, err := h.teams.CreateTeam(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		// Registering a team opens its ledger row with the starting
		// balance, so it can win questions right away.
		if err := h.ledger.CreateEntry(r.Context(), created.Code, h.config.Auction.StartingPoints); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *apiHandlers) handleQuestions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		questions, err := h.questions.ListAll(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, questions)

	case http.MethodPost:
		var req question.CreateQuestionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Title == "" {
			http.Error(w, "title is required", http.StatusBadRequest)
			return
		}

		created, err := h.questions.CreateQuestion(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// standingsResponse is the home view of the original UI: balances plus
// the questions each team has won so far.
type standingsResponse struct {
	Teams []auction.LedgerEntry `json:"teams"`
	Owned []auction.Question    `json:"owned_questions"`
}

func (h *apiHandlers) handleStandings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entries, err := h.ledger.ListEntries(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	owned, err := h.questions.ListOwned(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, standingsResponse{Teams: entries, Owned: owned})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	log.Error().Err(err).Msg("api request failed")
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
