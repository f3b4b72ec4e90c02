package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/quizbid/quizbid/internal/auction"
	"github.com/quizbid/quizbid/internal/question"
	"github.com/quizbid/quizbid/internal/team"
)

type fakeTeamStore struct {
	teams map[string]team.Team
}

func (s *fakeTeamStore) CreateTeam(_ context.Context, req team.CreateTeamRequest) (*team.Team, error) {
	t := team.Team{Code: req.Code, Name: req.Name, Institution: req.Institution, CreatedAt: time.Now()}
	s.teams[req.Code] = t
	return &t, nil
}

func (s *fakeTeamStore) GetTeamByCode(_ context.Context, code string) (*team.Team, error) {
	t, ok := s.teams[code]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *fakeTeamStore) ListTeams(_ context.Context) ([]team.Team, error) {
	teams := make([]team.Team, 0, len(s.teams))
	for _, t := range s.teams {
		teams = append(teams, t)
	}
	return teams, nil
}

type fakeQuestionStore struct {
	questions []auction.Question
}

func (s *fakeQuestionStore) CreateQuestion(_ context.Context, req question.CreateQuestionRequest) (*auction.Question, error) {
	q := auction.Question{Index: req.Index, Title: req.Title, Description: req.Description, Tag: req.Tag}
	s.questions = append(s.questions, q)
	return &q, nil
}

func (s *fakeQuestionStore) ListAll(_ context.Context) ([]auction.Question, error) {
	return s.questions, nil
}

func (s *fakeQuestionStore) ListOwned(_ context.Context) ([]auction.Question, error) {
	var owned []auction.Question
	for _, q := range s.questions {
		if q.Owner != nil {
			owned = append(owned, q)
		}
	}
	return owned, nil
}

type fakeLedgerStore struct {
	entries map[string]int64
}

func (l *fakeLedgerStore) CreateEntry(_ context.Context, team string, points int64) error {
	l.entries[team] = points
	return nil
}

func (l *fakeLedgerStore) ListEntries(_ context.Context) ([]auction.LedgerEntry, error) {
	entries := make([]auction.LedgerEntry, 0, len(l.entries))
	for team, points := range l.entries {
		entries = append(entries, auction.LedgerEntry{Team: team, Points: points})
	}
	return entries, nil
}

func newTestAPI() (*apiHandlers, *fakeTeamStore, *fakeLedgerStore) {
	teams := &fakeTeamStore{teams: make(map[string]team.Team)}
	ledger := &fakeLedgerStore{entries: make(map[string]int64)}
	cfg := &Config{}
	cfg.Auction.StartingPoints = 1000
	api := &apiHandlers{
		teams:     teams,
		questions: &fakeQuestionStore{},
		ledger:    ledger,
		config:    cfg,
	}
	return api, teams, ledger
}

func postTeam(api *apiHandlers, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/teams", strings.NewReader(body))
	api.handleTeams(rec, req)
	return rec
}

func TestCreateTeamOpensLedgerRow(t *testing.T) {
	api, teams, ledger := newTestAPI()

	rec := postTeam(api, `{"code":"teamA","name":"Alpha"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	check.Equal(t, "Alpha", teams.teams["teamA"].Name)
	check.Equal(t, int64(1000), ledger.entries["teamA"])
}

func TestCreateTeamDuplicateCodeRejected(t *testing.T) {
	api, teams, ledger := newTestAPI()

	assert.Equal(t, http.StatusCreated, postTeam(api, `{"code":"teamA","name":"Alpha"}`).Code)

	rec := postTeam(api, `{"code":"teamA","name":"Impostors"}`)

	check.Equal(t, http.StatusConflict, rec.Code)
	// The original registration and its single ledger row survive.
	check.Equal(t, "Alpha", teams.teams["teamA"].Name)
	check.Equal(t, 1, len(ledger.entries))
}

func TestCreateTeamRequiresCode(t *testing.T) {
	api, _, ledger := newTestAPI()

	rec := postTeam(api, `{"name":"Nameless"}`)

	check.Equal(t, http.StatusBadRequest, rec.Code)
	check.Equal(t, 0, len(ledger.entries))
}
