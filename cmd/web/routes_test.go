package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AdamBeresnev/op-tourney/internal/bracket"
	"github.com/AdamBeresnev/op-tourney/internal/db"
	"github.com/AdamBeresnev/op-tourney/internal/events"
	"github.com/AdamBeresnev/op-tourney/internal/middleware"
	"github.com/AdamBeresnev/op-tourney/internal/service"
	users "github.com/AdamBeresnev/op-tourney/internal/user"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiClient struct {
	t       *testing.T
	handler http.Handler
	caller  uuid.UUID
}

func newTestAPI(t *testing.T) (*apiClient, *service.Services) {
	t.Helper()
	database, err := db.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(database))
	t.Cleanup(func() { database.Close() })

	svc := service.New(database, events.NopPublisher{})
	return &apiClient{t: t, handler: newRouter(svc), caller: uuid.New()}, svc
}

func (c *apiClient) do(method, path string, body any, out any) int {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if c.caller != uuid.Nil {
		req.Header.Set(middleware.UserIDHeader, c.caller.String())
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Code
}

func TestAPI_TournamentRoundTrip(t *testing.T) {
	api, svc := newTestAPI(t)
	ctx := context.Background()

	players := make([]uuid.UUID, 2)
	for i := range players {
		user := &users.User{ID: uuid.New(), Username: fmt.Sprintf("player-%d", i+1)}
		require.NoError(t, svc.Users.CreateUser(ctx, user))
		players[i] = user.ID
	}

	var tournament bracket.Tournament
	code := api.do(http.MethodPost, "/api/tournaments", map[string]any{
		"title":      "Friday Cup",
		"format":     "solo",
		"capacity":   8,
		"prize_pool": "100",
	}, &tournament)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, bracket.TournamentOpen, tournament.Status)
	assert.Equal(t, 1, tournament.BestOf)

	base := "/api/tournaments/" + tournament.ID.String()
	for _, id := range players {
		require.Equal(t, http.StatusCreated, api.do(http.MethodPost, base+"/register", map[string]any{"entity_id": id}, nil))
	}

	require.Equal(t, http.StatusOK, api.do(http.MethodPost, base+"/start", nil, &tournament))
	assert.Equal(t, bracket.TournamentOngoing, tournament.Status)

	var stage struct {
		Matches []bracket.Match `json:"matches"`
		Bracket struct {
			Winners []struct {
				Label string `json:"label"`
			} `json:"winners"`
		} `json:"bracket"`
	}
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, base+"/playoff-stage", nil, &stage))
	require.Len(t, stage.Matches, 1)
	require.Len(t, stage.Bracket.Winners, 1)
	assert.Equal(t, "W1", stage.Bracket.Winners[0].Label)

	final := stage.Matches[0]
	var started bracket.Match
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, base+"/matches/"+final.ID.String()+"/start", nil, &started))
	require.Len(t, started.Maps, 1)

	var concluded bracket.Match
	mapPath := fmt.Sprintf("%s/matches/%s/maps/%s/complete", base, final.ID, started.Maps[0].ID)
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, mapPath, map[string]any{"winner_id": players[0]}, &concluded))
	assert.Equal(t, bracket.MatchConcluded, concluded.Status)

	var prizes []bracket.PrizeRow
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, base+"/prize-table", nil, &prizes))
	require.Len(t, prizes, 2)
	assert.Equal(t, players[0], *prizes[0].UserID)
	assert.True(t, decimal.NewFromInt(70).Equal(prizes[0].Amount), "remainder goes to first place")
	assert.True(t, decimal.NewFromInt(30).Equal(prizes[1].Amount))

	var overview service.Overview
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, base, nil, &overview))
	assert.Equal(t, bracket.TournamentCompleted, overview.Tournament.Status)
	assert.Zero(t, overview.OpenCount)
}

func TestAPI_Errors(t *testing.T) {
	api, _ := newTestAPI(t)

	var tournament bracket.Tournament
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/tournaments", map[string]any{
		"title": "Open Cup", "format": "solo", "capacity": 4,
	}, &tournament))
	base := "/api/tournaments/" + tournament.ID.String()

	tests := []struct {
		name   string
		caller uuid.UUID
		method string
		path   string
		body   any
		want   int
	}{
		{"anonymous create", uuid.Nil, http.MethodPost, "/api/tournaments", map[string]any{"title": "x"}, http.StatusUnauthorized},
		{"anonymous read", uuid.Nil, http.MethodGet, base, nil, http.StatusOK},
		{"malformed id", api.caller, http.MethodGet, "/api/tournaments/nope", nil, http.StatusBadRequest},
		{"unknown tournament", api.caller, http.MethodGet, "/api/tournaments/" + uuid.NewString(), nil, http.StatusNotFound},
		{"invalid input", api.caller, http.MethodPost, "/api/tournaments", map[string]any{"title": "", "format": "solo", "capacity": 4}, http.StatusBadRequest},
		{"duplicate title", api.caller, http.MethodPost, "/api/tournaments", map[string]any{"title": "Open Cup", "format": "solo", "capacity": 4}, http.StatusConflict},
		{"not the owner", uuid.New(), http.MethodPost, base + "/start", nil, http.StatusForbidden},
		{"too few entrants", api.caller, http.MethodPost, base + "/start", nil, http.StatusUnprocessableEntity},
		{"bad stage filter", api.caller, http.MethodGet, base + "/matches?stage=finals", nil, http.StatusBadRequest},
		{"no playoff stage yet", api.caller, http.MethodGet, base + "/playoff-stage", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := *api
			client.t = t
			client.caller = tt.caller
			assert.Equal(t, tt.want, client.do(tt.method, tt.path, tt.body, nil))
		})
	}
}

func TestAPI_MyTournaments(t *testing.T) {
	api, svc := newTestAPI(t)
	ctx := context.Background()

	player := &users.User{ID: uuid.New(), Username: "regular"}
	require.NoError(t, svc.Users.CreateUser(ctx, player))

	var tournament bracket.Tournament
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/tournaments", map[string]any{
		"title": "Weekly", "format": "solo", "capacity": 4,
	}, &tournament))
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/tournaments/"+tournament.ID.String()+"/register",
		map[string]any{"entity_id": player.ID}, nil))

	var mine []bracket.Tournament
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/tournaments/mine", nil, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, tournament.ID, mine[0].ID)

	var joined []bracket.Tournament
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/tournaments/joined", nil, &joined))
	assert.Empty(t, joined, "the organizer is not entered")

	as := *api
	as.caller = player.ID
	require.Equal(t, http.StatusOK, as.do(http.MethodGet, "/api/tournaments/joined", nil, &joined))
	require.Len(t, joined, 1)
	assert.Equal(t, tournament.ID, joined[0].ID)

	as.caller = uuid.Nil
	assert.Equal(t, http.StatusUnauthorized, as.do(http.MethodGet, "/api/tournaments/mine", nil, nil))
}
