package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/AdamBeresnev/op-tourney/internal/bracket"
	"github.com/AdamBeresnev/op-tourney/internal/httputil"
	"github.com/AdamBeresnev/op-tourney/internal/middleware"
	"github.com/AdamBeresnev/op-tourney/internal/service"
	"github.com/AdamBeresnev/op-tourney/views"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type entityRequest struct {
	EntityID uuid.UUID `json:"entity_id"`
}

type winnerRequest struct {
	WinnerID uuid.UUID `json:"winner_id"`
}

type playoffStage struct {
	Nodes   []*bracket.Node   `json:"nodes"`
	Matches []*bracket.Match  `json:"matches"`
	Bracket views.BracketData `json:"bracket"`
}

func newRouter(svc *service.Services) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.LoadCaller)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/tournaments", func(r chi.Router) {
		r.With(middleware.RequireAuth).Post("/", func(w http.ResponseWriter, r *http.Request) {
			var input service.CreateTournamentInput
			if !decode(w, r, &input) {
				return
			}
			tournament, err := svc.Tournaments.CreateTournament(r.Context(), middleware.GetCallerFromContext(r.Context()), input)
			if err != nil {
				httputil.Error(w, "failed to create tournament", err)
				return
			}
			httputil.WriteJSON(w, http.StatusCreated, tournament)
		})

		r.With(middleware.RequireAuth).Get("/mine", func(w http.ResponseWriter, r *http.Request) {
			caller := middleware.GetCallerFromContext(r.Context())
			tournaments, err := svc.Tournaments.GetTournamentsForOwner(r.Context(), caller.ID)
			if err != nil {
				httputil.Error(w, "failed to list created tournaments", err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, nonNil(tournaments))
		})

		r.With(middleware.RequireAuth).Get("/joined", func(w http.ResponseWriter, r *http.Request) {
			caller := middleware.GetCallerFromContext(r.Context())
			tournaments, err := svc.Tournaments.GetTournamentsForParticipant(r.Context(), caller.ID)
			if err != nil {
				httputil.Error(w, "failed to list joined tournaments", err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, nonNil(tournaments))
		})

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				id, ok := urlID(w, r, "id")
				if !ok {
					return
				}
				overview, err := svc.Tournaments.GetOverview(r.Context(), id)
				if err != nil {
					httputil.Error(w, "failed to get tournament", err)
					return
				}
				httputil.WriteJSON(w, http.StatusOK, overview)
			})

			r.Get("/entries", func(w http.ResponseWriter, r *http.Request) {
				id, ok := urlID(w, r, "id")
				if !ok {
					return
				}
				entries, err := svc.Tournaments.GetEntries(r.Context(), id)
				if err != nil {
					httputil.Error(w, "failed to get entries", err)
					return
				}
				httputil.WriteJSON(w, http.StatusOK, entries)
			})

			r.Get("/group-stage", func(w http.ResponseWriter, r *http.Request) {
				id, ok := urlID(w, r, "id")
				if !ok {
					return
				}
				stage, err := svc.Tournaments.GetGroupStage(r.Context(), id)
				if err != nil {
					httputil.Error(w, "failed to get group stage", err)
					return
				}
				httputil.WriteJSON(w, http.StatusOK, stage)
			})

			r.Get("/playoff-stage", func(w http.ResponseWriter, r *http.Request) {
				id, ok := urlID(w, r, "id")
				if !ok {
					return
				}
				g, err := svc.Tournaments.GetPlayoffStage(r.Context(), id)
				if err != nil {
					httputil.Error(w, "failed to get playoff stage", err)
					return
				}
				entries, err := svc.Tournaments.GetEntries(r.Context(), id)
				if err != nil {
					httputil.Error(w, "failed to get entries", err)
					return
				}
				httputil.WriteJSON(w, http.StatusOK, playoffStage{
					Nodes:   g.Nodes,
					Matches: g.Matches,
					Bracket: views.PrepareBracketData(g, entries),
				})
			})

			r.Get("/prize-table", func(w http.ResponseWriter, r *http.Request) {
				id, ok := urlID(w, r, "id")
				if !ok {
					return
				}
				rows, err := svc.Tournaments.GetPrizeTable(r.Context(), id)
				if err != nil {
					httputil.Error(w, "failed to get prize table", err)
					return
				}
				httputil.WriteJSON(w, http.StatusOK, rows)
			})

			r.Get("/matches", func(w http.ResponseWriter, r *http.Request) {
				id, ok := urlID(w, r, "id")
				if !ok {
					return
				}
				stage := bracket.Stage(r.URL.Query().Get("stage"))
				if stage != "" && stage != bracket.GroupStageMatch && stage != bracket.PlayoffMatch {
					httputil.BadRequest(w, "stage must be group or playoff", nil)
					return
				}
				matches, err := svc.Matches.GetMatches(r.Context(), id, stage)
				if err != nil {
					httputil.Error(w, "failed to get matches", err)
					return
				}
				httputil.WriteJSON(w, http.StatusOK, matches)
			})

			r.Get("/matches/{matchID}", func(w http.ResponseWriter, r *http.Request) {
				id, ok := urlID(w, r, "id")
				if !ok {
					return
				}
				matchID, ok := urlID(w, r, "matchID")
				if !ok {
					return
				}
				match, err := svc.Matches.GetMatch(r.Context(), id, matchID)
				if err != nil {
					httputil.Error(w, "failed to get match", err)
					return
				}
				httputil.WriteJSON(w, http.StatusOK, match)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				mountTournamentActions(r, svc)
				mountMatchActions(r, svc)
			})
		})
	})

	return r
}

func mountTournamentActions(r chi.Router, svc *service.Services) {
	r.Post("/register", func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r, "id")
		if !ok {
			return
		}
		var req entityRequest
		if !decode(w, r, &req) {
			return
		}
		entry, err := svc.Entries.Register(r.Context(), middleware.GetCallerFromContext(r.Context()), id, req.EntityID)
		if err != nil {
			httputil.Error(w, "failed to register", err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, entry)
	})

	r.Post("/unregister", func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r, "id")
		if !ok {
			return
		}
		var req entityRequest
		if !decode(w, r, &req) {
			return
		}
		if err := svc.Entries.Unregister(r.Context(), middleware.GetCallerFromContext(r.Context()), id, req.EntityID); err != nil {
			httputil.Error(w, "failed to unregister", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/start", func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r, "id")
		if !ok {
			return
		}
		var opts service.StartOptions
		if !decodeOptional(w, r, &opts) {
			return
		}
		tournament, err := svc.Tournaments.StartTournament(r.Context(), middleware.GetCallerFromContext(r.Context()), id, opts)
		if err != nil {
			httputil.Error(w, "failed to start tournament", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, tournament)
	})

	r.Post("/cancel", func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r, "id")
		if !ok {
			return
		}
		if err := svc.Tournaments.CancelTournament(r.Context(), middleware.GetCallerFromContext(r.Context()), id); err != nil {
			httputil.Error(w, "failed to cancel tournament", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/reset", func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r, "id")
		if !ok {
			return
		}
		tournament, err := svc.Tournaments.ResetTournament(r.Context(), middleware.GetCallerFromContext(r.Context()), id)
		if err != nil {
			httputil.Error(w, "failed to reset tournament", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, tournament)
	})

	r.Post("/complete", func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r, "id")
		if !ok {
			return
		}
		rows, err := svc.Tournaments.CompleteTournament(r.Context(), middleware.GetCallerFromContext(r.Context()), id)
		if err != nil {
			httputil.Error(w, "failed to complete tournament", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, rows)
	})

	r.Delete("/", func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r, "id")
		if !ok {
			return
		}
		if err := svc.Tournaments.DeleteTournament(r.Context(), middleware.GetCallerFromContext(r.Context()), id); err != nil {
			httputil.Error(w, "failed to delete tournament", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func mountMatchActions(r chi.Router, svc *service.Services) {
	r.Post("/matches/{matchID}/start", func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r, "id")
		if !ok {
			return
		}
		matchID, ok := urlID(w, r, "matchID")
		if !ok {
			return
		}
		match, err := svc.Matches.StartMatch(r.Context(), middleware.GetCallerFromContext(r.Context()), id, matchID)
		if err != nil {
			httputil.Error(w, "failed to start match", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, match)
	})

	r.Post("/matches/{matchID}/maps/{mapID}/complete", func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r, "id")
		if !ok {
			return
		}
		matchID, ok := urlID(w, r, "matchID")
		if !ok {
			return
		}
		mapID, ok := urlID(w, r, "mapID")
		if !ok {
			return
		}
		var req winnerRequest
		if !decode(w, r, &req) {
			return
		}
		match, err := svc.Matches.CompleteMap(r.Context(), middleware.GetCallerFromContext(r.Context()), id, matchID, mapID, req.WinnerID)
		if err != nil {
			httputil.Error(w, "failed to complete map", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, match)
	})

	r.Post("/matches/{matchID}/complete", func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r, "id")
		if !ok {
			return
		}
		matchID, ok := urlID(w, r, "matchID")
		if !ok {
			return
		}
		var req winnerRequest
		if !decode(w, r, &req) {
			return
		}
		match, err := svc.Matches.CompleteMatch(r.Context(), middleware.GetCallerFromContext(r.Context()), id, matchID, req.WinnerID)
		if err != nil {
			httputil.Error(w, "failed to complete match", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, match)
	})
}

func urlID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httputil.BadRequest(w, "invalid "+param, err)
		return uuid.Nil, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httputil.BadRequest(w, "invalid request body", err)
		return false
	}
	return true
}

// decodeOptional accepts an empty body and leaves dst untouched.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		httputil.BadRequest(w, "invalid request body", err)
		return false
	}
	return true
}

// nonNil keeps empty listings encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
