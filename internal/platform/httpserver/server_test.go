package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	roundlifecycle "curator/contexts/curation/round-lifecycle"
	"curator/contexts/curation/round-lifecycle/domain/entities"
)

func newTestServer(t *testing.T) (*Server, roundlifecycle.Module) {
	t.Helper()
	module := roundlifecycle.NewInMemoryModule(nil)
	return New(module, nil, ""), module
}

func seedServerRound(module roundlifecycle.Module) {
	threshold := 0.6
	module.Store.SeedRound(entities.RoundSnapshot{
		Round: entities.Round{
			ID:         1,
			Name:       "January 2026",
			NewsAuthor: entities.UserSummary{ID: 99, Name: "newswriter"},
			Modes: map[entities.GameMode]entities.ModeSettings{
				entities.GameModeOsu: {
					GameMode:        entities.GameModeOsu,
					VotingThreshold: &threshold,
				},
			},
		},
		Nominations: []entities.Nomination{{
			ID:       1,
			RoundID:  1,
			GameMode: entities.GameModeOsu,
			Beatmapset: entities.Beatmapset{
				ID: 101, Artist: "Artist", Title: "Title",
				CreatorID: 10, CreatorName: "host",
			},
			Nominators: []entities.UserSummary{{ID: 50, Name: "captain"}},
			Creators:   []entities.UserSummary{{ID: 10, Name: "host"}},
		}},
	})
}

func doRequest(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	return payload
}

func TestStartRoundEndpointDryRun(t *testing.T) {
	server, module := newTestServer(t)
	seedServerRound(module)

	rec := doRequest(t, server, http.MethodPost, "/rounds/1/start", `{"dry_run":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	payload := decodeResponse(t, rec)
	if payload["success"] != true {
		t.Fatalf("success = %v", payload["success"])
	}
	data, ok := payload["data"].(map[string]any)
	if !ok {
		t.Fatalf("data missing: %v", payload)
	}
	actions, ok := data["actions"].([]any)
	if !ok || len(actions) == 0 {
		t.Fatalf("dry run must return actions: %v", data)
	}
	if len(module.Gateway.Calls()) != 0 {
		t.Fatalf("dry run must not reach the gateway")
	}
}

func TestStartRoundEndpointRealRun(t *testing.T) {
	server, module := newTestServer(t)
	seedServerRound(module)

	rec := doRequest(t, server, http.MethodPost, "/rounds/1/start", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	payload := decodeResponse(t, rec)
	if payload["success"] != true {
		t.Fatalf("success = %v", payload["success"])
	}
	if len(module.Gateway.Calls()) == 0 {
		t.Fatalf("real run must reach the gateway")
	}
	if len(module.Store.Polls()) != 1 {
		t.Fatalf("polls = %d, want 1", len(module.Store.Polls()))
	}
}

func TestStartRoundEndpointUnknownRound(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(t, server, http.MethodPost, "/rounds/42/start", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	payload := decodeResponse(t, rec)
	if payload["success"] != false || payload["message"] == "" {
		t.Fatalf("error envelope wrong: %v", payload)
	}
}

func TestStartRoundEndpointInvalidID(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(t, server, http.MethodPost, "/rounds/banana/start", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	payload := decodeResponse(t, rec)
	if payload["message"] != "validation failed" {
		t.Fatalf("message = %v", payload["message"])
	}
}

func TestStartRoundEndpointMalformedBody(t *testing.T) {
	server, module := newTestServer(t)
	seedServerRound(module)

	rec := doRequest(t, server, http.MethodPost, "/rounds/1/start", `{"dry_run":`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestEndForumEndpointPreconditionFailure(t *testing.T) {
	server, module := newTestServer(t)
	seedServerRound(module)

	// No poll rows exist yet, so ending the round is rejected.
	rec := doRequest(t, server, http.MethodPost, "/rounds/1/end/forum", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422, body = %s", rec.Code, rec.Body.String())
	}
	payload := decodeResponse(t, rec)
	if payload["success"] != false {
		t.Fatalf("success = %v", payload["success"])
	}
}

func TestSendChatEndpointValidation(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(t, server, http.MethodPost, "/chat/messages", `{"targets":[],"message":""}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	payload := decodeResponse(t, rec)
	data, ok := payload["data"].(map[string]any)
	if !ok {
		t.Fatalf("validation data missing: %v", payload)
	}
	if _, ok := data["errors"]; !ok {
		t.Fatalf("field errors missing: %v", data)
	}
}

func TestSendChatEndpointDelivers(t *testing.T) {
	server, module := newTestServer(t)

	rec := doRequest(t, server, http.MethodPost, "/chat/messages",
		`{"targets":[10,11],"message":"hello","channel":{"name":"Project Loved"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(module.Gateway.Announcements()) != 1 {
		t.Fatalf("announcement was not delivered")
	}
}

func TestRemoveNominationEndpoint(t *testing.T) {
	server, module := newTestServer(t)
	seedServerRound(module)

	rec := doRequest(t, server, http.MethodDelete, "/nominations/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	snapshot, err := module.Store.GetRound(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetRound failed: %v", err)
	}
	if len(snapshot.Nominations) != 0 {
		t.Fatalf("nomination not removed: %+v", snapshot.Nominations)
	}

	rec = doRequest(t, server, http.MethodDelete, "/nominations/1", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("second delete status = %d, want 422", rec.Code)
	}
}
