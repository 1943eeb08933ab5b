package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gameshow-service/internal/app"
	"gameshow-service/internal/domain"
	"gameshow-service/internal/infra/memory"
)

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	content := memory.NewContentRepository(memory.NewStaticContentLoader(sampleQuestions()...), time.Minute)
	engine := app.NewEngine(memory.NewStore(), content, app.WithSeed(1))
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	server := httptest.NewServer(NewRouter(engine, opts))
	t.Cleanup(server.Close)
	return server
}

func sampleQuestions() []domain.BaseQuestion {
	return []domain.BaseQuestion{
		{
			ID:    "q1",
			Type:  domain.TypeMCQ,
			Title: "What is 2 + 2?",
			MCQ:   &domain.MCQContent{Choices: []string{"3", "4", "5"}, AnswerIdx: 1},
		},
	}
}

func sampleSetup() app.Setup {
	return app.Setup{
		ID:          "s1",
		Title:       "Quiz night",
		ScorePolicy: domain.PolicyRanking,
		Organizers:  []app.PersonSetup{{ID: "host", Name: "Host"}},
		Teams:       []app.TeamSetup{{ID: "red", Name: "Red"}, {ID: "blue", Name: "Blue"}},
		Rounds: []app.RoundSetup{{
			ID:          "r1",
			Title:       "Warmup",
			Type:        domain.RoundType(domain.TypeMCQ),
			QuestionIDs: []string{"q1"},
		}},
	}
}

func post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	resp, err := http.Post(url, "application/json", &buf)
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

// createSession creates s1 with a red player p1 and returns the server.
func createSession(t *testing.T) *httptest.Server {
	t.Helper()
	server := newTestServer(t, Options{})
	resp := post(t, server.URL+"/api/sessions", sampleSetup())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session: status %d", resp.StatusCode)
	}
	join := post(t, server.URL+"/api/sessions/s1/join", app.JoinRequest{ParticipantID: "p1", Name: "Alice", TeamID: "red"})
	if join.StatusCode != http.StatusOK {
		t.Fatalf("join: status %d", join.StatusCode)
	}
	return server
}
