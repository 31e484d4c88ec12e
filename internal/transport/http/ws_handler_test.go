package http

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/livequiz/session-engine/internal/domain"
	"github.com/livequiz/session-engine/internal/game"
	"github.com/livequiz/session-engine/internal/infra/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	registry := memory.NewRegistry()
	sets := memory.NewSetStore(memory.NewStaticSetLoader(map[string]domain.QuestionSet{
		"set-1": {
			ID:    "set-1",
			Title: "Test Set",
			Questions: []domain.Question{
				{
					Prompt:       "What is 2 + 2?",
					Choices:      []string{"3", "4", "5", "22"},
					CorrectIndex: 1,
					TimeLimitSec: 20,
				},
			},
		},
	}), time.Minute)
	service := game.NewService(registry, sets)
	server := httptest.NewServer(NewRouter(NewWSHandler(service), service))
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", query, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUntil(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var msg struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		_ = conn.SetReadDeadline(deadline)
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read waiting for %s: %v", want, err)
		}
		if msg.Type == want {
			return msg.Payload
		}
		if msg.Type == "error" {
			t.Fatalf("unexpected error while waiting for %s: %v", want, msg.Payload)
		}
	}
	t.Fatalf("timed out waiting for %s", want)
	return nil
}

func TestWebSocketGameFlow(t *testing.T) {
	server := newTestServer(t)

	host := dial(t, server, "role=host&setId=set-1")
	created := readUntil(t, host, "sessionCreated")
	code, _ := created["code"].(string)
	if len(code) != game.CodeLength {
		t.Fatalf("expected a %d-char session code, got %q", game.CodeLength, code)
	}

	player := dial(t, server, "code="+code+"&name=Alice")
	joined := readUntil(t, player, "joined")
	if joined["nickname"] != "Alice" {
		t.Fatalf("expected nickname Alice, got %v", joined["nickname"])
	}

	if err := host.WriteJSON(map[string]any{"type": "start"}); err != nil {
		t.Fatalf("send start: %v", err)
	}
	question := readUntil(t, player, "questionShown")
	if question["prompt"] != "What is 2 + 2?" {
		t.Fatalf("unexpected question %v", question)
	}
	if _, exposed := question["correctIndex"]; exposed {
		t.Fatalf("correct index must not be broadcast: %v", question)
	}
	readUntil(t, host, "questionShown")

	if err := player.WriteJSON(map[string]any{"type": "answer", "payload": map[string]any{"choiceIndex": 1}}); err != nil {
		t.Fatalf("send answer: %v", err)
	}
	result := readUntil(t, player, "answerResult")
	if result["correct"] != true {
		t.Fatalf("expected a correct answer, got %v", result)
	}

	// the only player answered, so the question scores immediately
	leaderboard := readUntil(t, host, "leaderboardUpdate")
	entries, _ := leaderboard["entries"].([]any)
	if len(entries) != 1 {
		t.Fatalf("expected one leaderboard entry, got %v", leaderboard)
	}
	summary := readUntil(t, host, "questionSummary")
	if summary["totalAnswers"] != float64(1) || summary["correctCount"] != float64(1) {
		t.Fatalf("unexpected summary %v", summary)
	}

	if err := host.WriteJSON(map[string]any{"type": "next"}); err != nil {
		t.Fatalf("send next: %v", err)
	}
	finished := readUntil(t, player, "sessionFinished")
	if _, ok := finished["leaderboard"]; !ok {
		t.Fatalf("expected final leaderboard in %v", finished)
	}
}

func TestWebSocketRejectsDuplicateNickname(t *testing.T) {
	server := newTestServer(t)

	host := dial(t, server, "role=host&setId=set-1")
	created := readUntil(t, host, "sessionCreated")
	code, _ := created["code"].(string)

	first := dial(t, server, "code="+code+"&name=Sam")
	readUntil(t, first, "joined")

	second := dial(t, server, "code="+code+"&name=sam")
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = second.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := second.ReadJSON(&msg); err != nil {
		t.Fatalf("read rejection: %v", err)
	}
	if msg.Type != "error" || msg.Payload["message"] != domain.ErrNicknameInUse.Error() {
		t.Fatalf("expected nickname-in-use rejection, got %+v", msg)
	}
}

func TestRouterServesSanitizedPreview(t *testing.T) {
	server := newTestServer(t)

	resp, err := server.Client().Get(server.URL + "/quizzes/set-1")
	if err != nil {
		t.Fatalf("get preview: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp, err = server.Client().Get(server.URL + "/quizzes/missing")
	if err != nil {
		t.Fatalf("get missing preview: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
