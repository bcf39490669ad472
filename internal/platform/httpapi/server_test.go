package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	_ "github.com/vovakirdan/robot-arena/internal/agents"
	"github.com/vovakirdan/robot-arena/internal/arena"
	"github.com/vovakirdan/robot-arena/internal/config"
	"github.com/vovakirdan/robot-arena/internal/logging"
)

func testServer(t *testing.T) (*httptest.Server, *arena.Coordinator) {
	t.Helper()
	settings := config.DefaultSettings()
	settings.MaxTurns = 10
	settings.Seed = 3
	if err := settings.Validate(); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	coord := arena.NewCoordinator(arena.DefaultCoordinatorConfig(), settings, logging.Discard())
	srv := httptest.NewServer(New(coord, nil, logging.Discard()).Handler())
	t.Cleanup(func() {
		srv.Close()
		coord.Stop()
	})
	return srv, coord
}

func startMatch(t *testing.T, srv *httptest.Server, body string) arena.MatchInfo {
	t.Helper()
	resp, err := http.Post(srv.URL+"/matches", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /matches failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /matches status %d, expected %d", resp.StatusCode, http.StatusCreated)
	}
	var info arena.MatchInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return info
}

func TestStartMatchValidation(t *testing.T) {
	srv, _ := testServer(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"bad json", "{", http.StatusBadRequest},
		{"missing agent", `{"agent1":"guard"}`, http.StatusBadRequest},
		{"unknown agent", `{"agent1":"guard","agent2":"nobody"}`, http.StatusBadRequest},
		{"ok", `{"agent1":"guard","agent2":"hunter"}`, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/matches", "application/json", bytes.NewBufferString(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("status %d, expected %d", resp.StatusCode, tt.status)
			}
		})
	}
}

func TestReadTurnBlocksUntilPlayed(t *testing.T) {
	srv, coord := testServer(t)
	info := startMatch(t, srv, `{"agent1":"hunter","agent2":"random"}`)

	resp, err := http.Get(srv.URL + "/matches/" + string(info.ID) + "/turns/9")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d, expected 200", resp.StatusCode)
	}
	var tr TurnResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		t.Fatal(err)
	}
	if tr.Turn != 9 {
		t.Errorf("turn %d, expected 9", tr.Turn)
	}

	m, _ := coord.GetMatch(info.ID)
	expected, err := m.Game().ActionsOnTurn(context.Background(), 9)
	if err != nil {
		t.Fatal(err)
	}
	if len(tr.Records) != len(expected) {
		t.Errorf("got %d records, expected %d", len(tr.Records), len(expected))
	}
}

func TestReadTurnClampsAndNotFound(t *testing.T) {
	srv, _ := testServer(t)
	info := startMatch(t, srv, `{"agent1":"guard","agent2":"guard"}`)

	resp, err := http.Get(srv.URL + "/matches/" + string(info.ID) + "/turns/500")
	if err != nil {
		t.Fatal(err)
	}
	var tr TurnResponse
	_ = json.NewDecoder(resp.Body).Decode(&tr)
	resp.Body.Close()
	if tr.Turn != 10 {
		t.Errorf("turn %d, expected the clamped 10", tr.Turn)
	}
	for _, rec := range tr.Records {
		if rec.Name != "" {
			t.Errorf("final turn record has action %q", rec.Name)
		}
	}

	resp, err = http.Get(srv.URL + "/matches/nope/turns/1")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status %d, expected 404", resp.StatusCode)
	}
}

func TestListAndGetMatch(t *testing.T) {
	srv, _ := testServer(t)
	info := startMatch(t, srv, `{"agent1":"guard","agent2":"guard","max_turns":4}`)

	resp, err := http.Get(srv.URL + "/matches")
	if err != nil {
		t.Fatal(err)
	}
	var list []arena.MatchInfo
	_ = json.NewDecoder(resp.Body).Decode(&list)
	resp.Body.Close()
	if len(list) != 1 || list[0].ID != info.ID {
		t.Errorf("unexpected list %+v", list)
	}

	resp, err = http.Get(srv.URL + "/matches/" + string(info.ID))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status %d, expected 200", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/results")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("results without a store: status %d, expected 404", resp.StatusCode)
	}
}

func TestStreamDeliversEnd(t *testing.T) {
	srv, _ := testServer(t)
	info := startMatch(t, srv, `{"agent1":"kamikaze","agent2":"hunter","max_turns":200}`)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/matches/" + string(info.ID) + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() failed: %v", err)
	}
	defer conn.Close()

	var types []string
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for {
		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		types = append(types, msg.Type)
		if msg.Type == "match_ended" {
			var end arena.MatchEndedEvent
			if err := json.Unmarshal(msg.Data, &end); err != nil {
				t.Fatal(err)
			}
			if end.Result.MatchID != info.ID || end.Result.Turns != 200 {
				t.Errorf("unexpected result %+v", end.Result)
			}
			break
		}
	}
	if len(types) < 2 || types[0] != "match_started" || types[len(types)-1] != "match_ended" {
		t.Errorf("unexpected event sequence %v", types)
	}
}
