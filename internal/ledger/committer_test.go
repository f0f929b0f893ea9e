package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smolbet/oracle/internal/model"
)

func TestCommit_WritesUpdateBet(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody struct {
		ContractID string `json:"contract_id"`
		MethodName string `json:"method_name"`
		Args       struct {
			Index      int64  `json:"index"`
			Resolution string `json:"resolution"`
		} `json:"args"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		w.Write([]byte(`{"tx_hash": "0xdeadbeef"}`))
	}))
	defer server.Close()

	c := NewCommitter(server.URL, "smolbet.near", "secret-key", 5*time.Second)

	before := time.Now().UTC()
	rec, err := c.Commit(context.Background(), 42, model.VerdictTrue)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if gotPath != "/call" {
		t.Errorf("Unexpected path: %s", gotPath)
	}
	if gotAuth != "Bearer secret-key" {
		t.Errorf("Unexpected auth header: %q", gotAuth)
	}
	if gotBody.ContractID != "smolbet.near" || gotBody.MethodName != "update_bet" {
		t.Errorf("Unexpected call body: %+v", gotBody)
	}
	if gotBody.Args.Index != 42 || gotBody.Args.Resolution != "TRUE" {
		t.Errorf("Unexpected args: %+v", gotBody.Args)
	}

	if rec.BetID != 42 || rec.Verdict != model.VerdictTrue || rec.TxHash != "0xdeadbeef" {
		t.Errorf("Unexpected record: %+v", rec)
	}
	if rec.CommittedAt.Before(before) {
		t.Errorf("Unexpected commit time: %v", rec.CommittedAt)
	}
}

func TestCommit_MissingSigningKey(t *testing.T) {
	c := NewCommitter("http://unused.invalid", "smolbet.near", "", 0)

	_, err := c.Commit(context.Background(), 1, model.VerdictFalse)
	if !errors.Is(err, ErrAuthFailure) {
		t.Errorf("Expected ErrAuthFailure, got %v", err)
	}
}

func TestCommit_AuthRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c := NewCommitter(server.URL, "smolbet.near", "bad-key", 0)

	_, err := c.Commit(context.Background(), 1, model.VerdictTrue)
	if !errors.Is(err, ErrAuthFailure) {
		t.Errorf("Expected ErrAuthFailure, got %v", err)
	}
}

func TestCommit_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "contract panicked: index out of range"}`))
	}))
	defer server.Close()

	c := NewCommitter(server.URL, "smolbet.near", "k", 0)

	_, err := c.Commit(context.Background(), 999, model.VerdictTrue)
	if !errors.Is(err, ErrRejected) {
		t.Errorf("Expected ErrRejected, got %v", err)
	}
}

func TestCommit_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	c := NewCommitter(server.URL, "smolbet.near", "k", 0)

	_, err := c.Commit(context.Background(), 1, model.VerdictTrue)
	if !errors.Is(err, ErrTransport) {
		t.Errorf("Expected ErrTransport, got %v", err)
	}
}

func TestGetBet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/view" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("View calls must be unsigned")
		}
		w.Write([]byte(`{"result": {"bet_id": 7, "terms": "Near hits $2 by May", "resolution": "TRUE"}}`))
	}))
	defer server.Close()

	c := NewCommitter(server.URL, "smolbet.near", "", 0)

	bet, err := c.GetBet(context.Background(), 7)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if bet == nil {
		t.Fatal("Expected a bet")
	}
	if bet.BetID != 7 || !bet.Resolved() {
		t.Errorf("Unexpected bet: %+v", bet)
	}
}

func TestGetBet_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result": null}`))
	}))
	defer server.Close()

	c := NewCommitter(server.URL, "smolbet.near", "", 0)

	bet, err := c.GetBet(context.Background(), 123)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if bet != nil {
		t.Errorf("Expected nil bet, got %+v", bet)
	}
}

func TestGetBet_UsesGetBetView(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			MethodName string `json:"method_name"`
			Args       struct {
				Index int64 `json:"index"`
			} `json:"args"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if body.MethodName != "get_bet" {
			t.Errorf("Unexpected method: %s", body.MethodName)
		}
		if body.Args.Index != 7 {
			t.Errorf("Unexpected index: %d", body.Args.Index)
		}
		w.Write([]byte(`{"result": null}`))
	}))
	defer server.Close()

	c := NewCommitter(server.URL, "smolbet.near", "", 0)

	if _, err := c.GetBet(context.Background(), 7); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
}
