package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rmagedov/p2pdesk-backend/internal/calc"
)

func postCalc(t *testing.T, payload string) (*httptest.ResponseRecorder, calc.State) {
	t.Helper()
	handler := TerminalCalc(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/terminal/calc", bytes.NewReader([]byte(payload)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	var envelope struct {
		Data calc.State `json:"data"`
	}
	if resp.Code == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
	}
	return resp, envelope.Data
}

func TestTerminalCalcDerivesTotal(t *testing.T) {
	resp, state := postCalc(t, `{"state":{"quantity":"10","price":"","total":"","total_was_manual":false},"field":"price","value":"5"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if state.Total != "50.00" {
		t.Fatalf("expected total 50.00 got %q", state.Total)
	}
}

func TestTerminalCalcManualTotalDrivesQuantity(t *testing.T) {
	resp, state := postCalc(t, `{"state":{"quantity":"10","price":"5","total":"50.00","total_was_manual":false},"field":"total","value":"100"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if state.Quantity != "20.00000000" {
		t.Fatalf("expected quantity 20.00000000 got %q", state.Quantity)
	}
	if !state.TotalWasManual {
		t.Fatal("expected manual total flag to be set")
	}
}

func TestTerminalCalcReset(t *testing.T) {
	resp, state := postCalc(t, `{"state":{"quantity":"10","price":"5","total":"50.00","total_was_manual":true},"reset":true}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if state != (calc.State{}) {
		t.Fatalf("expected cleared state, got %+v", state)
	}
}

func TestTerminalCalcRejectsUnknownField(t *testing.T) {
	resp, _ := postCalc(t, `{"state":{},"field":"fee","value":"1"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
