package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rmagedov/p2pdesk-backend/api/middleware"
	"github.com/rmagedov/p2pdesk-backend/internal/resttimer"
	pkgerrors "github.com/rmagedov/p2pdesk-backend/pkg/errors"
	"github.com/rmagedov/p2pdesk-backend/pkg/types"
)

type stubRestTimerService struct {
	status    *resttimer.Status
	endResult *resttimer.EndResult
	err       error
}

func (s stubRestTimerService) Start(context.Context, uuid.UUID) (*resttimer.Status, error) {
	return s.status, s.err
}

func (s stubRestTimerService) Status(context.Context) (*resttimer.Status, error) {
	return s.status, s.err
}

func (s stubRestTimerService) End(context.Context, uuid.UUID) (*resttimer.EndResult, error) {
	return s.endResult, s.err
}

func (s stubRestTimerService) ExpireOverdue(context.Context) (int, error) {
	return 0, s.err
}

func requestWithOperator(method, target string, operatorID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return req.WithContext(middleware.WithOperatorID(req.Context(), operatorID.String()))
}

func TestRestTimerStartReturnsStatus(t *testing.T) {
	started := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	svc := stubRestTimerService{status: &resttimer.Status{
		Phase:            resttimer.PhaseResting,
		StartedAt:        &started,
		RemainingSeconds: 3600,
	}}

	resp := httptest.NewRecorder()
	RestTimerStart(svc, nil).ServeHTTP(resp, requestWithOperator(http.MethodPost, "/api/v1/terminal/rest-timer/start", uuid.New()))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	var envelope struct {
		Data resttimer.Status `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Data.Phase != resttimer.PhaseResting {
		t.Fatalf("expected resting phase, got %s", envelope.Data.Phase)
	}
}

func TestRestTimerStartRequiresOperatorContext(t *testing.T) {
	resp := httptest.NewRecorder()
	RestTimerStart(stubRestTimerService{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/terminal/rest-timer/start", nil))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestRestTimerStartConflictMapsTo409(t *testing.T) {
	svc := stubRestTimerService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "rest already active")}

	resp := httptest.NewRecorder()
	RestTimerStart(svc, nil).ServeHTTP(resp, requestWithOperator(http.MethodPost, "/api/v1/terminal/rest-timer/start", uuid.New()))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var envelope types.ErrorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeStateConflict) {
		t.Fatalf("unexpected code %s", envelope.Error.Code)
	}
}

func TestRestTimerEndReportsDegradedWarning(t *testing.T) {
	svc := stubRestTimerService{endResult: &resttimer.EndResult{
		AdsReactivated: false,
		AdCount:        2,
		Warning:        "rest ended but ads could not be reactivated; retry from the ads screen",
	}}

	resp := httptest.NewRecorder()
	RestTimerEnd(svc, nil).ServeHTTP(resp, requestWithOperator(http.MethodPost, "/api/v1/terminal/rest-timer/end", uuid.New()))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data resttimer.EndResult `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Data.Warning == "" {
		t.Fatal("expected warning to surface to the client")
	}
}
