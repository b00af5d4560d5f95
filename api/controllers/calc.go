package controllers

import (
	"net/http"

	"github.com/rmagedov/p2pdesk-backend/api/responses"
	"github.com/rmagedov/p2pdesk-backend/api/validators"
	"github.com/rmagedov/p2pdesk-backend/internal/calc"
	pkgerrors "github.com/rmagedov/p2pdesk-backend/pkg/errors"
	"github.com/rmagedov/p2pdesk-backend/pkg/logger"
)

// CalcRequest carries the current form state plus the edit to apply. A reset
// request clears the form instead.
type CalcRequest struct {
	State calc.State `json:"state"`
	Field string     `json:"field" validate:"required_without=Reset,omitempty,oneof=quantity price total"`
	Value string     `json:"value"`
	Reset bool       `json:"reset"`
}

// TerminalCalc applies one edit to the tri-field order form and returns the
// recomputed state. The server owns the cascade rules so every client renders
// identical numbers.
func TerminalCalc(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body CalcRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if body.Reset {
			responses.WriteSuccess(w, calc.Reset())
			return
		}

		field, err := calc.ParseField(body.Field)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid field"))
			return
		}
		responses.WriteSuccess(w, calc.Apply(body.State, field, body.Value))
	}
}
