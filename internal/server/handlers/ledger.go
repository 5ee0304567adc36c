package handlers

import (
	"net/http"
	"strconv"

	"github.com/agentstation/concilia/internal/server/events"
	"github.com/agentstation/concilia/internal/server/response"
	"github.com/agentstation/concilia/pkg/errors"
	"github.com/agentstation/concilia/pkg/ledger"
	"github.com/agentstation/concilia/pkg/logging"
)

// CellView is one resolved cell.
type CellView struct {
	Cell    ledger.Cell     `json:"cell"`
	Status  ledger.Status   `json:"status"`
	Payment *ledger.Payment `json:"payment,omitempty"`
}

// HandleListClients handles GET /api/v1/clients.
// @Summary List clients
// @Description Known clients, seed clients first
// @Tags clients
// @Produce json
// @Success 200 {object} response.Response{data=object}
// @Router /api/v1/clients [get].
func (h *Handlers) HandleListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.client.Clients(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, map[string]any{
		"clients": clients,
		"count":   len(clients),
	})
}

// HandleGrid handles GET /api/v1/grid.
// @Summary Year grid
// @Description Status of every month of a year for every client
// @Tags grid
// @Produce json
// @Param year query integer false "Year (defaults to the current year)"
// @Success 200 {object} response.Response{data=ledger.Grid}
// @Failure 400 {object} response.Response{error=response.Error}
// @Router /api/v1/grid [get].
func (h *Handlers) HandleGrid(w http.ResponseWriter, r *http.Request) {
	year := h.now().Year()
	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			response.BadRequest(w, "Invalid year", "year must be an integer")
			return
		}
		year = y
	}

	grid, err := h.client.Grid(r.Context(), year)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, map[string]any{
		"grid":   grid,
		"counts": grid.Counts(),
	})
}

// HandleGetCell handles GET /api/v1/cells/{client}/{year}/{month}.
// @Summary Get cell
// @Description Status and payment of one cell
// @Tags cells
// @Produce json
// @Param client path string true "Client ID"
// @Param year path integer true "Year"
// @Param month path integer true "Month (1-12)"
// @Success 200 {object} response.Response{data=CellView}
// @Failure 404 {object} response.Response{error=response.Error}
// @Router /api/v1/cells/{client}/{year}/{month} [get].
func (h *Handlers) HandleGetCell(w http.ResponseWriter, r *http.Request) {
	cell, err := parseCell(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	status, err := h.client.Status(r.Context(), cell)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	view := CellView{Cell: cell, Status: status}
	if status.Paid() {
		state, err := h.client.State(r.Context())
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if i := state.FindPayment(cell); i >= 0 {
			view.Payment = &state.Payments[i]
		}
	}
	response.OK(w, view)
}

// HandleToggle handles POST /api/v1/cells/{client}/{year}/{month}/toggle.
// @Summary Toggle cell
// @Description Manual click on a cell: create, remove or claim a payment
// @Tags cells
// @Produce json
// @Param client path string true "Client ID"
// @Param year path integer true "Year"
// @Param month path integer true "Month (1-12)"
// @Success 200 {object} response.Response{data=reconcile.Toggle}
// @Failure 404 {object} response.Response{error=response.Error}
// @Failure 409 {object} response.Response{error=response.Error}
// @Security ApiKeyAuth
// @Router /api/v1/cells/{client}/{year}/{month}/toggle [post].
func (h *Handlers) HandleToggle(w http.ResponseWriter, r *http.Request) {
	cell, err := parseCell(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	t, err := h.client.Toggle(r.Context(), cell)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.broker.Publish(events.CellToggled, t)
	response.OK(w, t)
}

func parseCell(r *http.Request) (ledger.Cell, error) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		return ledger.Cell{}, errors.NewValidationError("year", r.PathValue("year"), "must be an integer")
	}
	month, err := strconv.Atoi(r.PathValue("month"))
	if err != nil {
		return ledger.Cell{}, errors.NewValidationError("month", r.PathValue("month"), "must be an integer")
	}
	cell := ledger.Cell{ClientID: r.PathValue("client"), Month: month, Year: year}
	return cell, cell.Validate()
}

// fail logs server-side failures and writes the mapped error response.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	log := logging.FromContext(r.Context())
	switch {
	case errors.IsNotFound(err), errors.IsValidationError(err), errors.IsInvariant(err),
		errors.IsUnsupportedDocument(err), errors.IsNothingExtracted(err):
		log.Debug().Err(err).Msg("request rejected")
	default:
		log.Error().Err(err).Msg("request failed")
	}
	response.ErrorFromType(w, err)
}
