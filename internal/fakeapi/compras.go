package fakeapi

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/billbatista/brofinance/api"
	"github.com/billbatista/brofinance/ledger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultLimit = 10
	maxLimit     = 200
)

// balance is what userID is owed minus what they owe over accepted shared
// expenses that are not settled yet.
func (s *Server) balance(userID string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, e := range s.compras {
		if e.IsPersonal() {
			continue
		}
		switch e.State.Effective() {
		case ledger.StateAccepted, ledger.StatePaymentPending:
		default:
			continue
		}
		if e.Creditor.ID == userID {
			total = total.Add(e.DebtorShare)
		}
		if e.Debtor.ID == userID {
			total = total.Sub(e.DebtorShare)
		}
	}
	return total
}

// populate fills in usernames, avatars and the category label. Callers hold s.mu.
func (s *Server) populate(e ledger.Expense) ledger.Expense {
	for _, p := range []*ledger.Party{&e.Creditor, &e.Debtor} {
		if acc, _ := s.users.GetByID(context.Background(), p.ID); acc != nil {
			p.Username = acc.Username
			p.AvatarURL = acc.AvatarURL
		}
	}
	for _, c := range s.categories {
		if c.ID == e.Category.ID {
			e.Category = c
		}
	}
	return e
}

// category accepts an id or a label.
func (s *Server) category(ref string) (ledger.Category, bool) {
	for _, c := range s.categories {
		if c.ID == ref || strings.EqualFold(c.Description, ref) {
			return c, true
		}
	}
	return ledger.Category{}, false
}

func (s *Server) listCompras(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r.Context())
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)
	key, order, err := ledger.ParseSort(q.Get("sort"), q.Get("order"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	other := q.Get("usuario")

	s.mu.Lock()
	var tipo string
	if ref := q.Get("tipo"); ref != "" {
		c, ok := s.category(ref)
		if !ok {
			s.mu.Unlock()
			writeError(w, http.StatusBadRequest, "Tipo de compra inválido")
			return
		}
		tipo = c.ID
	}
	var visible []ledger.Expense
	for _, e := range s.compras {
		if e.RoleOf(userID) == 0 {
			continue
		}
		if tipo != "" && e.Category.ID != tipo {
			continue
		}
		if other != "" && e.CounterpartyOf(userID).ID != other {
			continue
		}
		visible = append(visible, s.populate(*e))
	}
	s.mu.Unlock()

	ledger.Sort(visible, key, order)

	total := len(visible)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)
	data := visible[start:end]
	if data == nil {
		data = []ledger.Expense{}
	}
	writeJSON(w, http.StatusOK, api.Envelope[any]{
		Success: true,
		Data:    data,
		Pagination: &api.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: (total + limit - 1) / limit,
		},
	})
}

func (s *Server) tipos(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := slices.Clone(s.categories)
	s.mu.Unlock()
	writeData(w, http.StatusOK, out)
}

// usuarios lists everyone the current user can split with.
func (s *Server) usuarios(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r.Context())
	out := []api.Roommate{}
	for _, acc := range s.users.All() {
		if acc.ID == userID {
			continue
		}
		out = append(out, api.Roommate{
			ID:        acc.ID,
			Username:  acc.Username,
			AvatarURL: acc.AvatarURL,
			Balance:   s.balance(acc.ID),
		})
	}
	writeData(w, http.StatusOK, out)
}

var (
	errDescription = errors.New("La descripción es obligatoria")
	errTotal       = errors.New("El monto total debe ser mayor a 0")
	errShare       = errors.New("El monto del deudor debe ser mayor a 0 y no superar el total")
	errShares      = errors.New("La suma de los montos supera el total")
	errTipo        = errors.New("Tipo de compra inválido")
	errDebtor      = errors.New("Deudor inválido")
)

func (s *Server) createCompra(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r.Context())
	var in ledger.CreateInput
	if !decode(w, r, &in) {
		return
	}

	debtorID := in.DeudorID
	if debtorID == "" {
		debtorID = userID
	}
	creditorShare := in.MontoTotal.Sub(in.MontoDeudor)
	if debtorID == userID {
		// a personal expense is all the creditor's
		creditorShare = in.MontoTotal
		in.MontoDeudor = in.MontoTotal
	}

	e, err := s.insert(userID, debtorID, in.Descripcion, in.Tipo, in.MontoTotal, creditorShare, in.MontoDeudor)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeData(w, http.StatusCreated, e)
}

// createBatch creates one record per debtor. Each record carries what the
// creditor keeps for themselves.
func (s *Server) createBatch(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r.Context())
	var in ledger.BatchInput
	if !decode(w, r, &in) {
		return
	}
	if len(in.Deudores) == 0 {
		writeError(w, http.StatusBadRequest, "Seleccioná al menos un deudor")
		return
	}

	sum := decimal.Zero
	for _, d := range in.Deudores {
		acc, _ := s.users.GetByID(r.Context(), d.DeudorID)
		if d.DeudorID == userID || acc == nil {
			writeError(w, http.StatusBadRequest, errDebtor.Error())
			return
		}
		sum = sum.Add(d.MontoDeudor)
	}
	if sum.GreaterThan(in.MontoTotal) {
		writeError(w, http.StatusBadRequest, errShares.Error())
		return
	}
	creditorShare := in.MontoTotal.Sub(sum)

	out := make([]ledger.Expense, 0, len(in.Deudores))
	for _, d := range in.Deudores {
		e, err := s.insert(userID, d.DeudorID, in.Descripcion, in.Tipo, in.MontoTotal, creditorShare, d.MontoDeudor)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		out = append(out, e)
	}
	writeData(w, http.StatusCreated, out)
}

func (s *Server) insert(creditorID, debtorID, desc, tipo string, total, creditorShare, debtorShare decimal.Decimal) (ledger.Expense, error) {
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return ledger.Expense{}, errDescription
	}
	if !total.IsPositive() {
		return ledger.Expense{}, errTotal
	}
	if !debtorShare.IsPositive() || debtorShare.GreaterThan(total) {
		return ledger.Expense{}, errShare
	}
	if acc, _ := s.users.GetByID(context.Background(), debtorID); acc == nil {
		return ledger.Expense{}, errDebtor
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.category(tipo)
	if !ok {
		return ledger.Expense{}, errTipo
	}

	now := s.now().UTC()
	e := &ledger.Expense{
		ID:            uuid.NewString(),
		Description:   desc,
		Total:         total,
		CreditorShare: creditorShare,
		DebtorShare:   debtorShare,
		Category:      ledger.Category{ID: c.ID},
		Creditor:      ledger.Party{ID: creditorID},
		Debtor:        ledger.Party{ID: debtorID},
		State:         ledger.StatePending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if e.IsPersonal() {
		e.State = ledger.StateAccepted
	}
	s.compras = append(s.compras, e)
	return s.populate(*e), nil
}

func (s *Server) find(id string) *ledger.Expense {
	for _, e := range s.compras {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// updateCompra lets the creditor fix a record before payment starts. Changing
// a shared record the debtor already accepted sends it back to pendiente.
func (s *Server) updateCompra(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r.Context())
	var in ledger.UpdateInput
	if !decode(w, r, &in) {
		return
	}
	if in.Empty() {
		writeError(w, http.StatusBadRequest, "No hay cambios para guardar")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.find(chi.URLParam(r, "id"))
	if e == nil {
		writeError(w, http.StatusNotFound, "Compra no encontrada")
		return
	}
	if !e.CanEdit(userID) {
		writeError(w, http.StatusForbidden, "No podés editar esta compra")
		return
	}

	next := *e
	if in.Descripcion != nil {
		next.Description = strings.TrimSpace(*in.Descripcion)
		if next.Description == "" {
			writeError(w, http.StatusBadRequest, errDescription.Error())
			return
		}
	}
	if in.Tipo != nil {
		c, ok := s.category(*in.Tipo)
		if !ok {
			writeError(w, http.StatusBadRequest, errTipo.Error())
			return
		}
		next.Category = ledger.Category{ID: c.ID}
	}
	if in.MontoTotal != nil {
		if !in.MontoTotal.IsPositive() {
			writeError(w, http.StatusBadRequest, errTotal.Error())
			return
		}
		if next.IsPersonal() {
			next.DebtorShare = *in.MontoTotal
			next.CreditorShare = *in.MontoTotal
		} else {
			if next.DebtorShare.GreaterThan(*in.MontoTotal) {
				writeError(w, http.StatusBadRequest, errShare.Error())
				return
			}
			next.CreditorShare = next.CreditorShare.Add(in.MontoTotal.Sub(next.Total))
		}
		next.Total = *in.MontoTotal
	}
	if e.EditNeedsReaccept() {
		next.State = ledger.StatePending
	}
	next.UpdatedAt = s.now().UTC()
	*e = next

	writeData(w, http.StatusOK, s.populate(next))
}

// transition enforces the same table the client checks against.
func (s *Server) transition(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r.Context())
	action, err := ledger.ParseAction(chi.URLParam(r, "action"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Acción desconocida")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.find(chi.URLParam(r, "id"))
	if e == nil || e.RoleOf(userID) == 0 {
		writeError(w, http.StatusNotFound, "Compra no encontrada")
		return
	}
	to, err := ledger.Next(e.State, action, e.RoleOf(userID))
	switch {
	case errors.Is(err, ledger.ErrNotAllowed):
		writeError(w, http.StatusForbidden, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	e.State = to
	e.UpdatedAt = s.now().UTC()
	s.logger.Debug("compra transitioned", "id", e.ID, "action", action, "state", to)

	writeData(w, http.StatusOK, s.populate(*e))
}
