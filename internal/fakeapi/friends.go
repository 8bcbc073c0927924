package fakeapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/billbatista/brofinance/api"
	"github.com/billbatista/brofinance/friend"
	"github.com/billbatista/brofinance/ledger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type friendRequest struct {
	ID        string
	From      string
	To        string
	CreatedAt time.Time
}

func (s *Server) areFriends(a, b string) bool {
	return s.friends[a][b]
}

func (s *Server) befriend(a, b string) {
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		if s.friends[pair[0]] == nil {
			s.friends[pair[0]] = make(map[string]bool)
		}
		s.friends[pair[0]][pair[1]] = true
	}
}

// pendingBetween finds an open request in either direction. Callers hold s.mu.
func (s *Server) pendingBetween(a, b string) *friendRequest {
	for _, req := range s.requests {
		if (req.From == a && req.To == b) || (req.From == b && req.To == a) {
			return req
		}
	}
	return nil
}

func (s *Server) dropRequest(id string) {
	for i, req := range s.requests {
		if req.ID == id {
			s.requests = append(s.requests[:i], s.requests[i+1:]...)
			return
		}
	}
}

func (s *Server) party(id string) ledger.Party {
	acc, _ := s.users.GetByID(context.Background(), id)
	if acc == nil {
		return ledger.Party{ID: id}
	}
	return ledger.Party{ID: acc.ID, Username: acc.Username, AvatarURL: acc.AvatarURL}
}

func (s *Server) listFriends(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r.Context())
	out := []friend.Friend{}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.users.All() {
		if s.areFriends(userID, acc.ID) {
			out = append(out, friend.Friend{ID: acc.ID, Username: acc.Username, Email: acc.Email, AvatarURL: acc.AvatarURL})
		}
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) friendRequests(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r.Context())
	out := friend.Requests{Received: []friend.Request{}, Sent: []friend.Request{}}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, req := range s.requests {
		switch userID {
		case req.To:
			out.Received = append(out.Received, friend.Request{ID: req.ID, User: s.party(req.From), CreatedAt: req.CreatedAt})
		case req.From:
			out.Sent = append(out.Sent, friend.Request{ID: req.ID, User: s.party(req.To), CreatedAt: req.CreatedAt})
		}
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) friendStatus(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r.Context())
	other := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()

	info := friend.StatusInfo{Status: friend.StatusNone}
	switch req := s.pendingBetween(userID, other); {
	case other == userID:
		info.Status = friend.StatusSelf
	case s.areFriends(userID, other):
		info.Status = friend.StatusFriend
	case req != nil && req.From == userID:
		info = friend.StatusInfo{Status: friend.StatusPendingSent, RequestID: req.ID}
	case req != nil:
		info = friend.StatusInfo{Status: friend.StatusPendingReceived, RequestID: req.ID}
	}
	writeData(w, http.StatusOK, info)
}

func (s *Server) searchUsers(w http.ResponseWriter, r *http.Request) {
	q, err := friend.NormalizeQuery(r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "La búsqueda debe tener al menos 2 caracteres")
		return
	}
	out := []friend.SearchUser{}
	for _, acc := range s.users.Search(r.Context(), q, currentUser(r.Context())) {
		out = append(out, friend.SearchUser{ID: acc.ID, Username: acc.Username, Email: acc.Email, AvatarURL: acc.AvatarURL})
	}
	writeData(w, http.StatusOK, out)
}

// sendFriendRequest answers a pending request from the other side by
// accepting it instead of opening a second one.
func (s *Server) sendFriendRequest(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r.Context())
	var in struct {
		UserID string `json:"userId"`
	}
	if !decode(w, r, &in) {
		return
	}
	if in.UserID == "" || in.UserID == userID {
		writeError(w, http.StatusBadRequest, "Usuario inválido")
		return
	}
	if acc, _ := s.users.GetByID(r.Context(), in.UserID); acc == nil {
		writeError(w, http.StatusNotFound, "Usuario no encontrado")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.areFriends(userID, in.UserID) {
		writeError(w, http.StatusConflict, "Ya son amigos")
		return
	}
	if req := s.pendingBetween(userID, in.UserID); req != nil {
		if req.From == userID {
			writeError(w, http.StatusConflict, "Ya enviaste una solicitud")
			return
		}
		s.dropRequest(req.ID)
		s.befriend(userID, in.UserID)
		writeMessage(w, "Solicitud aceptada")
		return
	}
	s.requests = append(s.requests, &friendRequest{
		ID:        uuid.NewString(),
		From:      userID,
		To:        in.UserID,
		CreatedAt: s.now().UTC(),
	})
	writeJSON(w, http.StatusCreated, api.Envelope[any]{Success: true, Message: "Solicitud enviada"})
}

func (s *Server) answerFriendRequest(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r.Context())
	decision := chi.URLParam(r, "decision")
	if decision != "accept" && decision != "reject" {
		writeError(w, http.StatusNotFound, "Acción desconocida")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var req *friendRequest
	for _, candidate := range s.requests {
		if candidate.ID == chi.URLParam(r, "id") && candidate.To == userID {
			req = candidate
		}
	}
	if req == nil {
		writeError(w, http.StatusNotFound, "Solicitud no encontrada")
		return
	}
	s.dropRequest(req.ID)
	if decision == "accept" {
		s.befriend(req.From, req.To)
		writeMessage(w, "Solicitud aceptada")
		return
	}
	writeMessage(w, "Solicitud rechazada")
}

func (s *Server) removeFriend(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r.Context())
	other := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.areFriends(userID, other) {
		writeError(w, http.StatusNotFound, "No son amigos")
		return
	}
	delete(s.friends[userID], other)
	delete(s.friends[other], userID)
	writeMessage(w, "Amigo eliminado")
}

// transferInfo sums what the caller owes creditor on the given accepted
// records and hands out the creditor's bank id.
func (s *Server) transferInfo(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r.Context())
	var in api.TransferRequest
	if !decode(w, r, &in) {
		return
	}
	if len(in.ExpenseIDs) == 0 {
		writeError(w, http.StatusBadRequest, "No hay compras seleccionadas")
		return
	}
	creditor, err := s.users.GetByID(r.Context(), in.CreditorID)
	if err != nil || creditor == nil {
		writeError(w, http.StatusNotFound, "Acreedor no encontrado")
		return
	}
	if strings.TrimSpace(creditor.CBU) == "" {
		writeError(w, http.StatusBadRequest, "El acreedor no tiene CBU configurado")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	amount := decimal.Zero
	var descs []string
	for _, id := range in.ExpenseIDs {
		e := s.find(id)
		if e == nil || e.Debtor.ID != userID || e.Creditor.ID != in.CreditorID || e.IsPersonal() {
			writeError(w, http.StatusBadRequest, "Compra inválida: "+id)
			return
		}
		if !e.IsAccepted() {
			writeError(w, http.StatusBadRequest, "La compra "+id+" no está aceptada")
			return
		}
		amount = amount.Add(e.DebtorShare)
		descs = append(descs, e.Description)
	}

	writeData(w, http.StatusOK, api.TransferInfo{
		CBU:              creditor.CBU,
		Amount:           amount,
		Description:      "Pago de " + strings.Join(descs, ", "),
		CreditorUsername: creditor.Username,
	})
}
