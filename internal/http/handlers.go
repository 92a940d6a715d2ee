package http

import (
	"net/http"

	"conti/internal/core"
	applog "conti/internal/log"
	"conti/internal/services"
)

type createUserRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Mobile string `json:"mobile,omitempty"`
}

type userResponse struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Mobile string `json:"mobile,omitempty"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user := &core.User{Name: req.Name, Email: req.Email, Mobile: req.Mobile}
	if err := user.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.repo.CreateUser(r.Context(), user); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	user, err := s.repo.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func toUserResponse(u *core.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, Mobile: u.Mobile}
}

type createGroupRequest struct {
	Name      string  `json:"name"`
	MemberIDs []int64 `json:"memberIds"`
}

type groupResponse struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	MemberIDs []int64 `json:"memberIds"`
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	group := &core.Group{Name: req.Name, MemberIDs: req.MemberIDs}
	if err := group.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.repo.CreateGroup(r.Context(), group); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupResponse(group))
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	group, err := s.repo.GetGroup(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

type addMembersRequest struct {
	UserIDs []int64 `json:"userIds"`
}

func (s *Server) handleAddMembers(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req addMembersRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	// Verify the group exists so unknown ids report 404, not silence.
	if _, err := s.repo.GetGroup(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.repo.AddGroupMembers(r.Context(), id, req.UserIDs); err != nil {
		writeError(w, r, err)
		return
	}
	group, err := s.repo.GetGroup(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

func toGroupResponse(g *core.Group) groupResponse {
	members := g.MemberIDs
	if members == nil {
		members = []int64{}
	}
	return groupResponse{ID: g.ID, Name: g.Name, MemberIDs: members}
}

type createExpenseRequest struct {
	GroupID     int64               `json:"groupId"`
	PayerID     int64               `json:"payerId"`
	Amount      core.Money          `json:"amount"`
	Description string              `json:"description,omitempty"`
	SplitType   string              `json:"splitType"`
	Splits      []core.SplitRequest `json:"splits"`
}

type splitResponse struct {
	UserID     int64      `json:"userId"`
	Amount     core.Money `json:"amount"`
	Percentage float64    `json:"percentage,omitempty"`
}

type expenseResponse struct {
	ID          int64           `json:"id"`
	GroupID     int64           `json:"groupId"`
	PayerID     int64           `json:"payerId"`
	Amount      core.Money      `json:"amount"`
	Description string          `json:"description,omitempty"`
	SplitType   string          `json:"splitType"`
	CreatedAt   string          `json:"createdAt"`
	Splits      []splitResponse `json:"splits"`
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	expense, splits, err := s.expenses.AddExpense(r.Context(), services.AddExpenseRequest{
		GroupID:     req.GroupID,
		PayerID:     req.PayerID,
		Amount:      req.Amount,
		Description: req.Description,
		SplitType:   req.SplitType,
		Splits:      req.Splits,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	expensesCreatedTotal.WithLabelValues(string(expense.SplitType)).Inc()
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Expense created",
		"expense_id", expense.ID,
		"group_id", expense.GroupID,
		"amount_cents", expense.Amount.Cents,
		"split_type", expense.SplitType)

	writeJSON(w, http.StatusCreated, toExpenseResponse(expense, splits))
}

func (s *Server) handleGroupExpenses(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	expenses, splits, err := s.expenses.GetGroupExpenses(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	byExpense := make(map[int64][]core.Split, len(expenses))
	for _, sp := range splits {
		byExpense[sp.ExpenseID] = append(byExpense[sp.ExpenseID], sp)
	}
	out := make([]expenseResponse, 0, len(expenses))
	for i := range expenses {
		out = append(out, toExpenseResponse(&expenses[i], byExpense[expenses[i].ID]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": out})
}

func toExpenseResponse(e *core.Expense, splits []core.Split) expenseResponse {
	resp := expenseResponse{
		ID:          e.ID,
		GroupID:     e.GroupID,
		PayerID:     e.PayerID,
		Amount:      e.Amount,
		Description: e.Description,
		SplitType:   string(e.SplitType),
		CreatedAt:   e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		Splits:      make([]splitResponse, 0, len(splits)),
	}
	for _, sp := range splits {
		resp.Splits = append(resp.Splits, splitResponse{
			UserID:     sp.UserID,
			Amount:     sp.Amount,
			Percentage: sp.Percentage,
		})
	}
	return resp
}

type balanceResponse struct {
	GroupID   int64           `json:"groupId"`
	Transfers []core.Transfer `json:"transfers"`
}

func (s *Server) handleGroupBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	transfers, err := s.balances.GetGroupBalance(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if transfers == nil {
		transfers = []core.Transfer{}
	}
	writeJSON(w, http.StatusOK, balanceResponse{GroupID: id, Transfers: transfers})
}
