package http

import (
	"errors"
	"net/http"

	"expenses/internal/core"
	applog "expenses/internal/log"
	"expenses/internal/services"
)

type listPage struct {
	page
	Query    core.ListQuery
	Expenses []core.Expense
	Total    core.Money
}

type expenseFormPage struct {
	page
	ID   int64
	Form services.ExpenseInput
}

type summaryPage struct {
	page
	Rows []core.CategoryAmount
}

type monthlyPage struct {
	page
	Rows []core.MonthAmount
}

type limitPage struct {
	page
	Category string
	Limit    string
	Limits   []core.LimitStatus
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r.Context())
	q := parseListQuery(r)

	listing, err := s.expenses.List(r.Context(), sess.UserID, q)
	if err != nil {
		s.logger.LogError(r.Context(), "List expenses failed", err, applog.OpList, applog.FieldUserID, sess.UserID)
		InternalServerError().Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "view", listPage{
		page:     page{Username: sess.Username},
		Query:    q,
		Expenses: listing.Expenses,
		Total:    listing.Total,
	})
}

func (s *Server) handleAddForm(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r.Context())
	s.render(w, r, http.StatusOK, "add", expenseFormPage{
		page: page{Username: sess.Username},
		Form: defaultExpenseInput(s.now()),
	})
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r.Context())
	in := parseExpenseForm(r)

	e, err := s.expenses.Create(r.Context(), sess.UserID, in)
	if err != nil {
		msg, ok := s.formError(r, err)
		if !ok {
			s.logger.LogError(r.Context(), "Create expense failed", err, applog.OpCreate, applog.FieldUserID, sess.UserID)
			InternalServerError().Write(w)
			return
		}
		s.render(w, r, http.StatusUnprocessableEntity, "add", expenseFormPage{
			page: page{Username: sess.Username, Error: msg},
			Form: in,
		})
		return
	}

	s.metrics.expensesCreated.Add(1)
	s.logger.InfoContext(r.Context(), "Expense created",
		applog.NewFields().WithUser(sess.UserID).WithExpense(e.ID, e.Category, e.Amount.Cents).ToSlice()...)
	RedirectTo("/").Write(w)
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		NotFoundError().Write(w)
		return
	}

	e, err := s.expenses.Get(r.Context(), sess.UserID, id)
	if errors.Is(err, core.ErrNotFound) {
		ForbiddenError().Write(w)
		return
	}
	if err != nil {
		s.logger.LogError(r.Context(), "Get expense failed", err, applog.OpUpdate, applog.FieldExpenseID, id)
		InternalServerError().Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "edit", expenseFormPage{
		page: page{Username: sess.Username},
		ID:   e.ID,
		Form: inputFromExpense(e),
	})
}

// handleEdit applies the form to an owned expense. A rejected edit shows the
// stored values again alongside the error.
func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		NotFoundError().Write(w)
		return
	}

	e, err := s.expenses.Update(r.Context(), sess.UserID, id, parseExpenseForm(r))
	if errors.Is(err, core.ErrNotFound) {
		ForbiddenError().Write(w)
		return
	}
	if err != nil {
		msg, ok := s.formError(r, err)
		if !ok {
			s.logger.LogError(r.Context(), "Update expense failed", err, applog.OpUpdate, applog.FieldExpenseID, id)
			InternalServerError().Write(w)
			return
		}
		stored, getErr := s.expenses.Get(r.Context(), sess.UserID, id)
		if getErr != nil {
			ForbiddenError().Write(w)
			return
		}
		s.render(w, r, http.StatusUnprocessableEntity, "edit", expenseFormPage{
			page: page{Username: sess.Username, Error: msg},
			ID:   id,
			Form: inputFromExpense(stored),
		})
		return
	}

	s.metrics.expensesUpdated.Add(1)
	s.logger.InfoContext(r.Context(), "Expense updated",
		applog.NewFields().WithUser(sess.UserID).WithExpense(e.ID, e.Category, e.Amount.Cents).ToSlice()...)
	RedirectTo("/").Write(w)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		NotFoundError().Write(w)
		return
	}
	if err := s.expenses.Delete(r.Context(), sess.UserID, id); err != nil {
		s.logger.LogError(r.Context(), "Delete expense failed", err, applog.OpDelete, applog.FieldExpenseID, id)
		InternalServerError().Write(w)
		return
	}
	s.metrics.expensesDeleted.Add(1)
	RedirectTo("/").Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r.Context())
	rows, err := s.expenses.CategorySummary(r.Context(), sess.UserID)
	if err != nil {
		s.logger.LogError(r.Context(), "Category summary failed", err, applog.OpSummary, applog.FieldUserID, sess.UserID)
		InternalServerError().Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "summary", summaryPage{page: page{Username: sess.Username}, Rows: rows})
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r.Context())
	rows, err := s.expenses.MonthlySummary(r.Context(), sess.UserID)
	if err != nil {
		s.logger.LogError(r.Context(), "Monthly summary failed", err, applog.OpSummary, applog.FieldUserID, sess.UserID)
		InternalServerError().Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "monthly", monthlyPage{page: page{Username: sess.Username}, Rows: rows})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r.Context())
	month := r.PathValue("month")

	expenses, err := s.expenses.ExportMonth(r.Context(), sess.UserID, month)
	if core.IsValidation(err) {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err != nil {
		s.logger.LogError(r.Context(), "Export failed", err, applog.OpExport, applog.FieldMonth, month)
		InternalServerError().Write(w)
		return
	}

	s.metrics.exports.Add(1)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=expenses_"+month+".csv")
	w.WriteHeader(http.StatusOK)
	if err := core.WriteExpensesCSV(w, expenses); err != nil {
		s.logger.WarnContext(r.Context(), "Export write interrupted", "error", err, applog.FieldMonth, month)
	}
}

func (s *Server) handleSetLimitForm(w http.ResponseWriter, r *http.Request) {
	s.renderLimits(w, r, http.StatusOK, limitPage{})
}

func (s *Server) handleSetLimit(w http.ResponseWriter, r *http.Request) {
	category := sanitizeInput(r.PostFormValue("category"))
	limit := r.PostFormValue("limit")

	_, err := s.limits.SetLimit(r.Context(), currentSession(r.Context()).UserID, category, limit)
	if core.IsValidation(err) {
		s.renderLimits(w, r, http.StatusUnprocessableEntity, limitPage{
			page:     page{Error: err.Error()},
			Category: category,
			Limit:    limit,
		})
		return
	}
	if err != nil {
		s.logger.LogError(r.Context(), "Set limit failed", err, applog.OpSetLimit, applog.FieldCategory, category)
		InternalServerError().Write(w)
		return
	}
	s.renderLimits(w, r, http.StatusOK, limitPage{page: page{Message: "Limit set successfully"}})
}

func (s *Server) renderLimits(w http.ResponseWriter, r *http.Request, status int, data limitPage) {
	sess := currentSession(r.Context())
	limits, err := s.limits.ListLimits(r.Context(), sess.UserID)
	if err != nil {
		s.logger.LogError(r.Context(), "List limits failed", err, applog.OpSetLimit, applog.FieldUserID, sess.UserID)
		InternalServerError().Write(w)
		return
	}
	data.Username = sess.Username
	data.Limits = limits
	s.render(w, r, status, "set_limit", data)
}

// formError maps user-facing failures to the inline form message. ok is false
// for infrastructure errors.
func (s *Server) formError(r *http.Request, err error) (msg string, ok bool) {
	var le *core.LimitExceededError
	if errors.As(err, &le) {
		s.metrics.limitRejections.Add(1)
		return le.Error(), true
	}
	if core.IsValidation(err) {
		return err.Error(), true
	}
	return "", false
}
