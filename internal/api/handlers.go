package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"scena-market/internal/auth"
	"scena-market/internal/event"
	"scena-market/internal/ledger"
	"scena-market/internal/place"
	"scena-market/internal/revenue"
	"scena-market/internal/ticket"
	"scena-market/pkg/models"
)

// Handler связывает HTTP маршруты с сервисами ядра. Слой тонкий:
// все проверки живут в сервисах, здесь только разбор запросов и ответов.
type Handler struct {
	auth    *auth.Service
	ledger  *ledger.Service
	places  *place.Service
	events  *event.Service
	tickets *ticket.Service
	revenue *revenue.Service
	logger  *zap.Logger
}

// NewHandler создает новый набор обработчиков
func NewHandler(authSvc *auth.Service, ledgerSvc *ledger.Service, placeSvc *place.Service, eventSvc *event.Service, ticketSvc *ticket.Service, revenueSvc *revenue.Service, logger *zap.Logger) *Handler {
	return &Handler{
		auth:    authSvc,
		ledger:  ledgerSvc,
		places:  placeSvc,
		events:  eventSvc,
		tickets: ticketSvc,
		revenue: revenueSvc,
		logger:  logger,
	}
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "некорректный идентификатор")
	}
	return id, nil
}

// --- аутентификация ---

func (h *Handler) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "некорректное тело запроса"})
	}
	account, err := h.auth.Register(c.Request().Context(), &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, account)
}

func (h *Handler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "некорректное тело запроса"})
	}
	token, err := h.auth.Login(c.Request().Context(), &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) AssignRole(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req struct {
		Role models.Role `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "некорректное тело запроса"})
	}
	if err := h.auth.AssignRole(c.Request().Context(), identityFrom(c), id, req.Role); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// --- балансы ---

func (h *Handler) Deposit(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req models.DepositRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "некорректное тело запроса"})
	}
	req.AccountID = id
	entry, err := h.ledger.Deposit(c.Request().Context(), identityFrom(c), &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, entry)
}

func (h *Handler) Withdraw(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "некорректное тело запроса"})
	}
	entry, err := h.ledger.Withdraw(c.Request().Context(), identityFrom(c), id, req.Amount)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, entry)
}

func (h *Handler) GetBalance(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	balance, err := h.ledger.GetBalance(c.Request().Context(), identityFrom(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"balance": balance})
}

func (h *Handler) LedgerHistory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	entries, err := h.ledger.History(c.Request().Context(), identityFrom(c), id, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}

// --- площадки ---

func (h *Handler) RequestPlace(c echo.Context) error {
	var params models.PlaceParams
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "некорректное тело запроса"})
	}
	created, err := h.places.Request(c.Request().Context(), identityFrom(c), params)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) ApprovePlace(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req models.ApprovePlaceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "некорректное тело запроса"})
	}
	approved, err := h.places.Approve(c.Request().Context(), identityFrom(c), id, &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, approved)
}

func (h *Handler) UpdatePlace(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var params models.PlaceParams
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "некорректное тело запроса"})
	}
	updated, err := h.places.Update(c.Request().Context(), identityFrom(c), id, params)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeclinePlace(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	declined, err := h.places.Decline(c.Request().Context(), identityFrom(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, declined)
}

func (h *Handler) GetPlace(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	found, err := h.places.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, found)
}

func (h *Handler) ListPlaces(c echo.Context) error {
	places, err := h.places.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, places)
}

// --- события ---

func (h *Handler) SubmitEvent(c echo.Context) error {
	var req models.SubmitEventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "некорректное тело запроса"})
	}
	created, err := h.events.Submit(c.Request().Context(), identityFrom(c), &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) ApproveEvent(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	approved, err := h.events.Approve(c.Request().Context(), identityFrom(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, approved)
}

func (h *Handler) DeclineEvent(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	declined, err := h.events.Decline(c.Request().Context(), identityFrom(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, declined)
}

func (h *Handler) UpdateEvent(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req models.UpdateEventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "некорректное тело запроса"})
	}
	updated, err := h.events.Update(c.Request().Context(), identityFrom(c), id, &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) CancelEvent(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	cancelled, err := h.events.Cancel(c.Request().Context(), identityFrom(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cancelled)
}

func (h *Handler) CloseEvent(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	closed, err := h.events.Close(c.Request().Context(), identityFrom(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, closed)
}

func (h *Handler) GetEvent(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	found, err := h.events.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, found)
}

func (h *Handler) EventLedger(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	entries, err := h.ledger.EventEntries(c.Request().Context(), identityFrom(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}

// --- билеты ---

func (h *Handler) CreateCategory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req models.CreateCategoryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "некорректное тело запроса"})
	}
	category, err := h.tickets.CreateCategory(c.Request().Context(), identityFrom(c), id, &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, category)
}

func (h *Handler) ListCategories(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	categories, err := h.tickets.ListCategories(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, categories)
}

func (h *Handler) MintTickets(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req models.MintTicketsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "некорректное тело запроса"})
	}
	tickets, err := h.tickets.Mint(c.Request().Context(), identityFrom(c), id, &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, tickets)
}

func (h *Handler) GetTicket(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	found, err := h.tickets.GetTicket(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, found)
}

func (h *Handler) RedeemTicket(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	redeemed, err := h.tickets.Redeem(c.Request().Context(), identityFrom(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, redeemed)
}

// --- профили распределения ---

func (h *Handler) CreateProfile(c echo.Context) error {
	var req models.CreateProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "некорректное тело запроса"})
	}
	profile, err := h.revenue.CreateProfile(c.Request().Context(), identityFrom(c), &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, profile)
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req models.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "некорректное тело запроса"})
	}
	profile, err := h.revenue.UpdateProfile(c.Request().Context(), identityFrom(c), id, &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *Handler) SetDefaultProfile(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.revenue.SetDefaultProfile(c.Request().Context(), identityFrom(c), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SetEventProfile(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req models.SetEventProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "некорректное тело запроса"})
	}
	if err := h.revenue.SetEventProfile(c.Request().Context(), identityFrom(c), id, &req); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetProfile(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	profile, err := h.revenue.GetProfile(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}
