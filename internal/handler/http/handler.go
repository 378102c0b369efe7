package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cryptofolio/api/internal/handler/middleware"
	"github.com/cryptofolio/api/internal/service"
	"github.com/cryptofolio/api/lib/errs"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Handler struct {
	usersService      service.UsersService
	tradeService      service.TradeService
	portfoliosService service.PortfoliosService
	log               *slog.Logger
	jwtSecret         string
}

func NewHandler(
	usersService service.UsersService,
	tradeService service.TradeService,
	portfoliosService service.PortfoliosService,
	log *slog.Logger,
	jwtSecret string,
) *Handler {
	return &Handler{
		usersService:      usersService,
		tradeService:      tradeService,
		portfoliosService: portfoliosService,
		log:               log,
		jwtSecret:         jwtSecret,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	auth := router.Group("/auth")
	{
		auth.POST("/register", h.register)
		auth.POST("/login", h.login)
	}

	portfolio := router.Group("/portfolio", middleware.AuthMiddleware(h.jwtSecret, h.log))
	{
		portfolio.GET("/", h.getPortfolio)
		portfolio.GET("/transactions", h.getTransactions)
	}

	trade := router.Group("/trade", middleware.AuthMiddleware(h.jwtSecret, h.log))
	{
		trade.POST("/add-money", h.addMoney)
		trade.POST("/withdraw-money", h.withdrawMoney)
		trade.POST("/buy", h.buy)
		trade.POST("/sell", h.sell)
	}
}

type authRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) register(c *gin.Context) {
	var req authRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	user, err := h.usersService.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username already exists"})
			return
		}
		h.log.Error("failed to register user", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "user created successfully", "user": user.Username})
}

func (h *Handler) login(c *gin.Context) {
	var req authRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	token, err := h.usersService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, errs.ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "information invalid"})
			return
		}
		h.log.Error("failed to login user", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

func (h *Handler) getPortfolio(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	report, err := h.portfoliosService.GetReport(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "portfolio not found"})
			return
		}
		h.log.Error("failed to build portfolio report", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *Handler) getTransactions(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	transactions, err := h.portfoliosService.GetTransactions(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "portfolio not found"})
			return
		}
		h.log.Error("failed to list transactions", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, transactions)
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *Handler) addMoney(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	if err := h.tradeService.AddMoney(c.Request.Context(), userID, req.Amount); err != nil {
		h.tradeError(c, err, "failed to add money")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "successfully added money"})
}

func (h *Handler) withdrawMoney(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	if err := h.tradeService.WithdrawMoney(c.Request.Context(), userID, req.Amount); err != nil {
		h.tradeError(c, err, "failed to withdraw money")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "successfully withdrew " + req.Amount.String()})
}

type tradeRequest struct {
	Symbol   string          `json:"symbol" binding:"required"`
	Quantity decimal.Decimal `json:"quantity"`
}

// validate rejects bad symbols and non-positive quantities before anything
// reaches the trade engine.
func (r *tradeRequest) validate(c *gin.Context) bool {
	if !service.SupportedSymbol(r.Symbol) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported symbol"})
		return false
	}
	if !r.Quantity.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be positive"})
		return false
	}
	return true
}

func (h *Handler) buy(c *gin.Context) {
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !req.validate(c) {
		return
	}

	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	if err := h.tradeService.Buy(c.Request.Context(), userID, req.Symbol, req.Quantity); err != nil {
		h.tradeError(c, err, "failed to buy asset")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "asset successfully bought"})
}

func (h *Handler) sell(c *gin.Context) {
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !req.validate(c) {
		return
	}

	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	if err := h.tradeService.Sell(c.Request.Context(), userID, req.Symbol, req.Quantity); err != nil {
		h.tradeError(c, err, "failed to sell asset")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "asset successfully sold"})
}

func (h *Handler) currentUser(c *gin.Context) (uuid.UUID, bool) {
	userIDRaw, ok := c.Get(middleware.UserCtx)
	if !ok {
		h.log.Error("handler: userID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDRaw.(string))
	if err != nil {
		h.log.Error("handler: failed to parse userID from context", "userID", userIDRaw)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user id in token"})
		return uuid.Nil, false
	}

	return userID, true
}

func (h *Handler) tradeError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, errs.ErrInsufficientFunds):
		c.JSON(http.StatusBadRequest, gin.H{"error": "insufficient funds"})
	case errors.Is(err, errs.ErrInsufficientPosition):
		c.JSON(http.StatusBadRequest, gin.H{"error": "not enough to sell"})
	case errors.Is(err, errs.ErrPriceUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "price unavailable"})
	case errors.Is(err, errs.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "portfolio not found"})
	default:
		h.log.Error(logMsg, slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
