package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/c9s/mangogate/pkg/mango"
	"github.com/c9s/mangogate/pkg/types"
)

func (s *Server) registerRoutes(r *gin.Engine) {
	r.GET("/api/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/perp")
	api.GET("/markets", s.handleMarkets)
	api.GET("/ticker", s.handleMarkets)
	api.GET("/orderbook", s.handleOrderbook)
	api.GET("/lastTradePrice", s.handleLastTradePrice)

	api.POST("/orders", s.handlePostOrder)
	api.DELETE("/orders", s.handleDeleteOrder)
	api.POST("/orders/batch", s.handleBatchOrders)
	api.GET("/orders", s.handleOrderHistory)

	api.POST("/positions", s.handlePositions)
	api.GET("/trades", s.handleTrades)
	api.GET("/funding/payments", s.handleFundingPayments)
	api.GET("/funding/info", s.handleFundingInfo)
}

// abortWithError maps the core error taxonomy onto HTTP statuses. Venue
// submission failures keep their detail: the caller must not be left
// guessing at partial application.
func abortWithError(c *gin.Context, err error) {
	var status int

	var cfgErr *mango.ConfigurationError
	var paramErr *mango.InvalidOrderParameterError
	var dupErr *mango.DuplicateOrderIDError
	var acctErr *mango.AccountCreationError
	var timeoutErr *types.VenueTimeoutError
	var rejectErr *types.VenueRejectionError

	switch {
	case errors.As(err, &cfgErr), errors.As(err, &paramErr), errors.As(err, &dupErr), errors.As(err, &acctErr):
		status = http.StatusBadRequest
	case errors.Is(err, mango.ErrMarketNotFound):
		status = http.StatusNotFound
	case errors.As(err, &timeoutErr):
		status = http.StatusGatewayTimeout
	case errors.As(err, &rejectErr):
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
	}

	c.JSON(status, gin.H{"error": err.Error()})
}

// networkSelection is carried by every request to pick the connector.
type networkSelection struct {
	Chain   string `form:"chain" json:"chain" binding:"required"`
	Network string `form:"network" json:"network" binding:"required"`
}

func (s *Server) connectorFromQuery(c *gin.Context) (*mango.Connector, bool) {
	var sel networkSelection
	if err := c.ShouldBindQuery(&sel); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	return s.connector(c, sel)
}

func (s *Server) connector(c *gin.Context, sel networkSelection) (*mango.Connector, bool) {
	conn, err := s.Registry.Get(c.Request.Context(), sel.Chain, sel.Network)
	if err != nil {
		abortWithError(c, err)
		return nil, false
	}

	return conn, true
}

func (s *Server) handleMarkets(c *gin.Context) {
	conn, ok := s.connectorFromQuery(c)
	if !ok {
		return
	}

	markets, err := conn.Markets(c.Query("market"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"markets": markets})
}

func (s *Server) handleOrderbook(c *gin.Context) {
	conn, ok := s.connectorFromQuery(c)
	if !ok {
		return
	}

	book, err := conn.Orderbook(c.Request.Context(), c.Query("market"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, book)
}

func (s *Server) handleLastTradePrice(c *gin.Context) {
	conn, ok := s.connectorFromQuery(c)
	if !ok {
		return
	}

	price, err := conn.LastTradePrice(c.Request.Context(), c.Query("market"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"lastTradePrice": price})
}

type postOrderRequest struct {
	networkSelection
	Address       string          `json:"address" binding:"required"`
	Market        string          `json:"market" binding:"required"`
	Side          types.Side      `json:"side" binding:"required"`
	OrderType     types.OrderType `json:"orderType" binding:"required"`
	Price         decimal.Decimal `json:"price"`
	Amount        decimal.Decimal `json:"amount"`
	ClientOrderID uint64          `json:"clientOrderID" binding:"required"`
}

func (s *Server) handlePostOrder(c *gin.Context) {
	var req postOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conn, ok := s.connector(c, req.networkSelection)
	if !ok {
		return
	}

	txHash, err := conn.SubmitOrderUpdate(c.Request.Context(), mango.OrderUpdateRequest{
		Owner: req.Address,
		Creates: []types.SubmitOrder{
			{
				Market:        req.Market,
				Side:          req.Side,
				Type:          req.OrderType,
				Price:         req.Price,
				Quantity:      req.Amount,
				ClientOrderID: req.ClientOrderID,
			},
		},
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"txHash": txHash})
}

type deleteOrderRequest struct {
	networkSelection
	Address string `json:"address" binding:"required"`
	Market  string `json:"market" binding:"required"`
	OrderID string `json:"orderId" binding:"required"`
}

func (s *Server) handleDeleteOrder(c *gin.Context) {
	var req deleteOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conn, ok := s.connector(c, req.networkSelection)
	if !ok {
		return
	}

	txHash, err := conn.SubmitOrderUpdate(c.Request.Context(), mango.OrderUpdateRequest{
		Owner: req.Address,
		Cancels: []types.CancelOrder{
			{Market: req.Market, ExchangeOrderID: req.OrderID},
		},
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"txHash": txHash})
}

type batchOrdersRequest struct {
	networkSelection
	Address string              `json:"address" binding:"required"`
	Cancels []types.CancelOrder `json:"cancelOrderParams"`
	Creates []types.SubmitOrder `json:"createOrderParams"`
}

func (s *Server) handleBatchOrders(c *gin.Context) {
	var req batchOrdersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conn, ok := s.connector(c, req.networkSelection)
	if !ok {
		return
	}

	txHash, err := conn.SubmitOrderUpdate(c.Request.Context(), mango.OrderUpdateRequest{
		Owner:   req.Address,
		Cancels: req.Cancels,
		Creates: req.Creates,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"txHash": txHash})
}

func (s *Server) handleOrderHistory(c *gin.Context) {
	conn, ok := s.connectorFromQuery(c)
	if !ok {
		return
	}

	orders, err := conn.OrderHistory(c.Request.Context(), c.Query("address"), c.Query("market"), c.Query("orderId"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

type positionsRequest struct {
	networkSelection
	Address string   `json:"address" binding:"required"`
	Markets []string `json:"markets" binding:"required"`
}

func (s *Server) handlePositions(c *gin.Context) {
	var req positionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conn, ok := s.connector(c, req.networkSelection)
	if !ok {
		return
	}

	positions, err := conn.Positions(c.Request.Context(), req.Address, req.Markets)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"positions": positions})
}

func (s *Server) handleTrades(c *gin.Context) {
	conn, ok := s.connectorFromQuery(c)
	if !ok {
		return
	}

	trades, err := conn.Trades(c.Request.Context(), c.Query("address"), c.Query("market"), c.Query("orderId"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) handleFundingPayments(c *gin.Context) {
	conn, ok := s.connectorFromQuery(c)
	if !ok {
		return
	}

	payments, err := conn.FundingPayments(c.Request.Context(), c.Query("address"), c.Query("market"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"fundingPayments": payments})
}

func (s *Server) handleFundingInfo(c *gin.Context) {
	conn, ok := s.connectorFromQuery(c)
	if !ok {
		return
	}

	info, err := conn.FundingInfo(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"fundingInfo": info})
}
