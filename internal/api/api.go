// Package api expõe o catálogo por HTTP, somente leitura. A ingestão
// escreve; a API serve o estado vigente e a trilha de preços.
package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"catalogo-precos/internal/database"
	"catalogo-precos/internal/models"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Server serve as rotas de leitura do catálogo.
type Server struct {
	store database.Store
}

// New monta o servidor sobre o store dado.
func New(store database.Store) *Server {
	return &Server{store: store}
}

// Router registra as rotas e devolve o engine pronto para escutar.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/products", s.listProducts)
		apiGroup.GET("/products/:id", s.getProduct)
		apiGroup.GET("/products/:id/history", s.getHistory)
	}
	return r
}

func (s *Server) listProducts(c *gin.Context) {
	limit := intQuery(c, "limit", defaultLimit)
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	offset := intQuery(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	products, err := s.store.ListProducts(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "falha ao listar produtos"})
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "limit": limit, "offset": offset})
}

func (s *Server) getProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id inválido"})
		return
	}
	p, err := s.store.GetProduct(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "falha ao buscar produto"})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "produto não encontrado"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) getHistory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id inválido"})
		return
	}
	p, err := s.store.GetProduct(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "falha ao buscar produto"})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "produto não encontrado"})
		return
	}

	limit := intQuery(c, "limit", defaultLimit)
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	history, err := s.store.GetPriceHistory(c.Request.Context(), id, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "falha ao buscar histórico"})
		return
	}
	if history == nil {
		history = []models.PriceHistory{}
	}
	c.JSON(http.StatusOK, gin.H{"product": p, "history": history})
}

func intQuery(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
