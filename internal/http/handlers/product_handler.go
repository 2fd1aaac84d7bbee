// Product HTTP handlers.
//
// This file exposes REST endpoints for catalog entries:
//   - POST /products                  (create, creator = caller)
//   - GET  /products/{id}             (read with live votes)
//   - POST /products/{id}/deactivate  (admin only)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CreateProductRequest is the JSON payload for registering a product.
// Blank fields are rejected by the service with invalid_input.
type CreateProductRequest struct {
	ID   string `json:"id"   example:"espresso-x1"`
	Name string `json:"name" example:"Espresso Machine X1"`
}

// CreateProduct godoc
// @ID          createProduct
// @Summary     Register a product
// @Description Creates an active product owned by the caller, subject to the per-creator quota.
// @Tags        Products
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "Caller identity (demo header)"  example(alice)
// @Param       body       body    handlers.CreateProductRequest  true  "Product"
//
// @Success     201  {object}  domain.Product
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid input"
// @Failure     401  {object}  handlers.ErrorResponse  "Anonymous caller"
// @Failure     409  {object}  handlers.ErrorResponse  "Product exists or policy not initialized"
// @Failure     429  {object}  handlers.ErrorResponse  "Product quota reached"
// @Router      /products [post]
func (h *Handlers) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	p, err := h.svc.Products.Create(c.Request.Context(), req.ID, req.Name, caller(c))
	if err != nil {
		failErr(c, err)
		return
	}
	c.Header("Location", c.FullPath()+"/"+p.ID)
	ok(c, http.StatusCreated, p)
}

// GetProduct godoc
// @ID          getProduct
// @Summary     Read a product
// @Tags        Products
// @Produce     json
// @Param       id   path  string  true  "Product ID"  example(espresso-x1)
// @Success     200  {object}  domain.Product
// @Failure     404  {object}  handlers.ErrorResponse  "Product not found"
// @Router      /products/{id} [get]
func (h *Handlers) GetProduct(c *gin.Context) {
	p, err := h.svc.Products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// DeactivateProduct godoc
// @ID          deactivateProduct
// @Summary     Close a product for voting
// @Description Admin only. Deactivating an inactive product is a no-op.
// @Tags        Products
// @Param       X-User-ID  header  string  false "Caller identity (demo header)"  example(root)
// @Param       id         path    string  true  "Product ID"  example(espresso-x1)
// @Success     204  {string}  string  "No Content"
// @Failure     401  {object}  handlers.ErrorResponse  "Anonymous caller"
// @Failure     403  {object}  handlers.ErrorResponse  "Caller is not the admin"
// @Failure     404  {object}  handlers.ErrorResponse  "Product not found"
// @Router      /products/{id}/deactivate [post]
func (h *Handlers) DeactivateProduct(c *gin.Context) {
	if err := h.svc.Products.Deactivate(c.Request.Context(), caller(c), c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
