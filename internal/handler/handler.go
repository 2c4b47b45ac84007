package handler

import (
	"net/http"

	"invoicing/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeError records err on the context for the access log and renders the
// error envelope with the status its kind maps to.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, body := response.FromError(err)
	c.JSON(status, body)
}

func writeBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
}
