package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const msgInvalidFormat = "Invalid request format"

// BindJson decodes the body into obj. An empty body, or one that decodes but
// fails the binding tags, gets missingMsg; anything else is a format error. The 400
// response is written here, so callers only return.
func BindJson(c *gin.Context, obj interface{}, missingMsg string) error {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) || errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": missingMsg})
		return err
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidFormat})
	return err
}
