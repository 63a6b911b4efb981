package httpapi

import (
	"errors"
	"io"
	"strconv"

	"suki-be/internal/apperror"
	"suki-be/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var (
	errInvalidBody = apperror.Validation("invalid request body")
	errInvalidID   = apperror.Validation("invalid id")
)

func fail(c *gin.Context, err error) {
	middleware.Abort(c, err)
}

// bind decodes the JSON body into dst. An empty body leaves dst untouched.
func bind(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return errInvalidBody
	}
	return nil
}

func paramID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, errInvalidID
	}
	return id, nil
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	v := c.Query(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apperror.Validation(name + " must be a non-negative number")
	}
	return n, nil
}
