package helpers

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sensornet-io/sensornet/cmd/sensornet/models"
	"go.uber.org/zap"
)

// HandleFanOutError maps the typed error kinds onto HTTP status codes. The
// controllers never see store-specific errors directly.
func HandleFanOutError(c *gin.Context, err error) {
	var partial *models.PartialWriteError
	var downstream *models.DownstreamError
	var malformed *models.MalformedQueryError

	switch {
	case errors.Is(err, models.ErrSensorNotFound):
		c.JSON(
			http.StatusNotFound,
			gin.H{
				"error":  err.Error(),
				"status": http.StatusNotFound,
			})
	case errors.Is(err, models.ErrNameConflict):
		c.JSON(
			http.StatusConflict,
			gin.H{
				"error":  err.Error(),
				"status": http.StatusConflict,
			})
	case errors.As(err, &malformed):
		zap.S().Warnf("Malformed query: %s", err)
		c.JSON(
			http.StatusBadRequest,
			gin.H{
				"error":   err.Error(),
				"status":  http.StatusBadRequest,
				"message": "The query could not be translated for the target store.",
			})
	case errors.As(err, &partial):
		zap.S().Errorw(
			"Partial fan-out write",
			"error", err,
			"store", partial.Store,
			"step", partial.Step,
			"sensorID", partial.SensorID,
		)
		c.JSON(
			http.StatusInternalServerError,
			gin.H{
				"error":   err.Error(),
				"status":  http.StatusInternalServerError,
				"message": "A fan-out step failed after earlier stores were already written. Check the step log before retrying.",
				"store":   partial.Store,
				"step":    partial.Step,
			})
	case errors.As(err, &downstream):
		zap.S().Errorw(
			"Downstream store unavailable",
			"error", err,
			"store", downstream.Store,
		)
		c.JSON(
			http.StatusBadGateway,
			gin.H{
				"error":  err.Error(),
				"status": http.StatusBadGateway,
				"store":  downstream.Store,
			})
	default:
		HandleInternalServerError(c, err)
	}
}

func HandleInternalServerError(c *gin.Context, err error) {
	if c == nil {
		panic("HandleInternalServerError: c is nil")
	}
	if err == nil {
		err = errors.New("unknown error")
	}

	zap.S().Errorw(
		"Internal server error",
		"error", err,
	)

	c.JSON(
		http.StatusInternalServerError,
		gin.H{
			"error":       err.Error(),
			"status":      http.StatusInternalServerError,
			"message":     "The server had an internal error.",
			"stack-trace": string(debug.Stack()),
		})
}

func HandleInvalidInputError(c *gin.Context, err error) {
	if c == nil {
		panic("HandleInvalidInputError: c is nil")
	}
	if err == nil {
		err = errors.New("unknown error")
	}

	zap.S().Errorw(
		"Invalid input error",
		"error", err,
	)

	c.JSON(
		http.StatusBadRequest,
		gin.H{
			"error":   err.Error(),
			"status":  http.StatusBadRequest,
			"message": "You have provided a wrong input. Please check your parameters.",
		})
}
