package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sensornet-io/sensornet/cmd/sensornet/helpers"
	"github.com/sensornet-io/sensornet/cmd/sensornet/models"
)

func RecordDataHandler(c *gin.Context) {
	var request sensorURIRequest
	if err := c.BindUri(&request); err != nil {
		helpers.HandleInvalidInputError(c, err)
		return
	}

	var reading models.Reading
	if err := c.BindJSON(&reading); err != nil {
		helpers.HandleInvalidInputError(c, err)
		return
	}

	// The ingestion fan-out itself does not check existence.
	if _, err := core.GetIdentity(c.Request.Context(), request.SensorID); err != nil {
		helpers.HandleFanOutError(c, err)
		return
	}

	recorded, err := core.RecordReading(c.Request.Context(), request.SensorID, reading)
	if err != nil {
		helpers.HandleFanOutError(c, err)
		return
	}
	c.JSON(http.StatusOK, recorded)
}

func GetDataHandler(c *gin.Context) {
	var request sensorURIRequest
	if err := c.BindUri(&request); err != nil {
		helpers.HandleInvalidInputError(c, err)
		return
	}

	ident, err := core.GetIdentity(c.Request.Context(), request.SensorID)
	if err != nil {
		helpers.HandleFanOutError(c, err)
		return
	}

	fromParam := c.Query("from")
	toParam := c.Query("to")
	bucket := c.Query("bucket")

	// No range requested: serve the current value from the hot cache.
	if fromParam == "" && toParam == "" && bucket == "" {
		latest, err := core.GetLatestReading(c.Request.Context(), ident)
		if err != nil {
			helpers.HandleFanOutError(c, err)
			return
		}
		c.JSON(http.StatusOK, latest)
		return
	}

	if fromParam == "" || toParam == "" || bucket == "" {
		helpers.HandleInvalidInputError(c, errors.New("bucketed queries need from, to and bucket"))
		return
	}

	from, err := time.Parse(time.RFC3339, fromParam)
	if err != nil {
		helpers.HandleInvalidInputError(c, err)
		return
	}
	to, err := time.Parse(time.RFC3339, toParam)
	if err != nil {
		helpers.HandleInvalidInputError(c, err)
		return
	}
	if from.After(to) {
		helpers.HandleInvalidInputError(c, errors.New("invalid time range (from > to)"))
		return
	}

	buckets, err := core.GetBucketedReadings(c.Request.Context(), request.SensorID, from, to, bucket)
	if err != nil {
		helpers.HandleFanOutError(c, err)
		return
	}
	c.JSON(http.StatusOK, buckets)
}
