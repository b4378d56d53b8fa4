package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sensornet-io/sensornet/cmd/sensornet/helpers"
)

type nearRequest struct {
	Latitude  float64 `form:"latitude" binding:"required"`
	Longitude float64 `form:"longitude" binding:"required"`
	Radius    float64 `form:"radius" binding:"required"`
}

type searchRequest struct {
	Query      string `form:"query" binding:"required"`
	Size       int    `form:"size,default=10"`
	SearchType string `form:"search_type,default=match"`
}

func GetSensorsNearHandler(c *gin.Context) {
	var request nearRequest
	if err := c.BindQuery(&request); err != nil {
		helpers.HandleInvalidInputError(c, err)
		return
	}

	sensors, err := core.SensorsNear(c.Request.Context(), request.Latitude, request.Longitude, request.Radius)
	if err != nil {
		helpers.HandleFanOutError(c, err)
		return
	}
	c.JSON(http.StatusOK, sensors)
}

func SearchSensorsHandler(c *gin.Context) {
	var request searchRequest
	if err := c.BindQuery(&request); err != nil {
		helpers.HandleInvalidInputError(c, err)
		return
	}

	sensors, err := core.SearchSensors(c.Request.Context(), request.Query, request.Size, request.SearchType)
	if err != nil {
		helpers.HandleFanOutError(c, err)
		return
	}
	c.JSON(http.StatusOK, sensors)
}

func GetTemperatureValuesHandler(c *gin.Context) {
	sensors, err := core.TemperatureValues(c.Request.Context())
	if err != nil {
		helpers.HandleFanOutError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sensors": sensors})
}

func GetQuantityByTypeHandler(c *gin.Context) {
	counts, err := core.QuantityByType(c.Request.Context())
	if err != nil {
		helpers.HandleFanOutError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sensors": counts})
}

func GetLowBatteryHandler(c *gin.Context) {
	sensors, err := core.LowBatterySensors(c.Request.Context())
	if err != nil {
		helpers.HandleFanOutError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sensors": sensors})
}
