package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sensornet-io/sensornet/cmd/sensornet/helpers"
	"github.com/sensornet-io/sensornet/cmd/sensornet/models"
)

type sensorURIRequest struct {
	SensorID int64 `uri:"id" binding:"required"`
}

type listSensorsRequest struct {
	Offset int `form:"offset,default=0"`
	Limit  int `form:"limit,default=100"`
}

func GetSensorsHandler(c *gin.Context) {
	var request listSensorsRequest
	if err := c.BindQuery(&request); err != nil {
		helpers.HandleInvalidInputError(c, err)
		return
	}

	sensors, err := core.ListSensors(c.Request.Context(), request.Offset, request.Limit)
	if err != nil {
		helpers.HandleFanOutError(c, err)
		return
	}
	c.JSON(http.StatusOK, sensors)
}

func CreateSensorHandler(c *gin.Context) {
	var request models.SensorCreate
	if err := c.BindJSON(&request); err != nil {
		helpers.HandleInvalidInputError(c, err)
		return
	}

	profile, err := core.CreateSensor(c.Request.Context(), request)
	if err != nil {
		helpers.HandleFanOutError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func GetSensorHandler(c *gin.Context) {
	var request sensorURIRequest
	if err := c.BindUri(&request); err != nil {
		helpers.HandleInvalidInputError(c, err)
		return
	}

	profile, err := core.GetSensor(c.Request.Context(), request.SensorID)
	if err != nil {
		helpers.HandleFanOutError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func DeleteSensorHandler(c *gin.Context) {
	var request sensorURIRequest
	if err := c.BindUri(&request); err != nil {
		helpers.HandleInvalidInputError(c, err)
		return
	}

	deleted, err := core.DeleteSensor(c.Request.Context(), request.SensorID)
	if err != nil {
		helpers.HandleFanOutError(c, err)
		return
	}
	c.JSON(http.StatusOK, deleted)
}
