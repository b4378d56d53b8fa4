package main

import (
	"time"

	"github.com/gin-contrib/gzip"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/sensornet-io/sensornet/cmd/sensornet/controllers"
	"go.uber.org/zap"
)

// SetupRestAPI builds the router and starts listening.
func SetupRestAPI(listenAddress string) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Combined access and error log to stdout, RFC3339 UTC timestamps, and
	// panics logged with their stack.
	router.Use(ginzap.Ginzap(zap.L(), time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(zap.L(), true))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	router.GET("/", func(c *gin.Context) {
		c.String(200, "online")
	})

	sensors := router.Group("/sensors")
	{
		sensors.GET("", controllers.GetSensorsHandler)
		sensors.POST("", controllers.CreateSensorHandler)
		sensors.GET("/near", controllers.GetSensorsNearHandler)
		sensors.GET("/search", controllers.SearchSensorsHandler)
		sensors.GET("/temperature/values", controllers.GetTemperatureValuesHandler)
		sensors.GET("/quantity_by_type", controllers.GetQuantityByTypeHandler)
		sensors.GET("/low_battery", controllers.GetLowBatteryHandler)
		sensors.GET("/:id", controllers.GetSensorHandler)
		sensors.DELETE("/:id", controllers.DeleteSensorHandler)
		sensors.POST("/:id/data", controllers.RecordDataHandler)
		sensors.GET("/:id/data", controllers.GetDataHandler)
	}

	err := router.Run(listenAddress)
	if err != nil {
		zap.S().Fatalf("Failed to start REST API: %s", err)
	}
}
