package main

import (
	"net/http"

	"bitbucket.org/bjitlabs/erpgate_backend/config"
	"bitbucket.org/bjitlabs/erpgate_backend/erp"
	"bitbucket.org/bjitlabs/erpgate_backend/workflow"
	"github.com/gin-gonic/gin"
)

func createVehicleHandler(store erp.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		var req workflow.VehicleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "vehicle_name, registration_number and owner_id are required"})
			return
		}

		id, err := workflow.CreateVehicle(c.Request.Context(), store, store, logger, req)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"vehicle_id":          id,
			"registration_number": req.RegistrationNumber,
		})
	}
}

type deleteVehicleRequest struct {
	RegistrationNumber string `json:"registration_number" binding:"required"`
	OwnerId            int    `json:"owner_id" binding:"required"`
}

func deleteVehicleHandler(store erp.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		var req deleteVehicleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "registration_number and owner_id are required"})
			return
		}

		if err := workflow.DeleteVehicle(c.Request.Context(), store, logger, req.RegistrationNumber, req.OwnerId); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "vehicle deleted"})
	}
}
