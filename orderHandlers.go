package main

import (
	"net/http"

	"bitbucket.org/bjitlabs/erpgate_backend/config"
	"bitbucket.org/bjitlabs/erpgate_backend/erp"
	"bitbucket.org/bjitlabs/erpgate_backend/workflow"
	"github.com/gin-gonic/gin"
)

func createOrderHandler(store erp.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		var req workflow.CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		result, err := workflow.CreateOrder(c.Request.Context(), store, config.GetRedisLock(), logger, req)
		if err != nil {
			// A partial result means the order exists but fulfillment did not
			// finish; the caller gets both the order and the failure.
			if result != nil {
				c.JSON(statusForKind(workflow.KindOf(err)), gin.H{
					"error":      workflow.MessageOf(err),
					"order_id":   result.OrderId,
					"sale_order": result.OrderName,
					"status":     result.Status,
				})
				return
			}
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

type trackOrderRequest struct {
	OrderId int `json:"order_id" binding:"required"`
}

func trackOrderHandler(store erp.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		var req trackOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "order_id is required"})
			return
		}

		status, err := workflow.TrackOrder(c.Request.Context(), store, store, logger, req.OrderId)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, status)
	}
}

type shippingAddressRequest struct {
	CustomerId int    `json:"customer_id" binding:"required"`
	Street     string `json:"street" binding:"required"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
}

func shippingAddressHandler(store erp.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		var req shippingAddressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "customer_id and street are required"})
			return
		}

		addressId, err := workflow.UpsertShippingAddress(c.Request.Context(), store, logger, req.CustomerId, workflow.ShippingAddressRequest{
			Street: req.Street,
			Phone:  req.Phone,
			Email:  req.Email,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"customer_id": req.CustomerId,
			"address_id":  addressId,
		})
	}
}
