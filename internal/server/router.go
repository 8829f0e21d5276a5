package server

import (
	auction "delivery-auction/internal/auctionService"
	handler "delivery-auction/services/auction/handler"

	"github.com/gin-gonic/gin"
)

// SetupRouter configures all Gin routes for the application
func SetupRouter(auctionService *auction.AuctionService) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	auctionHandler := handler.NewAuctionHandler(auctionService)

	bids := router.Group("/bids")
	{
		bids.POST("", auctionHandler.PlaceBidHandler)
	}

	auctions := router.Group("/auctions")
	{
		auctions.GET("", auctionHandler.ListOpenAuctionsHandler)
		auctions.POST("/assign", auctionHandler.ManualAssignHandler)
	}

	drivers := router.Group("/drivers")
	{
		drivers.GET("/:driver_id/bids", auctionHandler.GetBidsByDriverHandler)
	}

	return router
}
