package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/vta/internal/middleware"
)

type RouterDeps struct {
	QA        *QAHandler
	JWTSecret []byte
}

func RegisterRoutes(root *gin.RouterGroup, deps RouterDeps) {
	root.GET("/", Health)

	api := root.Group("")
	api.Use(middleware.JWTAuth(deps.JWTSecret))
	api.POST("/api", deps.QA.Ask)
}
