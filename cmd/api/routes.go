package main

import (
	"log/slog"
	"net/http"

	"bondbridge/internal/auth"
	"bondbridge/internal/gate"
	"bondbridge/internal/httpapi"
	"bondbridge/internal/policy"
	"bondbridge/pkg/logger"

	"github.com/gin-gonic/gin"
)

type routerDeps struct {
	Log      *slog.Logger
	Gate     *gate.Gate
	Codec    *auth.Codec
	Policies *policy.Engine
	Handlers httpapi.Handlers
}

// newRouter builds the engine. Order matters: recovery, request logging, then the
// gate, so nothing behind it (token verification, stores, handlers) runs for a
// request without the gate header.
func newRouter(d routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(httpapi.Recovery(d.Handlers.Faults))
	r.Use(logger.Middleware(d.Log))
	r.Use(d.Gate.Middleware())
	registerRoutes(r, d.Handlers, auth.RequireAccessToken(d.Codec), d.Policies)
	return r
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, bearer gin.HandlerFunc, p *policy.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Session endpoints. Sign-in and refresh carry no bearer token.
	r.POST("/signin", h.SignIn)
	r.POST("/refreshtoken", h.RefreshToken)
	r.POST("/signout", bearer, p.Require(policy.CommonUser), h.SignOut)

	api := r.Group("/api")
	api.Use(bearer)

	users := api.Group("/usermanager")
	{
		users.GET("/ensurecreated", p.Require(policy.Admin), h.EnsureCreated)
		users.GET("/getusers", p.Require(policy.CommonUser), h.GetUsers)
		users.POST("/addrole", p.Require(policy.Admin), h.AddRole)
		users.POST("/adduser", p.Require(policy.AppAccess), h.AddUser)
		users.POST("/addroletouser", p.Require(policy.Admin), h.AddRoleToUser)
		users.POST("/removerolefromuser", p.Require(policy.Admin), h.RemoveRoleFromUser)
		users.POST("/deleteuser", p.Require(policy.Admin), h.DeleteUser)
		users.POST("/deleterole", p.Require(policy.Admin), h.DeleteRole)
	}

	api.GET("/group/groupsbyuserid/:userId", p.Require(policy.CommonUser), h.GroupsByUserID)
	api.GET("/log/latest", p.Require(policy.Admin), h.LatestLogs)
}
