package bootstrap

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/engiverse/engiverse-backend/internal/auth"
	ingesthttp "github.com/engiverse/engiverse-backend/internal/ingest/http"
	"github.com/engiverse/engiverse-backend/internal/ingest/service"
	projectshttp "github.com/engiverse/engiverse-backend/internal/projects/http"
	"github.com/engiverse/engiverse-backend/internal/projects/repository"
	"github.com/engiverse/engiverse-backend/internal/storage"
)

// RouterDeps carries the explicitly constructed service handles the HTTP
// surface is wired from.
type RouterDeps struct {
	Version      string
	CORSOrigin   string
	Users        *auth.Repo
	Tokens       *auth.TokenManager
	Orchestrator *service.Orchestrator
	Projects     *repository.Repo
	Objects      *storage.ObjectStore
	AnonUserID   int64
	MaxUploadMB  int
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(), gin.Recovery())
	r.MaxMultipartMemory = int64(dep.MaxUploadMB) << 20

	corsCfg := cors.DefaultConfig()
	if dep.CORSOrigin == "" || dep.CORSOrigin == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{dep.CORSOrigin}
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	r.Use(cors.New(corsCfg))

	start := time.Now()
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ok":      true,
			"version": dep.Version,
			"uptime":  time.Since(start).Seconds(),
		})
	})

	api := r.Group("/api")

	authHandler := auth.NewHandler(dep.Users, dep.Tokens)
	authHandler.Register(api.Group("/auth"))

	// Token parsing is optional group-wide; handlers that need an identity
	// enforce it themselves (S3 imports fall back to the anonymous user).
	api.Use(auth.Middleware(dep.Tokens, dep.Users, false))

	projectsGroup := api.Group("/projects")
	projectshttp.New(dep.Projects).Register(projectsGroup)

	ingestHandler := ingesthttp.New(dep.Orchestrator, dep.Objects, dep.AnonUserID, dep.MaxUploadMB)
	ingestHandler.Register(projectsGroup, api.Group("/ingestions"))

	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()

		if len(c.Errors) != 0 {
			log.Error().Err(c.Errors.Last().Err).Msg("")
		}
		log.Debug().
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(startTime)).
			Str("ip", c.ClientIP()).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("")
	}
}
