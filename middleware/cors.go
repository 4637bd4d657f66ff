package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowAllOrigins  bool
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultCORSConfig returns the default CORS configuration
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{
			"http://localhost:3000",
			"http://localhost:8080",
			"https://aegis.app",
			"https://www.aegis.app",
		},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders: []string{
			"Origin",
			"Content-Length",
			"Content-Type",
			"Authorization",
			"Accept",
			"Cache-Control",
			"X-Requested-With",
			"X-CSRF-Token",
			"X-Request-ID",
		},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

// ProductionCORSConfig returns a production-safe CORS configuration
func ProductionCORSConfig() CORSConfig {
	config := DefaultCORSConfig()
	config.AllowOrigins = []string{
		"https://aegis.app",
		"https://www.aegis.app",
		"https://app.aegis.app",
	}
	config.MaxAge = 24 * time.Hour
	return config
}

// DevelopmentCORS returns permissive CORS for development
func DevelopmentCORS() gin.HandlerFunc {
	return CORS(CORSConfig{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		ExposeHeaders:    []string{"*"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// CORSMiddleware selects the CORS configuration for the environment
func CORSMiddleware(environment string) gin.HandlerFunc {
	switch environment {
	case "production":
		return CORS(ProductionCORSConfig())
	case "development":
		return DevelopmentCORS()
	default:
		return CORS(DefaultCORSConfig())
	}
}

// CORS returns a CORS middleware with the given configuration
func CORS(config CORSConfig) gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if c.Request.Method == http.MethodOptions {
			handlePreflight(c, config, origin)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		if !isOriginAllowed(config, origin) {
			if origin != "" {
				logrus.Warnf("CORS: origin not allowed: %s", origin)
			}
			c.Next()
			return
		}

		setAllowOrigin(c, config, origin)
		if len(config.ExposeHeaders) > 0 {
			c.Header("Access-Control-Expose-Headers", strings.Join(config.ExposeHeaders, ", "))
		}
		c.Header("Vary", "Origin")

		c.Next()
	})
}

func handlePreflight(c *gin.Context, config CORSConfig, origin string) {
	if !isOriginAllowed(config, origin) {
		logrus.Warnf("CORS: preflight origin not allowed: %s", origin)
		return
	}

	setAllowOrigin(c, config, origin)
	c.Header("Access-Control-Allow-Methods", strings.Join(config.AllowMethods, ", "))
	c.Header("Access-Control-Allow-Headers", strings.Join(config.AllowHeaders, ", "))
	if config.MaxAge > 0 {
		c.Header("Access-Control-Max-Age", strconv.Itoa(int(config.MaxAge.Seconds())))
	}
}

func setAllowOrigin(c *gin.Context, config CORSConfig, origin string) {
	if config.AllowAllOrigins && !config.AllowCredentials {
		c.Header("Access-Control-Allow-Origin", "*")
	} else if origin != "" {
		c.Header("Access-Control-Allow-Origin", origin)
	}
	if config.AllowCredentials {
		c.Header("Access-Control-Allow-Credentials", "true")
	}
}

func isOriginAllowed(config CORSConfig, origin string) bool {
	if config.AllowAllOrigins {
		return true
	}
	if origin == "" {
		return false
	}

	for _, allowed := range config.AllowOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
		// Wildcard subdomains (e.g. *.aegis.app)
		if strings.HasPrefix(allowed, "*.") {
			domain := allowed[2:]
			if strings.HasSuffix(origin, "."+domain) || origin == domain {
				return true
			}
		}
	}

	return false
}
