package middleware

import (
	"github.com/gin-gonic/gin"

	"tabletrack.dev/app/internal/shared/apperr"
)

// Authentication lives in another subsystem; by the time a request reaches
// this core an upstream proxy has already validated the session and set
// these headers. The middleware only lifts them into the gin context.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"

	CtxKeyUserID  = "user_id"
	CtxKeyIsAdmin = "is_admin"

	RoleAdmin = "admin"
)

func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetHeader(HeaderUserID)
		if uid == "" {
			Fail(c, apperr.UnauthorizedErr("Sign in required."))
			return
		}
		c.Set(CtxKeyUserID, uid)
		c.Set(CtxKeyIsAdmin, c.GetHeader(HeaderUserRole) == RoleAdmin)
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetHeader(HeaderUserID)
		if uid == "" {
			Fail(c, apperr.UnauthorizedErr("Sign in required."))
			return
		}
		if c.GetHeader(HeaderUserRole) != RoleAdmin {
			Fail(c, apperr.ForbiddenErr("Admin access required."))
			return
		}
		c.Set(CtxKeyUserID, uid)
		c.Set(CtxKeyIsAdmin, true)
		c.Next()
	}
}

func CurrentUserID(c *gin.Context) string {
	if v, ok := c.Get(CtxKeyUserID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func IsAdmin(c *gin.Context) bool {
	if v, ok := c.Get(CtxKeyIsAdmin); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}
