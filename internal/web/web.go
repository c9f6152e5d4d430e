// Package web serves the links sent in verification and password reset
// emails.
package web

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"remindo/internal/authflow"
	"remindo/internal/logging"
	"remindo/internal/service"
)

const mod = "web"

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 5 * time.Second

const (
	msgVerified        = "Your email has been verified. You can now log in."
	msgPasswordChanged = "Your password has been changed. You can now log in with your new password."
)

var resetPage = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<head><title>Reset your password</title></head>
<body>
<h1>Reset your password</h1>
{{if .Message}}<p>{{.Message}}</p>{{end}}
<form method="post" action="/reset">
<input type="hidden" name="code" value="{{.Code}}">
<input type="password" name="password" placeholder="New password">
<button type="submit">Save</button>
</form>
</body>
</html>
`))

type handler struct {
	actions service.ActionCodes
	log     zerolog.Logger
}

// NewRouter builds the HTTP handler for the action links.
func NewRouter(actions service.ActionCodes) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	h := &handler{actions: actions, log: logging.For(mod)}
	router := gin.New()
	router.Use(requestLogger(h.log))
	router.Use(gin.Recovery())
	router.SetHTMLTemplate(resetPage)

	router.GET("/verify", h.verify)
	router.GET("/reset", h.resetForm)
	router.POST("/reset", h.reset)
	return router
}

func (h *handler) verify(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.String(http.StatusBadRequest, authflow.MsgInvalidLink)
		return
	}
	if err := h.actions.ApplyVerification(c.Request.Context(), code); err != nil {
		h.fail(c, err)
		return
	}
	c.String(http.StatusOK, msgVerified)
}

func (h *handler) resetForm(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.String(http.StatusBadRequest, authflow.MsgInvalidLink)
		return
	}
	c.HTML(http.StatusOK, "reset", gin.H{"Code": code})
}

func (h *handler) reset(c *gin.Context) {
	code := c.PostForm("code")
	password := c.PostForm("password")
	if code == "" {
		c.String(http.StatusBadRequest, authflow.MsgInvalidLink)
		return
	}
	if !authflow.ValidPassword(password) {
		c.HTML(http.StatusBadRequest, "reset", gin.H{"Code": code, "Message": authflow.MsgWeakPassword})
		return
	}
	if err := h.actions.ConfirmPasswordReset(c.Request.Context(), code, password); err != nil {
		h.fail(c, err)
		return
	}
	c.String(http.StatusOK, msgPasswordChanged)
}

func (h *handler) fail(c *gin.Context, err error) {
	switch service.AuthCode(err) {
	case service.CodeInvalidActionCode, service.CodeUserNotFound:
		c.String(http.StatusBadRequest, authflow.MsgInvalidLink)
	case service.CodeWeakPassword:
		c.String(http.StatusBadRequest, authflow.MsgWeakPassword)
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Send()
		c.String(http.StatusInternalServerError, authflow.MsgGeneric)
	}
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		startTime := time.Now()
		ctx.Next()
		log.
			Info().
			Int("code", ctx.Writer.Status()).
			Str("method", ctx.Request.Method).
			Str("path", ctx.Request.URL.Path).
			TimeDiff("latency", time.Now(), startTime).
			Send()
	}
}

// Serve runs handler on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	log := logging.For(mod)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("shutdown")
	return nil
}
