package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/do/v2"
	"github.com/vreid/dareme/internal/pkg/identity"
)

// CallerHeader carries the authenticated caller identity. The gateway in
// front of the service verifies the caller and sets it.
const CallerHeader = "X-Caller-Identity"

type EchoService struct {
	echo *echo.Echo
	port int
}

func NewEchoService(i do.Injector) (*EchoService, error) {
	port := do.MustInvokeNamed[int](i, "port")

	return NewEcho(port), nil
}

func NewEcho(port int) *EchoService {
	e := echo.New()

	e.HideBanner = true
	e.HidePort = false

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${id} ${remote_ip} ${status} ${method} ${path} ${error} ${latency_human} ${bytes_in} ${bytes_out}\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("16M"))

	return &EchoService{
		echo: e,
		port: port,
	}
}

func (s *EchoService) Register(c func(e *echo.Echo)) {
	c(s.echo)
}

func (s *EchoService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *EchoService) Start() error {
	err := s.echo.Start(fmt.Sprintf(":%d", s.port))
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start echo server: %w", err)
	}

	return nil
}

func (s *EchoService) Shutdown(ctx context.Context) error {
	err := s.echo.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("failed to shutdown echo server: %w", err)
	}

	return nil
}

// CallerOf returns the identity the gateway authenticated. The zero
// identity is a placeholder, never a caller.
func CallerOf(c echo.Context) (identity.Key, error) {
	raw := c.Request().Header.Get(CallerHeader)
	if raw == "" {
		return identity.Zero, echo.NewHTTPError(http.StatusUnauthorized, "missing caller identity")
	}

	caller, err := identity.Parse(raw)
	if err != nil || caller.IsZero() {
		return identity.Zero, echo.NewHTTPError(http.StatusUnauthorized, "invalid caller identity")
	}

	return caller, nil
}
