package webserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/talkincode/plantcatalog/config"
)

// AppContextKey is the echo.Context key holding the application context
const AppContextKey = "appctx"

const apiPrefix = "/api"

type route struct {
	method  string
	path    string
	handler echo.HandlerFunc
	mws     []echo.MiddlewareFunc
}

var (
	routesMu sync.Mutex
	routes   []route
)

func register(method, path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	routesMu.Lock()
	defer routesMu.Unlock()
	routes = append(routes, route{method: method, path: path, handler: h, mws: m})
}

// ApiGET registers a GET handler under /api
func ApiGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	register(http.MethodGet, path, h, m...)
}

// ApiPOST registers a POST handler under /api
func ApiPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	register(http.MethodPost, path, h, m...)
}

// ApiPUT registers a PUT handler under /api
func ApiPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	register(http.MethodPut, path, h, m...)
}

// ApiDELETE registers a DELETE handler under /api
func ApiDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	register(http.MethodDelete, path, h, m...)
}

// Server is the HTTP front of the catalog
type Server struct {
	root *echo.Echo
	api  *echo.Group
	cfg  config.WebConfig
	log  *zap.Logger
}

// New builds the echo instance and mounts every registered api route.
// appCtx is made available to handlers under AppContextKey.
func New(cfg config.WebConfig, appCtx interface{}, log *zap.Logger) *Server {
	if log == nil {
		log = zap.L()
	}
	s := &Server{cfg: cfg, log: log.Named("web")}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsoniterSerializer{}
	e.HTTPErrorHandler = s.errorHandler

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			s.log.Error("handler panic", zap.Error(err), zap.ByteString("stack", stack))
			return err
		},
	}))
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	origins := cfg.CorsOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
	}))
	e.Use(s.requestLogger)
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(AppContextKey, appCtx)
			return next(c)
		}
	})

	s.root = e
	s.api = e.Group(apiPrefix)

	routesMu.Lock()
	for _, r := range routes {
		s.api.Add(r.method, r.path, r.handler, r.mws...)
	}
	routesMu.Unlock()
	return s
}

// Handler exposes the router, mainly for httptest
func (s *Server) Handler() http.Handler {
	return s.root
}

func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}

// Start blocks serving until Shutdown is called
func (s *Server) Start() error {
	s.log.Info("api server listening", zap.String("addr", s.Addr()))
	err := s.root.Start(s.Addr())
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.root.Shutdown(ctx)
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		req := c.Request()
		res := c.Response()
		fields := []zap.Field{
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", res.Status),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
		}
		switch {
		case res.Status >= http.StatusInternalServerError:
			s.log.Error("request", fields...)
		case res.Status >= http.StatusBadRequest:
			s.log.Warn("request", fields...)
		default:
			s.log.Debug("request", fields...)
		}
		return nil
	}
}

// errorHandler renders unhandled errors with the same {error} body the
// api handlers use
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, map[string]string{"error": msg})
	}
	if err != nil {
		s.log.Error("write error response", zap.Error(err))
	}
}
