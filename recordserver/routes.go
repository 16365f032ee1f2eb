package recordserver

// Route path constants
const (
	RouteHealth     = "/healthz"
	RouteMetrics    = "/metrics"
	RouteCollection = "/{collection}"
	RouteRecord     = "/{collection}/{id}"
	RouteAny        = "/{path...}"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	s.RegisterRouteHandler("GET "+RouteMetrics, s.metrics.handler())

	s.RegisterRouteFunc("GET "+RouteCollection, ChainMiddleware(s.ListHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteCollection, ChainMiddleware(s.CreateHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteRecord, ChainMiddleware(s.GetHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("PUT "+RouteRecord, ChainMiddleware(s.ReplaceHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("PATCH "+RouteRecord, ChainMiddleware(s.MergeHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("DELETE "+RouteRecord, ChainMiddleware(s.DeleteHandler(), s.APIMiddleware()...))

	// Preflight requests are answered by the CORS middleware
	s.RegisterRouteFunc("OPTIONS "+RouteAny, ChainMiddleware(s.NoContentHandler(), s.APIMiddleware()...))
}
