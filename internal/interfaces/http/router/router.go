package router

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar mounts its routes on a gin group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router mounts resources under /api/<version>
type Router struct {
	engine     *gin.Engine
	apiVersion string
	middleware []gin.HandlerFunc
	registrars []RouteRegistrar
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithAPIVersion sets the version segment of the API prefix
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) { r.apiVersion = version }
}

// WithMiddleware runs middleware on every route of the versioned API
func WithMiddleware(middleware ...gin.HandlerFunc) RouterOption {
	return func(r *Router) { r.middleware = append(r.middleware, middleware...) }
}

// NewRouter creates a Router for engine. The version defaults to v1.
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register queues registrars for Setup
func (r *Router) Register(registrars ...RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrars...)
	return r
}

// BasePath is the prefix every registrar is mounted under
func (r *Router) BasePath() string {
	return "/api/" + r.apiVersion
}

// Setup mounts the queued registrars on the engine
func (r *Router) Setup() {
	api := r.engine.Group(r.BasePath(), r.middleware...)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// Resource collects the routes of one API resource, its middleware (usually
// the permission gate) and nested resources that inherit that middleware.
type Resource struct {
	name       string
	prefix     string
	middleware []gin.HandlerFunc
	routes     []route
	nested     []*Resource
}

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// RouteInfo describes a route of a Resource relative to the API base path
type RouteInfo struct {
	Resource string
	Method   string
	Path     string
}

// NewResource creates a resource mounted at prefix
func NewResource(name, prefix string) *Resource {
	return &Resource{name: name, prefix: prefix}
}

// Use appends middleware run before every route of the resource
func (r *Resource) Use(middleware ...gin.HandlerFunc) *Resource {
	r.middleware = append(r.middleware, middleware...)
	return r
}

// Handle adds a route. handlers run after the resource middleware.
func (r *Resource) Handle(method, path string, handlers ...gin.HandlerFunc) *Resource {
	r.routes = append(r.routes, route{method: method, path: path, handlers: handlers})
	return r
}

func (r *Resource) GET(path string, handlers ...gin.HandlerFunc) *Resource {
	return r.Handle(http.MethodGet, path, handlers...)
}

func (r *Resource) POST(path string, handlers ...gin.HandlerFunc) *Resource {
	return r.Handle(http.MethodPost, path, handlers...)
}

func (r *Resource) PUT(path string, handlers ...gin.HandlerFunc) *Resource {
	return r.Handle(http.MethodPut, path, handlers...)
}

func (r *Resource) PATCH(path string, handlers ...gin.HandlerFunc) *Resource {
	return r.Handle(http.MethodPatch, path, handlers...)
}

func (r *Resource) DELETE(path string, handlers ...gin.HandlerFunc) *Resource {
	return r.Handle(http.MethodDelete, path, handlers...)
}

// Nest adds a resource mounted below this one
func (r *Resource) Nest(name, prefix string) *Resource {
	child := NewResource(name, prefix)
	r.nested = append(r.nested, child)
	return child
}

// RegisterRoutes implements RouteRegistrar
func (r *Resource) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(r.prefix, r.middleware...)
	for _, rt := range r.routes {
		group.Handle(rt.method, rt.path, rt.handlers...)
	}
	for _, child := range r.nested {
		child.RegisterRoutes(group)
	}
}

// Routes lists every route of the resource and its nested resources
func (r *Resource) Routes() []RouteInfo {
	return r.collect("/")
}

func (r *Resource) collect(base string) []RouteInfo {
	base = path.Join(base, r.prefix)
	var out []RouteInfo
	for _, rt := range r.routes {
		p := base
		if rt.path != "" {
			p = path.Join(base, rt.path)
		}
		out = append(out, RouteInfo{Resource: r.name, Method: rt.method, Path: p})
	}
	for _, child := range r.nested {
		out = append(out, child.collect(base)...)
	}
	return out
}

// Name returns the resource name
func (r *Resource) Name() string { return r.name }

// Prefix returns the mount prefix
func (r *Resource) Prefix() string { return r.prefix }
