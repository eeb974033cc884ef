package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ribotflow/backend/internal/domain/identity"
	"github.com/ribotflow/backend/internal/infrastructure/cache"
	"github.com/ribotflow/backend/internal/infrastructure/logger"
	"github.com/ribotflow/backend/internal/infrastructure/telemetry"
	"github.com/ribotflow/backend/internal/interfaces/http/dto"
	"github.com/ribotflow/backend/internal/interfaces/http/handler"
	"github.com/ribotflow/backend/internal/interfaces/http/middleware"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

const (
	defaultMaxBodySize   = 1 << 20
	defaultMaxUploadSize = 20 << 20
)

// Handlers are the HTTP handlers mounted by NewEngine
type Handlers struct {
	Auth     *handler.AuthHandler
	Tenant   *handler.TenantHandler
	User     *handler.UserHandler
	Contact  *handler.ContactHandler
	Supplier *handler.SupplierHandler
	Quote    *handler.QuoteHandler
	Invoice  *handler.InvoiceHandler
	TaxRate  *handler.TaxRateHandler
	Expense  *handler.ExpenseHandler
	Audio    *handler.AudioHandler
	System   *handler.SystemHandler
	Realtime *handler.RealtimeHandler
}

// Options configures the cross-cutting middleware of the engine. Zero values
// disable the optional pieces.
type Options struct {
	Logger        *zap.Logger
	Metrics       *telemetry.Metrics
	Authenticator middleware.Authenticator

	Idempotency    cache.IdempotencyStore
	APILimiter     *middleware.RateLimiter
	AuthLimiter    *middleware.RateLimiter
	CORS           middleware.CORSConfig
	Security       middleware.SecurityConfig
	Tracing        middleware.TracingConfig
	Profiling      middleware.ProfilingConfig
	Swagger        middleware.SwaggerConfig
	TrustedProxies []string

	MaxBodySize   int64
	MaxUploadSize int64
}

// NewEngine builds the gin engine with every route of the API
func NewEngine(h Handlers, opts Options) (*gin.Engine, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = defaultMaxBodySize
	}
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = defaultMaxUploadSize
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, err
	}
	middleware.SetupValidator()

	if opts.Tracing.Enabled {
		engine.Use(middleware.Tracing(opts.Tracing))
	}
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(opts.Logger),
		logger.Recovery(opts.Logger),
	)
	if opts.Metrics != nil {
		engine.Use(middleware.HTTPMetrics(opts.Metrics))
	}
	engine.Use(middleware.CORSWithConfig(opts.CORS), middleware.SecureWithConfig(opts.Security))

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(dto.ErrCodeNotFound, dto.KindForStatus(http.StatusNotFound), "Route not found", middleware.GetRequestID(c)))
	})

	engine.GET("/health", h.System.Health)
	engine.GET("/ready", h.System.Ready)
	if opts.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}
	engine.GET("/swagger/*any", middleware.SwaggerProtection(opts.Swagger), ginSwagger.WrapHandler(swaggerFiles.Handler))

	b := &routeBuilder{opts: opts}
	NewRouter(engine, WithAPIVersion("v1"), WithMiddleware(b.apiMiddleware()...)).
		Register(
			b.authRoutes(h.Auth),
			b.settingsRoutes(h.Tenant),
			b.userRoutes(h.User),
			b.contactRoutes(h.Contact),
			b.supplierRoutes(h.Supplier),
			b.quoteRoutes(h.Quote),
			b.invoiceRoutes(h.Invoice),
			b.taxRoutes(h.TaxRate),
			b.expenseRoutes(h.Expense),
			b.audioRoutes(h.Audio),
			b.systemRoutes(h.System, h.Realtime),
		).
		Setup()

	return engine, nil
}

type routeBuilder struct {
	opts Options
}

var (
	publicAuthPaths = []string{"/api/v1/auth/login", "/api/v1/auth/refresh"}
	queryTokenPaths = []string{"/api/v1/ws"}
)

func (b *routeBuilder) apiMiddleware() []gin.HandlerFunc {
	chain := []gin.HandlerFunc{
		middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
			Authenticator:   b.opts.Authenticator,
			SkipPaths:       publicAuthPaths,
			QueryTokenPaths: queryTokenPaths,
			Logger:          b.opts.Logger,
		}),
	}
	if b.opts.Tracing.Enabled {
		chain = append(chain, middleware.SpanEnricher())
	}
	if b.opts.Profiling.Enabled {
		chain = append(chain, middleware.Profiling(b.opts.Profiling))
	}
	if b.opts.APILimiter != nil {
		chain = append(chain, middleware.RateLimit(b.opts.APILimiter, middleware.TenantOrIPKey))
	}
	return chain
}

// body caps JSON request bodies and makes POSTs idempotent
func (b *routeBuilder) body() []gin.HandlerFunc {
	return b.limited(b.opts.MaxBodySize)
}

// upload is body for multipart and file routes
func (b *routeBuilder) upload() []gin.HandlerFunc {
	return b.limited(b.opts.MaxUploadSize)
}

func (b *routeBuilder) limited(maxBytes int64) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		middleware.BodyLimit(maxBytes),
		middleware.Idempotency(middleware.IdempotencyConfig{Store: b.opts.Idempotency, Logger: b.opts.Logger}),
	}
}

func with(chain []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	return append(chain, h)
}

func (b *routeBuilder) authRoutes(h *handler.AuthHandler) *Resource {
	g := NewResource("auth", "/auth").Use(middleware.BodyLimit(b.opts.MaxBodySize))
	public := []gin.HandlerFunc{}
	if b.opts.AuthLimiter != nil {
		public = append(public, middleware.RateLimit(b.opts.AuthLimiter, middleware.ClientIPKey))
	}
	g.POST("/login", with(public, h.Login)...)
	g.POST("/refresh", with(public, h.Refresh)...)
	g.POST("/logout", h.Logout)
	g.GET("/me", h.Me)
	g.PUT("/password", h.ChangePassword)
	return g
}

func (b *routeBuilder) settingsRoutes(h *handler.TenantHandler) *Resource {
	g := NewResource("settings", "/settings").
		Use(middleware.RequireResource("settings")).
		Use(b.body()...)
	g.GET("", h.Get)
	g.PUT("", h.Update)
	return g
}

func (b *routeBuilder) userRoutes(h *handler.UserHandler) *Resource {
	g := NewResource("users", "/users").
		Use(middleware.RequirePermission(string(identity.PermUserManage))).
		Use(b.body()...)
	g.POST("", h.Create)
	g.GET("/:id", h.GetByID)
	g.PUT("/:id/role", h.ChangeRole)
	g.POST("/:id/deactivate", h.Deactivate)
	return g
}

func (b *routeBuilder) contactRoutes(h *handler.ContactHandler) *Resource {
	g := NewResource("contacts", "/contacts").
		Use(middleware.RequireResource("contact")).
		Use(b.body()...)
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.GetByID)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	return g
}

func (b *routeBuilder) supplierRoutes(h *handler.SupplierHandler) *Resource {
	g := NewResource("suppliers", "/suppliers").
		Use(middleware.RequireResource("supplier")).
		Use(b.body()...)
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.GetByID)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.GET("/:id/contacts", middleware.RequirePermission(string(identity.PermContactRead)), h.Contacts)
	g.GET("/:id/expenses", middleware.RequirePermission(string(identity.PermExpenseRead)), h.Expenses)
	return g
}

func (b *routeBuilder) quoteRoutes(h *handler.QuoteHandler) *Resource {
	g := NewResource("quotes", "/quotes").
		Use(middleware.RequireResource("quote")).
		Use(b.body()...)
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.GetByID)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/send", h.Send)
	g.GET("/:id/pdf", h.PDF)
	g.POST("/:id/accept", h.Accept)
	g.POST("/:id/decline", h.Decline)
	g.POST("/:id/reopen", h.Reopen)
	g.POST("/:id/convert", middleware.RequirePermission(string(identity.PermInvoiceWrite)), h.Convert)
	return g
}

func (b *routeBuilder) invoiceRoutes(h *handler.InvoiceHandler) *Resource {
	g := NewResource("invoices", "/invoices").
		Use(middleware.RequireResource("invoice")).
		Use(b.body()...)
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.GetByID)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/issue", h.Issue)
	g.POST("/:id/mark-paid", h.MarkPaid)
	g.POST("/:id/cancel", h.Cancel)
	g.POST("/:id/send", h.Send)
	g.GET("/:id/pdf", h.PDF)
	return g
}

// taxRoutes mounts the tax catalog and the totals preview. Anyone who
// prices documents can read the catalog; changing it is a settings write.
func (b *routeBuilder) taxRoutes(h *handler.TaxRateHandler) *Resource {
	pricing := []string{
		string(identity.PermSettingsRead),
		string(identity.PermQuoteRead),
		string(identity.PermInvoiceRead),
	}
	write := middleware.RequirePermission(string(identity.PermSettingsWrite))

	root := NewResource("pricing", "")
	rates := root.Nest("tax-rates", "/tax-rates")
	rates.GET("", middleware.RequireAnyPermission(pricing...), h.List)
	rates.POST("", append([]gin.HandlerFunc{write}, with(b.body(), h.Create)...)...)
	rates.PUT("/:id", append([]gin.HandlerFunc{write}, with(b.body(), h.Update)...)...)
	rates.DELETE("/:id", write, h.Delete)
	rates.POST("/import", append([]gin.HandlerFunc{write}, with(b.upload(), h.Import)...)...)

	totals := root.Nest("totals", "/totals")
	totals.POST("/preview",
		append([]gin.HandlerFunc{middleware.RequireAnyPermission(
			string(identity.PermQuoteWrite),
			string(identity.PermInvoiceWrite),
		)}, with(b.body(), h.PreviewTotals)...)...)
	return root
}

func (b *routeBuilder) expenseRoutes(h *handler.ExpenseHandler) *Resource {
	g := NewResource("expenses", "/expenses").Use(middleware.RequireResource("expense"))
	g.POST("", with(b.body(), h.Create)...)
	g.GET("", h.List)
	g.POST("/extract", with(b.upload(), h.Extract)...)
	g.GET("/:id", h.GetByID)
	g.PUT("/:id", with(b.body(), h.Update)...)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/mark-paid", with(b.body(), h.MarkPaid)...)
	g.POST("/:id/mark-pending", with(b.body(), h.MarkPending)...)
	g.POST("/:id/attachments", with(b.upload(), h.AddAttachment)...)
	g.GET("/:id/attachments", h.ListAttachments)
	g.GET("/:id/attachments/:attachmentId/url", h.AttachmentURL)
	g.DELETE("/:id/attachments/:attachmentId", h.DeleteAttachment)
	return g
}

func (b *routeBuilder) audioRoutes(h *handler.AudioHandler) *Resource {
	g := NewResource("audio", "/audio-jobs").Use(middleware.RequireResource("audio"))
	g.POST("", with(b.upload(), h.Upload)...)
	g.GET("", h.List)
	g.GET("/:id", h.GetByID)
	g.PUT("/:id", with(b.body(), h.Update)...)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/retry", with(b.body(), h.Retry)...)
	g.GET("/:id/audio-url", h.AudioURL)
	return g
}

func (b *routeBuilder) systemRoutes(system *handler.SystemHandler, realtime *handler.RealtimeHandler) *Resource {
	g := NewResource("system", "")
	g.GET("/system/info", system.GetSystemInfo)
	if realtime != nil {
		g.GET("/ws", realtime.Subscribe)
	}
	return g
}
