package handler

import (
	"payment-aggregator/internal/adapter/http/middleware"
	redisStore "payment-aggregator/internal/adapter/storage/redis"
	"payment-aggregator/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds everything the router needs.
type RouterDeps struct {
	Log zerolog.Logger

	AuthHandler     *AuthHandler
	PayinHandler    *PayinHandler
	PayoutHandler   *PayoutHandler
	WalletHandler   *WalletHandler
	MerchantHandler *MerchantHandler
	CallbackHandler *CallbackHandler

	TokenService ports.TokenService

	// RateLimitStore may be nil; rate limiting is then disabled.
	RateLimitStore *redisStore.RateLimitStore
	RateLimitRules map[string]middleware.RateLimitRule

	HealthCheckers []ports.HealthChecker
}

// SetupRouter wires all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(middleware.Recovery(deps.Log))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Log))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MiB

	// rl returns a rate limiter for a group, or a noop when disabled.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := deps.RateLimitRules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Log)
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Provider callbacks are authenticated by provider-specific means
	// (upibridge hash), not by merchant JWT.
	callbacks := r.Group("/callback", rl("callback"))
	{
		callbacks.POST("/testpay/payin", deps.CallbackHandler.TestPayPayin)
		callbacks.POST("/testpay/payout", deps.CallbackHandler.TestPayPayout)
		callbacks.POST("/fintech/payin", deps.CallbackHandler.FintechPayin)
		callbacks.POST("/fintech/payout", deps.CallbackHandler.FintechPayout)
		callbacks.POST("/upibridge", deps.CallbackHandler.UPIBridge)
	}

	v1 := r.Group("/api/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), deps.AuthHandler.Register)
		auth.POST("/login", rl("auth_login"), deps.AuthHandler.Login)
	}

	authed := v1.Group("", middleware.JWTAuth(deps.TokenService))
	{
		authed.POST("/payin", rl("payin"), deps.PayinHandler.Generate)
		authed.GET("/payin/:txn_id", deps.PayinHandler.Status)

		authed.POST("/payout", rl("payout"), deps.PayoutHandler.Generate)
		authed.GET("/payout/:txn_id", deps.PayoutHandler.Status)

		authed.GET("/wallet", deps.WalletHandler.GetWallet)
		authed.POST("/wallet/transfer", rl("payout"), deps.WalletHandler.Transfer)
		authed.POST("/wallet/settlement", rl("payout"), deps.WalletHandler.BankSettlement)

		authed.GET("/ledger", deps.WalletHandler.ListLedger)
		authed.GET("/transactions", deps.WalletHandler.ListTransactions)

		merchant := authed.Group("/merchant", rl("merchant"))
		{
			merchant.GET("/me", deps.MerchantHandler.GetProfile)
			merchant.PUT("/me/providers", deps.MerchantHandler.SwitchProviders)
			merchant.PUT("/me/callback-urls", deps.MerchantHandler.UpdateCallbackURLs)
		}
	}

	return r
}
