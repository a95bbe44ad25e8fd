package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ecolix/golang_services/internal/billing_service/adapters/paymentgateway"
	"github.com/ecolix/golang_services/internal/billing_service/domain"
	"github.com/ecolix/golang_services/internal/platform/config"
)

// buildAdapters wires one adapter per provider. Providers whose credentials
// are missing are registered as not configured. callbackTokens may be nil, in
// which case Orange keeps notif_tokens in process.
func buildAdapters(cfg *config.Config, urls paymentgateway.RedirectURLs, client *http.Client, callbackTokens paymentgateway.CallbackTokenStore, logger *slog.Logger) []paymentgateway.Adapter {
	var adapters []paymentgateway.Adapter
	add := func(p domain.Provider, configured bool, build func() paymentgateway.Adapter) {
		if !configured {
			logger.Warn("Payment provider not configured", "provider", p)
			adapters = append(adapters, paymentgateway.NewUnconfiguredAdapter(p))
			return
		}
		adapters = append(adapters, build())
	}

	add(domain.ProviderStripe, cfg.Stripe.StripeSecretKey != "", func() paymentgateway.Adapter {
		return paymentgateway.NewStripeAdapter(paymentgateway.StripeConfig{
			SecretKey:     cfg.Stripe.StripeSecretKey,
			WebhookSecret: cfg.Stripe.StripeWebhookSecret,
			Currency:      cfg.Stripe.StripeCurrency,
			APIURL:        cfg.Stripe.StripeAPIURL,
		}, urls, client, logger)
	})
	add(domain.ProviderWave, cfg.Wave.WaveAPIKey != "", func() paymentgateway.Adapter {
		return paymentgateway.NewWaveAdapter(paymentgateway.WaveConfig{
			APIKey:        cfg.Wave.WaveAPIKey,
			APIURL:        cfg.Wave.WaveAPIURL,
			WebhookSecret: cfg.Wave.WaveWebhookSecret,
		}, urls, client, logger)
	})
	add(domain.ProviderGenius, cfg.Genius.GeniusAPIKey != "" && cfg.Genius.GeniusAPISecret != "", func() paymentgateway.Adapter {
		return paymentgateway.NewGeniusAdapter(paymentgateway.GeniusConfig{
			APIKey:        cfg.Genius.GeniusAPIKey,
			APISecret:     cfg.Genius.GeniusAPISecret,
			APIURL:        cfg.Genius.GeniusAPIURL,
			WebhookSecret: cfg.Genius.GeniusWebhookSecret,
		}, urls, client, logger)
	})
	add(domain.ProviderPayDunya, cfg.PayDunya.PayDunyaMasterKey != "" && cfg.PayDunya.PayDunyaPrivateKey != "" && cfg.PayDunya.PayDunyaToken != "", func() paymentgateway.Adapter {
		return paymentgateway.NewPayDunyaAdapter(paymentgateway.PayDunyaConfig{
			MasterKey:  cfg.PayDunya.PayDunyaMasterKey,
			PrivateKey: cfg.PayDunya.PayDunyaPrivateKey,
			Token:      cfg.PayDunya.PayDunyaToken,
			APIURL:     cfg.PayDunya.PayDunyaAPIURL,
			StoreName:  cfg.PayDunya.PayDunyaStoreName,
		}, urls, client, logger)
	})
	add(domain.ProviderOrange, cfg.Orange.OrangeMerchantKey != "" && cfg.Orange.OrangeAuthToken != "", func() paymentgateway.Adapter {
		orange := paymentgateway.NewOrangeAdapter(paymentgateway.OrangeConfig{
			MerchantKey: cfg.Orange.OrangeMerchantKey,
			AuthToken:   cfg.Orange.OrangeAuthToken,
			APIURL:      cfg.Orange.OrangeAPIURL,
			Currency:    cfg.Orange.OrangeCurrency,
		}, urls, client, logger)
		if callbackTokens != nil {
			orange.WithCallbackTokens(callbackTokens)
		}
		return orange
	})
	add(domain.ProviderMTN, cfg.MTN.MTNAPIUser != "" && cfg.MTN.MTNAPIKey != "" && cfg.MTN.MTNSubscriptionKey != "", func() paymentgateway.Adapter {
		return paymentgateway.NewMTNAdapter(paymentgateway.MTNConfig{
			APIUser:           cfg.MTN.MTNAPIUser,
			APIKey:            cfg.MTN.MTNAPIKey,
			SubscriptionKey:   cfg.MTN.MTNSubscriptionKey,
			APIURL:            cfg.MTN.MTNAPIURL,
			TargetEnvironment: cfg.MTN.MTNTargetEnvironment,
			Currency:          cfg.MTN.MTNCurrency,
		}, urls, client, logger)
	})
	return adapters
}

// idempotencyPendingTTL covers the slowest initiation, a token exchange plus
// the provider call, each bounded by the provider timeout.
func idempotencyPendingTTL(providerTimeout time.Duration) time.Duration {
	if providerTimeout <= 0 {
		providerTimeout = 20 * time.Second
	}
	return 2*providerTimeout + 30*time.Second
}
