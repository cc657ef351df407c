package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/cargoline/api/internal/domain"
	"github.com/cargoline/api/internal/payments"
	"github.com/cargoline/api/internal/platform/config"
	"github.com/cargoline/api/internal/repositories"
	"github.com/cargoline/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	RateCards     services.RateCardService
	Resolver      services.SettlementResolver
	Counters      services.CounterService
	Bookings      services.BookingService
	Quotes        services.QuoteService
	Notifications services.NotificationService
	System        services.SystemService
}

// Externals carries the collaborators built outside the repository registry:
// the PSP manager, the event publisher, the image store, and build metadata.
type Externals struct {
	PSP         *payments.Manager
	Events      services.BookingEventPublisher
	Images      services.QuoteImageStore
	Logger      func(context.Context, string, map[string]any)
	Version     string
	Environment string
}

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the runtime dependencies. Production wiring provides real
// implementations, while tests can supply in-memory registries.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, ext Externals) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	svc, err := buildServices(ctx, cfg, reg, ext)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients, background workers, or caches.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(ctx context.Context, cfg config.Config, reg repositories.Registry, ext Externals) (Services, error) {
	var svc Services
	if reg == nil {
		return svc, nil
	}

	if cardsRepo := reg.RateCards(); cardsRepo != nil {
		rateCardSvc, err := services.NewRateCardService(services.RateCardServiceDeps{
			Cards:    cardsRepo,
			Defaults: defaultRateCard(cfg.Pricing),
			Now:      time.Now,
			Logger:   ext.Logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build rate card service: %w", err)
		}
		svc.RateCards = rateCardSvc
	}

	resolver, err := services.NewSettlementResolver(services.SettlementResolverConfig{
		CollectionDiscountPerUnit: cfg.Pricing.CollectionDiscountPerUnit,
		ArrivalPremiumPercent:     cfg.Settlement.ArrivalPremiumPercent,
		TermsDays:                 cfg.Settlement.TermsDays,
		MismatchTolerance:         cfg.Settlement.MismatchTolerance,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build settlement resolver: %w", err)
	}
	svc.Resolver = resolver

	if counterRepo := reg.Counters(); counterRepo != nil {
		counterSvc, err := services.NewCounterService(services.CounterServiceDeps{
			Repository: counterRepo,
			Clock:      time.Now,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build counter service: %w", err)
		}
		svc.Counters = counterSvc
	}

	if notificationRepo := reg.Notifications(); notificationRepo != nil {
		notificationSvc, err := services.NewNotificationService(services.NotificationServiceDeps{
			Notifications:      notificationRepo,
			AdminPlaceholderID: cfg.Notifications.AdminPlaceholderID,
			Clock:              time.Now,
			Logger:             ext.Logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build notification service: %w", err)
		}
		svc.Notifications = notificationSvc
	}

	if shipmentRepo := reg.Shipments(); shipmentRepo != nil && svc.RateCards != nil && svc.Counters != nil {
		bookingSvc, err := services.NewBookingService(services.BookingServiceDeps{
			Shipments:     shipmentRepo,
			Payments:      reg.Payments(),
			Receipts:      reg.Receipts(),
			SagaLog:       reg.SagaLog(),
			Counters:      svc.Counters,
			Pricing:       svc.RateCards,
			Resolver:      svc.Resolver,
			PSP:           ext.PSP,
			Notifications: svc.Notifications,
			Events:        ext.Events,
			Clock:         time.Now,
			Logger:        ext.Logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build booking service: %w", err)
		}
		svc.Bookings = bookingSvc
	}

	if quoteRepo := reg.Quotes(); quoteRepo != nil && svc.Counters != nil {
		quoteSvc, err := services.NewQuoteService(services.QuoteServiceDeps{
			Quotes:    quoteRepo,
			Shipments: reg.Shipments(),
			Payments:  reg.Payments(),
			Receipts:  reg.Receipts(),
			SagaLog:   reg.SagaLog(),
			Counters:  svc.Counters,
			PSP:       ext.PSP,
			Images:    ext.Images,
			Clock:     time.Now,
			Logger:    ext.Logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build quote service: %w", err)
		}
		svc.Quotes = quoteSvc
	}

	if healthRepo := reg.Health(); healthRepo != nil {
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			Health:      healthRepo,
			Version:     ext.Version,
			Environment: ext.Environment,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	return svc, nil
}

func defaultRateCard(pricing config.PricingConfig) domain.RateCard {
	return domain.RateCard{
		ID:       services.DefaultRateCardID,
		Currency: domain.CurrencyGBP,
		DrumTiers: []domain.RateTier{
			{MinQuantity: 1, UnitPrice: pricing.DrumTierSingle},
			{MinQuantity: 2, UnitPrice: pricing.DrumTierTwoToFour},
			{MinQuantity: 5, UnitPrice: pricing.DrumTierFivePlus},
		},
		PerKgRate:     pricing.PerKgRate,
		MinimumCharge: pricing.MinimumCharge,
		DoorToDoorFee: pricing.DoorToDoorFee,
		SealFee:       pricing.SealFee,
	}
}
