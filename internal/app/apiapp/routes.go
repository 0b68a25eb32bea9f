package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	pgrepo "github.com/dasilvacsv/jadRifas-sub000/internal/repo/postgres"
	adminauthsvc "github.com/dasilvacsv/jadRifas-sub000/internal/services/adminauth"
	drawsvc "github.com/dasilvacsv/jadRifas-sub000/internal/services/draws"
	mediasvc "github.com/dasilvacsv/jadRifas-sub000/internal/services/media"
	purchasesvc "github.com/dasilvacsv/jadRifas-sub000/internal/services/purchases"
	rafflesvc "github.com/dasilvacsv/jadRifas-sub000/internal/services/raffles"
	ratesvc "github.com/dasilvacsv/jadRifas-sub000/internal/services/rate"
	ratessvc "github.com/dasilvacsv/jadRifas-sub000/internal/services/rates"
	referralsvc "github.com/dasilvacsv/jadRifas-sub000/internal/services/referrals"
	ticketsvc "github.com/dasilvacsv/jadRifas-sub000/internal/services/tickets"
	"github.com/dasilvacsv/jadRifas-sub000/internal/transport/http/handlers"
)

type Dependencies struct {
	RaffleService     *rafflesvc.Service
	TicketService     *ticketsvc.Service
	PurchaseService   *purchasesvc.Service
	DrawService       *drawsvc.Service
	ReferralService   *referralsvc.Service
	MediaService      *mediasvc.Service
	RatesService      *ratessvc.Service
	AuthService       *adminauthsvc.Service
	PaymentMethodRepo *pgrepo.PaymentMethodRepo
	ReserveLimiter    *ratesvc.Limiter
	Logger            *zap.Logger
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	raffleHandler := handlers.NewRaffleHandler(deps.RaffleService, deps.MediaService)
	reservationHandler := handlers.NewReservationHandler(deps.TicketService, deps.ReserveLimiter)
	purchaseHandler := handlers.NewPurchaseHandler(deps.PurchaseService, deps.MediaService)
	drawHandler := handlers.NewDrawHandler(deps.DrawService)
	referralHandler := handlers.NewReferralHandler(deps.ReferralService)
	paymentMethodHandler := handlers.NewPaymentMethodHandler(deps.PaymentMethodRepo)
	ratesHandler := handlers.NewRatesHandler(deps.RatesService)
	mediaHandler := handlers.NewMediaHandler(deps.MediaService)
	authHandler := handlers.NewAdminAuthHandler(deps.AuthService)
	authMW := AdminAuthMiddleware(deps.AuthService, deps.Logger)

	r.Get("/healthz", healthHandler.Get)

	r.Get("/raffles", raffleHandler.List)
	r.Get("/raffles/{raffleID}", raffleHandler.Get)
	r.Get("/raffles/{raffleID}/availability", reservationHandler.Availability)
	r.Post("/raffles/{raffleID}/reserve", reservationHandler.Reserve)
	r.Post("/purchases", purchaseHandler.Submit)
	r.Get("/payment-methods", paymentMethodHandler.PublicList)
	r.Get("/rates/display", ratesHandler.Display)

	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", authHandler.Login)
		r.With(authMW).Post("/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(authMW)

			r.Post("/raffles", raffleHandler.Create)
			r.Post("/raffles/{raffleID}/transition", raffleHandler.Transition)
			r.Delete("/raffles/{raffleID}", raffleHandler.Delete)
			r.Post("/raffles/{raffleID}/images", mediaHandler.ImageUpload)
			r.Delete("/raffles/{raffleID}/images/{imageID}", mediaHandler.ImageDelete)
			r.Post("/raffles/{raffleID}/draw", drawHandler.Draw)
			r.Post("/raffles/{raffleID}/lottery", drawHandler.Lottery)

			r.Get("/purchases", purchaseHandler.List)
			r.Get("/purchases/{purchaseID}", purchaseHandler.Get)
			r.Post("/purchases/{purchaseID}/confirm", purchaseHandler.Confirm)
			r.Post("/purchases/{purchaseID}/reject", purchaseHandler.Reject)

			r.Get("/referrals", referralHandler.List)
			r.Post("/referrals", referralHandler.Create)
			r.Get("/referrals/commissions", referralHandler.Commissions)
			r.Delete("/referrals/{code}", referralHandler.Delete)

			r.Get("/payment-methods", paymentMethodHandler.AdminList)
			r.Post("/payment-methods", paymentMethodHandler.Create)
			r.Post("/payment-methods/{methodID}/active", paymentMethodHandler.SetActive)
			r.Delete("/payment-methods/{methodID}", paymentMethodHandler.Delete)
		})
	})
}
