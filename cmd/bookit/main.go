package main

import (
	"bookit/internal/bookings/events"
	bookinghandler "bookit/internal/bookings/handler"
	bookingrepo "bookit/internal/bookings/repository"
	bookingsvc "bookit/internal/bookings/service"
	"bookit/internal/bookings/validator"
	exphandler "bookit/internal/experiences/handler"
	exprepo "bookit/internal/experiences/repository"
	expsvc "bookit/internal/experiences/service"
	promohandler "bookit/internal/promo/handler"
	promosvc "bookit/internal/promo/service"
	"bookit/pkg/app"
	"bookit/pkg/config"
	"bookit/pkg/kafka"
	kafka_config "bookit/pkg/kafka/config"
)

const ServiceName = "bookit"

func main() {
	cfg := config.Load(ServiceName)

	// Log all configuration values
	cfg.LogConfiguration()

	cfg.Log.Info("Starting BookIt service")
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	publisher := initPublisher(cfg)
	promoService := promosvc.NewPromoService(promosvc.NewRegistry(cfg.PromoCodes))
	experienceService, reservationService := initExperienceServices(cfg)
	bookingService := initBookingService(cfg, experienceService, reservationService, promoService, publisher)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		exphandler.NewExperienceHandler(experienceService, cfg.Log),
		bookinghandler.NewBookingHandler(bookingService, cfg.Log),
		promohandler.NewPromoHandler(promoService, cfg.Log),
	)
	serverApp.Run()
}

func initPublisher(cfg *config.Config) events.Publisher {
	if !cfg.BookingEventsEnabled {
		cfg.Log.Info("Booking event publishing disabled")
		return events.NoopPublisher{}
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}

	producer, err := kafka.NewProducer(kafkaCfg, cfg.BookingEventsTopic, cfg.BookingEventsDLQ)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}

	cfg.Log.Info("Booking event publisher initialized",
		"topic", cfg.BookingEventsTopic,
		"dlq_topic", cfg.BookingEventsDLQ,
	)
	return events.NewKafkaPublisher(producer, cfg.Log)
}

func initExperienceServices(cfg *config.Config) (expsvc.ExperienceService, expsvc.ReservationService) {
	experienceRepo := exprepo.NewMongoExperienceRepository(cfg)
	experienceService := expsvc.NewExperienceService(experienceRepo, cfg)
	reservationService := expsvc.NewReservationService(experienceRepo, cfg)

	cfg.Log.Info("Experience services initialized", "database", cfg.MongoDatabaseName)
	return experienceService, reservationService
}

func initBookingService(
	cfg *config.Config,
	experienceService expsvc.ExperienceService,
	reservationService expsvc.ReservationService,
	promoService promosvc.PromoService,
	publisher events.Publisher,
) bookingsvc.BookingService {
	bookingRepo := bookingrepo.NewMongoBookingRepository(cfg)
	bookingService := bookingsvc.NewBookingService(
		bookingRepo,
		experienceService,
		reservationService,
		promoService,
		validator.NewBookingValidator(),
		publisher,
		cfg,
	)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService
}
