package routes

import (
	"PathLab/billing"
	"PathLab/cache"
	"PathLab/config"
	"PathLab/counter"
	"PathLab/database"
	"PathLab/repositories"
	"PathLab/services"
	"PathLab/utils"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Container holds the repositories and services shared by the HTTP server
// and the admin commands.
type Container struct {
	Tokens *utils.TokenMaker

	Counters     *counter.Service
	Bookings     repositories.BookingRepository
	Patients     repositories.PatientRepository
	Appointments repositories.AppointmentRepository

	Users          services.UserService
	Labs           *services.LabService
	Roles          *services.RoleService
	Catalogue      *services.CatalogueService
	PatientSvc     *services.PatientService
	AppointmentSvc *services.AppointmentService
	BookingSvc     *services.BookingService
	Registrations  *services.RegistrationService
	Reports        *services.ReportService
	Reporting      *services.ReportingService
}

// NewContainer wires the repositories and services on top of an open
// database and Redis client.
func NewContainer(cfg *config.AppConfig, db *gorm.DB, client *redis.Client, log *zap.Logger) (*Container, error) {
	tokens, err := utils.NewTokenMaker(cfg.SymmetricKey)
	if err != nil {
		return nil, err
	}
	policy, err := billing.ParsePolicy(cfg.NetPayablePolicy)
	if err != nil {
		return nil, err
	}
	store, err := counter.NewStore(cfg.CounterBackend, db, client)
	if err != nil {
		return nil, err
	}
	c, err := cache.NewCache(client, log)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize cache")
	}

	locker := database.NewLocker(client, log)
	counters := counter.NewService(store, log)
	mailer := utils.NewMailer(utils.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		From: cfg.SMTPFrom,
	}, log)

	patientRepo := repositories.NewPatientRepository(db, c)
	appointmentRepo := repositories.NewAppointmentRepository(db)
	bookingRepo := repositories.NewBookingRepository(db, c)
	labRepo := repositories.NewLabRepository(db, c)
	testRepo := repositories.NewTestDefinitionRepository(db, c)
	userRepo := repositories.NewUserRepository(db, c)
	roleRepo := repositories.NewCustomRoleRepository(db)
	registrationRepo := repositories.NewRegistrationRepository(db)
	reportRepo := repositories.NewReportRepository(db)

	catalogue := services.NewCatalogueService(testRepo)
	bookingSvc := services.NewBookingService(services.BookingDeps{
		Bookings:      bookingRepo,
		Patients:      patientRepo,
		Catalogue:     catalogue,
		Registrations: registrationRepo,
		Reports:       reportRepo,
		Labs:          labRepo,
		Counters:      counters,
		Locker:        locker,
		Policy:        policy,
		Log:           log,
	})

	return &Container{
		Tokens:       tokens,
		Counters:     counters,
		Bookings:     bookingRepo,
		Patients:     patientRepo,
		Appointments: appointmentRepo,

		Users:          services.NewUserService(userRepo, roleRepo, labRepo, locker, mailer, utils.NewResetCodes(c), log),
		Labs:           services.NewLabService(labRepo, log),
		Roles:          services.NewRoleService(roleRepo),
		Catalogue:      catalogue,
		PatientSvc:     services.NewPatientService(patientRepo, counters, locker, log),
		AppointmentSvc: services.NewAppointmentService(appointmentRepo, patientRepo, counters, log),
		BookingSvc:     bookingSvc,
		Registrations:  services.NewRegistrationService(registrationRepo, bookingRepo, locker, log),
		Reports:        services.NewReportService(reportRepo, bookingRepo, locker, log),
		Reporting:      services.NewReportingService(bookingRepo),
	}, nil
}
