package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/physio-agenda/internal/application"
	"github.com/example/physio-agenda/internal/calendar"
	"github.com/example/physio-agenda/internal/metrics"
	"github.com/example/physio-agenda/internal/recurrence"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// PackageServiceDeps captures dependencies for constructing a session package service.
type PackageServiceDeps struct {
	Store       application.PackageStore
	MaxDays     int
	Metrics     *metrics.AgendaMetrics
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewSessionPackageService builds a session package service using the supplied
// dependencies combined with the factory defaults.
func (f *ServiceFactory) NewSessionPackageService(deps PackageServiceDeps) *application.SessionPackageService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewSessionPackageServiceWithLogger(
		deps.Store,
		recurrence.NewEngine(deps.MaxDays),
		deps.Metrics,
		idGen,
		now,
		deps.Logger,
	)
}

// AgendaServiceDeps captures dependencies for constructing an agenda service.
type AgendaServiceDeps struct {
	Source     application.AppointmentSource
	Aggregator *calendar.Aggregator
	Metrics    *metrics.AgendaMetrics
	Now        func() time.Time
	Logger     *slog.Logger
}

// NewAgendaService builds an agenda service. A nil Aggregator uses the default hours.
func (f *ServiceFactory) NewAgendaService(deps AgendaServiceDeps) *application.AgendaService {
	aggregator := calendar.DefaultAggregator
	if deps.Aggregator != nil {
		aggregator = *deps.Aggregator
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewAgendaServiceWithLogger(deps.Source, aggregator, deps.Metrics, now, deps.Logger)
}

// AppointmentServiceDeps captures dependencies for constructing an appointment service.
type AppointmentServiceDeps struct {
	Store  application.AppointmentStore
	Source application.AppointmentSource
	Now    func() time.Time
	Logger *slog.Logger
}

// NewAppointmentService builds an appointment service using the supplied dependencies.
func (f *ServiceFactory) NewAppointmentService(deps AppointmentServiceDeps) *application.AppointmentService {
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewAppointmentServiceWithLogger(deps.Store, deps.Source, now, deps.Logger)
}
