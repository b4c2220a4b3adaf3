package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"PathLab/counter"
	"PathLab/database"
	"PathLab/models"
	"PathLab/repositories"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errStore = errors.New("store unavailable")

type fakePatientRepo struct {
	mu       sync.Mutex
	patients map[string]models.Patient
}

func newFakePatientRepo() *fakePatientRepo {
	return &fakePatientRepo{patients: map[string]models.Patient{}}
}

func (r *fakePatientRepo) Create(_ context.Context, p *models.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.patients {
		if existing.LabID == p.LabID && existing.PatientID == p.PatientID {
			return repositories.ErrDuplicate
		}
	}
	r.patients[p.ID] = *p
	return nil
}

func (r *fakePatientRepo) GetByID(_ context.Context, labID, id string) (*models.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok || p.LabID != labID {
		return nil, nil
	}
	return &p, nil
}

func (r *fakePatientRepo) List(_ context.Context, labID string, limit, offset int) ([]models.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Patient
	for _, p := range r.patients {
		if p.LabID == labID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PatientID < out[j].PatientID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakePatientRepo) Search(_ context.Context, labID, query string) ([]models.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Patient
	q := strings.ToLower(query)
	for _, p := range r.patients {
		if p.LabID == labID && (strings.Contains(strings.ToLower(p.FullName()), q) || strings.Contains(p.Phone, q)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePatientRepo) FindDuplicate(_ context.Context, labID, first, last, phone string) (*models.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.patients {
		if p.LabID == labID && strings.EqualFold(p.FirstName, first) && strings.EqualFold(p.LastName, last) && p.Phone == phone {
			return &p, nil
		}
	}
	return nil, nil
}

func (r *fakePatientRepo) Update(_ context.Context, p *models.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing := r.patients[p.ID]
	updated := *p
	updated.PatientID = existing.PatientID
	r.patients[p.ID] = updated
	return nil
}

func (r *fakePatientRepo) MaxPatientID(_ context.Context, labID, prefix string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := ""
	for _, p := range r.patients {
		if p.LabID == labID && strings.HasPrefix(p.PatientID, prefix) && p.PatientID > max {
			max = p.PatientID
		}
	}
	return max, nil
}

type fakeTestRepo struct {
	mu    sync.Mutex
	tests map[string]models.TestDefinition
}

func newFakeTestRepo() *fakeTestRepo {
	return &fakeTestRepo{tests: map[string]models.TestDefinition{}}
}

func (r *fakeTestRepo) Create(_ context.Context, t *models.TestDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.tests {
		if existing.LabID == t.LabID && existing.Name == t.Name {
			return repositories.ErrDuplicate
		}
	}
	r.tests[t.ID] = *t
	return nil
}

func (r *fakeTestRepo) GetByID(_ context.Context, labID, id string) (*models.TestDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tests[id]
	if !ok || t.LabID != labID {
		return nil, nil
	}
	return &t, nil
}

func (r *fakeTestRepo) GetByIDs(_ context.Context, labID string, ids []string) ([]models.TestDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.TestDefinition
	for _, id := range ids {
		if t, ok := r.tests[id]; ok && t.LabID == labID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTestRepo) List(_ context.Context, labID string, includeInactive bool) ([]models.TestDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.TestDefinition
	for _, t := range r.tests {
		if t.LabID == labID && (includeInactive || t.IsActive) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeTestRepo) Update(_ context.Context, t *models.TestDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tests[t.ID] = *t
	return nil
}

func (r *fakeTestRepo) SetActive(_ context.Context, labID, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.tests[id]
	t.IsActive = active
	r.tests[id] = t
	return nil
}

type fakeBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]models.PathologyBooking
	saves    int

	// One-shot hooks run inside Update, after the row is read and just
	// before a changed row is written.
	afterLoad  func()
	beforeSave func()
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: map[string]models.PathologyBooking{}}
}

// cloneBooking copies the JSON columns so callers cannot alias stored rows.
func cloneBooking(b models.PathologyBooking) models.PathologyBooking {
	b.BookedTests = append(b.BookedTests[:0:0], b.BookedTests...)
	b.Payment.History = append(b.Payment.History[:0:0], b.Payment.History...)
	b.EditHistory = append(b.EditHistory[:0:0], b.EditHistory...)
	return b
}

func (r *fakeBookingRepo) Create(_ context.Context, b *models.PathologyBooking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.bookings {
		if existing.LabID == b.LabID && existing.ReceiptNumber == b.ReceiptNumber {
			return repositories.ErrDuplicate
		}
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	r.bookings[b.ID] = cloneBooking(*b)
	return nil
}

func (r *fakeBookingRepo) GetByID(_ context.Context, labID, id string) (*models.PathologyBooking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok || b.LabID != labID {
		return nil, nil
	}
	b = cloneBooking(b)
	return &b, nil
}

func (r *fakeBookingRepo) GetByReceipt(_ context.Context, labID string, receiptNumber int64) (*models.PathologyBooking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.LabID == labID && b.ReceiptNumber == receiptNumber {
			b = cloneBooking(b)
			return &b, nil
		}
	}
	return nil, nil
}

func (r *fakeBookingRepo) List(_ context.Context, labID string, from, to time.Time) ([]models.PathologyBooking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PathologyBooking
	for _, b := range r.bookings {
		if b.LabID == labID && !b.CreatedAt.Before(from) && b.CreatedAt.Before(to) {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReceiptNumber < out[j].ReceiptNumber })
	return out, nil
}

func (r *fakeBookingRepo) Update(ctx context.Context, labID, id string, fn func(*models.PathologyBooking) (bool, error)) (*models.PathologyBooking, error) {
	b, _ := r.GetByID(ctx, labID, id)
	if b == nil {
		return nil, nil
	}
	r.fire(&r.afterLoad)
	changed, err := fn(b)
	if err != nil {
		return nil, err
	}
	if !changed {
		return b, nil
	}
	r.fire(&r.beforeSave)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	r.bookings[b.ID] = cloneBooking(*b)
	return b, nil
}

func (r *fakeBookingRepo) fire(hook *func()) {
	r.mu.Lock()
	fn := *hook
	*hook = nil
	r.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (r *fakeBookingRepo) MaxReceiptNumber(_ context.Context, labID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var max int64
	for _, b := range r.bookings {
		if b.LabID == labID && b.ReceiptNumber > max {
			max = b.ReceiptNumber
		}
	}
	return max, nil
}

type fakeRegistrationRepo struct {
	mu            sync.Mutex
	registrations map[int64]models.PathologyRegistration
}

func newFakeRegistrationRepo() *fakeRegistrationRepo {
	return &fakeRegistrationRepo{registrations: map[int64]models.PathologyRegistration{}}
}

func (r *fakeRegistrationRepo) Create(_ context.Context, reg *models.PathologyRegistration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.registrations[reg.ReceiptNumber]; ok {
		return repositories.ErrDuplicate
	}
	reg.ID = int64(len(r.registrations) + 1)
	r.registrations[reg.ReceiptNumber] = *reg
	return nil
}

func (r *fakeRegistrationRepo) GetByReceipt(_ context.Context, labID string, receiptNumber int64) (*models.PathologyRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.registrations[receiptNumber]
	if !ok || reg.LabID != labID {
		return nil, nil
	}
	return &reg, nil
}

func (r *fakeRegistrationRepo) SetEditAllowed(_ context.Context, labID string, receiptNumber int64, allowed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg := r.registrations[receiptNumber]
	reg.EditAllowed = allowed
	r.registrations[receiptNumber] = reg
	return nil
}

type fakeReportRepo struct {
	mu      sync.Mutex
	reports map[int64]models.PathologyReport
	creates int
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{reports: map[int64]models.PathologyReport{}}
}

func (r *fakeReportRepo) Create(_ context.Context, report *models.PathologyReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if _, ok := r.reports[report.ReceiptNumber]; ok {
		return repositories.ErrDuplicate
	}
	report.ID = int64(len(r.reports) + 1)
	r.reports[report.ReceiptNumber] = *report
	return nil
}

func (r *fakeReportRepo) GetByReceipt(_ context.Context, labID string, receiptNumber int64) (*models.PathologyReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	report, ok := r.reports[receiptNumber]
	if !ok || report.LabID != labID {
		return nil, nil
	}
	return &report, nil
}

func (r *fakeReportRepo) Exists(_ context.Context, labID string, receiptNumber int64) (bool, error) {
	report, err := r.GetByReceipt(context.Background(), labID, receiptNumber)
	return report != nil, err
}

type fakeLabRepo struct {
	mu   sync.Mutex
	labs map[string]models.Lab
}

func newFakeLabRepo() *fakeLabRepo {
	return &fakeLabRepo{labs: map[string]models.Lab{}}
}

func (r *fakeLabRepo) Create(_ context.Context, lab *models.Lab) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.labs {
		if existing.Code == lab.Code {
			return repositories.ErrDuplicate
		}
	}
	r.labs[lab.ID] = *lab
	return nil
}

func (r *fakeLabRepo) GetByID(_ context.Context, id string) (*models.Lab, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lab, ok := r.labs[id]
	if !ok {
		return nil, nil
	}
	return &lab, nil
}

func (r *fakeLabRepo) List(_ context.Context) ([]models.Lab, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Lab
	for _, lab := range r.labs {
		out = append(out, lab)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeLabRepo) Update(_ context.Context, lab *models.Lab) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.labs[lab.ID] = *lab
	return nil
}

func (r *fakeLabRepo) SetActive(_ context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	lab := r.labs[id]
	lab.IsActive = active
	r.labs[id] = lab
	return nil
}

type failingStore struct{}

func (failingStore) Increment(context.Context, string) (int64, error) { return 0, errStore }
func (failingStore) RaiseTo(context.Context, string, int64) (int64, error) {
	return 0, errStore
}
func (failingStore) Current(context.Context, string) (int64, error) { return 0, errStore }

func counterThatFails() *counter.Service {
	return counter.NewService(failingStore{}, zap.NewNop())
}

type fakeAppointmentRepo struct {
	mu           sync.Mutex
	appointments map[string]models.Appointment
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{appointments: map[string]models.Appointment{}}
}

func (r *fakeAppointmentRepo) Create(_ context.Context, a *models.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appointments[a.ID] = *a
	return nil
}

func (r *fakeAppointmentRepo) GetByID(_ context.Context, labID, id string) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok || a.LabID != labID {
		return nil, nil
	}
	return &a, nil
}

func (r *fakeAppointmentRepo) ListByPatient(_ context.Context, labID, patientID string) ([]models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Appointment
	for _, a := range r.appointments {
		if a.LabID == labID && a.PatientID == patientID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAppointmentRepo) ListByDay(_ context.Context, labID string, day time.Time) ([]models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Appointment
	y, m, d := day.Date()
	for _, a := range r.appointments {
		ay, am, ad := a.ScheduledAt.Date()
		if a.LabID == labID && ay == y && am == m && ad == d {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAppointmentRepo) UpdateStatus(_ context.Context, labID, id string, status models.AppointmentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.appointments[id]
	a.Status = status
	r.appointments[id] = a
	return nil
}

func (r *fakeAppointmentRepo) MaxAppointmentID(context.Context, string, string) (string, error) {
	return "", nil
}

const testLab = "lab-1"

// fixture wires the services over fakes, with Redis-backed counters and
// locks on miniredis.
type fixture struct {
	mr            *miniredis.Miniredis
	client        *redis.Client
	counters      *counter.Service
	locker        *database.Locker
	patients      *fakePatientRepo
	tests         *fakeTestRepo
	bookings      *fakeBookingRepo
	registrations *fakeRegistrationRepo
	reports       *fakeReportRepo
	labs          *fakeLabRepo

	patientService      *PatientService
	catalogue           *CatalogueService
	bookingService      *BookingService
	registrationService *RegistrationService
	reportService       *ReportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := zap.NewNop()
	f := &fixture{
		mr:            mr,
		client:        client,
		counters:      counter.NewService(counter.NewRedisStore(client), log),
		locker:        database.NewLocker(client, log).WithRetry(1, 0),
		patients:      newFakePatientRepo(),
		tests:         newFakeTestRepo(),
		bookings:      newFakeBookingRepo(),
		registrations: newFakeRegistrationRepo(),
		reports:       newFakeReportRepo(),
		labs:          newFakeLabRepo(),
	}
	f.labs.labs[testLab] = models.Lab{ID: testLab, Name: "City Diagnostics", Code: "CITY", Address: "1 Main St", Phone: "0201234567", IsActive: true}

	f.patientService = NewPatientService(f.patients, f.counters, f.locker, log)
	f.catalogue = NewCatalogueService(f.tests)
	f.bookingService = NewBookingService(BookingDeps{
		Bookings:      f.bookings,
		Patients:      f.patients,
		Catalogue:     f.catalogue,
		Registrations: f.registrations,
		Reports:       f.reports,
		Labs:          f.labs,
		Counters:      f.counters,
		Locker:        f.locker,
		Log:           log,
	})
	f.registrationService = NewRegistrationService(f.registrations, f.bookings, f.locker, log)
	f.reportService = NewReportService(f.reports, f.bookings, f.locker, log)
	return f
}

func (f *fixture) addPatient(t *testing.T) *models.Patient {
	t.Helper()
	p := &models.Patient{
		FirstName: "Asha",
		LastName:  "Rao",
		Age:       models.Age{Value: 35, Unit: models.AgeYears},
		Gender:    "Female",
		Phone:     "9876543210",
		Address:   models.Address{Line: "12 MG Road", City: "Pune", PostalCode: "411001"},
	}
	require.NoError(t, f.patientService.Register(context.Background(), testLab, p))
	return p
}

func (f *fixture) addTest(t *testing.T, name, category, price string) *models.TestDefinition {
	t.Helper()
	def := &models.TestDefinition{Name: name, Category: category, Price: decimal.RequireFromString(price)}
	require.NoError(t, f.catalogue.Create(context.Background(), testLab, def))
	return def
}

var (
	cashier = Actor{UserID: "7", Username: "cashier", Role: string(models.RoleAdmin), LabID: testLab}
	labHead = Actor{UserID: "2", Username: "head", Role: string(models.RoleLabAdmin), LabID: testLab}
	super   = Actor{UserID: "1", Username: "root", Role: string(models.RoleSuperAdmin)}
	clerk   = Actor{UserID: "9", Username: "clerk", Role: "Front Desk", LabID: testLab}
)
