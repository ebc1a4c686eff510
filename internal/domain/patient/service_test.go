package patient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hospitall/hospitall/internal/platform/auth"
	"github.com/hospitall/hospitall/pkg/dates"
)

type mockRepo struct {
	items map[uuid.UUID]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.items[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *mockRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*Patient, error) {
	for _, p := range m.items {
		if p.UserID == userID {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.items[p.ID]; !ok {
		return ErrNotFound
	}
	m.items[p.ID] = p
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *mockRepo) Search(_ context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.items {
		if v, ok := params["active"]; ok && (v == "true") != p.IsActive {
			continue
		}
		result = append(result, p)
	}
	return result, len(result), nil
}

type mockUsers map[uuid.UUID]string

func (m mockUsers) UserRole(_ context.Context, id uuid.UUID) (string, error) {
	return m[id], nil
}

var testToday = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	svc         *Service
	repo        *mockRepo
	patientUser uuid.UUID
	doctorUser  uuid.UUID
}

func newTestEnv() *testEnv {
	env := &testEnv{repo: newMockRepo(), patientUser: uuid.New(), doctorUser: uuid.New()}
	users := mockUsers{env.patientUser: auth.RolePatient, env.doctorUser: auth.RoleDoctor}
	env.svc = NewService(env.repo, users)
	env.svc.now = func() time.Time { return testToday }
	return env
}

func mustDate(s string) dates.Date {
	d, err := dates.Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (env *testEnv) request() *CreateRequest {
	return &CreateRequest{
		UserID:           env.patientUser,
		BirthDate:        mustDate("1990-06-15"),
		Address:          "Rua das Flores, 123",
		EmergencyContact: "Maria 11999",
	}
}

func asRole(role string, userID uuid.UUID) context.Context {
	ctx := context.WithValue(context.Background(), auth.UserIDKey, userID.String())
	return context.WithValue(ctx, auth.UserRolesKey, []string{role})
}

func TestService_Create(t *testing.T) {
	env := newTestEnv()
	p, err := env.svc.Create(context.Background(), env.request())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == uuid.Nil || !p.IsActive {
		t.Errorf("unexpected patient %+v", p)
	}
	if p.Age != 33 {
		t.Errorf("expected age 33, got %d", p.Age)
	}
}

func TestService_Create_Rules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(env *testEnv, r *CreateRequest)
		want   error
	}{
		{"unknown user", func(_ *testEnv, r *CreateRequest) { r.UserID = uuid.New() }, ErrUserNotFound},
		{"doctor user", func(env *testEnv, r *CreateRequest) { r.UserID = env.doctorUser }, ErrUserNotPatient},
		{"birth today", func(_ *testEnv, r *CreateRequest) { r.BirthDate = dates.Of(testToday) }, ErrBirthDate},
		{"birth in future", func(_ *testEnv, r *CreateRequest) { r.BirthDate = mustDate("2030-01-01") }, ErrBirthDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			req := env.request()
			tt.mutate(env, req)
			if _, err := env.svc.Create(context.Background(), req); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestService_Create_OnePerUser(t *testing.T) {
	env := newTestEnv()
	if _, err := env.svc.Create(context.Background(), env.request()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := env.svc.Create(context.Background(), env.request()); !errors.Is(err, ErrUserAlreadyPatient) {
		t.Errorf("expected ErrUserAlreadyPatient, got %v", err)
	}
}

func TestService_Update_Ownership(t *testing.T) {
	env := newTestEnv()
	p, _ := env.svc.Create(context.Background(), env.request())
	addr := "Avenida Paulista, 1000"

	if _, err := env.svc.Update(asRole(auth.RolePatient, uuid.New()), p.ID, &UpdateRequest{Address: &addr}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	inactive := false
	got, err := env.svc.Update(asRole(auth.RolePatient, env.patientUser), p.ID, &UpdateRequest{Address: &addr, IsActive: &inactive})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Address != addr {
		t.Errorf("expected address %q, got %q", addr, got.Address)
	}
	if !got.IsActive {
		t.Error("patient must not be able to change is_active")
	}

	got, err = env.svc.Update(asRole(auth.RoleAdmin, uuid.New()), p.ID, &UpdateRequest{IsActive: &inactive})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.IsActive {
		t.Error("admin should deactivate the patient")
	}
}

func TestService_Update_BirthDate(t *testing.T) {
	env := newTestEnv()
	p, _ := env.svc.Create(context.Background(), env.request())
	future := mustDate("2030-01-01")
	if _, err := env.svc.Update(context.Background(), p.ID, &UpdateRequest{BirthDate: &future}); !errors.Is(err, ErrBirthDate) {
		t.Errorf("expected ErrBirthDate, got %v", err)
	}
}

func TestService_Update_NotFound(t *testing.T) {
	env := newTestEnv()
	if _, err := env.svc.Update(context.Background(), uuid.New(), &UpdateRequest{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_Directory(t *testing.T) {
	env := newTestEnv()
	p, _ := env.svc.Create(context.Background(), env.request())

	owner, err := env.svc.PatientUserID(context.Background(), p.ID)
	if err != nil || owner != env.patientUser {
		t.Errorf("expected owner %s, got %s (%v)", env.patientUser, owner, err)
	}
	id, err := env.svc.PatientIDForUser(context.Background(), env.patientUser)
	if err != nil || id != p.ID {
		t.Errorf("expected patient %s, got %s (%v)", p.ID, id, err)
	}
	if _, err := env.svc.PatientIDForUser(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPatient_AgeOn(t *testing.T) {
	p := &Patient{BirthDate: mustDate("2000-02-29")}
	if got := p.AgeOn(time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)); got != 23 {
		t.Errorf("expected 23, got %d", got)
	}
	if got := p.AgeOn(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)); got != 24 {
		t.Errorf("expected 24, got %d", got)
	}
	if got := (&Patient{}).AgeOn(testToday); got != 0 {
		t.Errorf("expected 0 without birth date, got %d", got)
	}
}
