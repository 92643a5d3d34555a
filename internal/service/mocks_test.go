package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/carevault/access-server-go/internal/database"
	"github.com/carevault/access-server-go/internal/model"
	"github.com/carevault/access-server-go/internal/repository"
)

// Mock repositories shared by the service tests.

type mockAccessTokenRepo struct {
	mock.Mock
}

func (m *mockAccessTokenRepo) Create(ctx context.Context, params model.CreateAccessTokenParams) (*model.AccessToken, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessToken), args.Error(1)
}

func (m *mockAccessTokenRepo) FindActiveByPatientID(ctx context.Context, patientID string) (*model.AccessToken, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessToken), args.Error(1)
}

func (m *mockAccessTokenRepo) FindActiveByToken(ctx context.Context, token string) (*model.AccessToken, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessToken), args.Error(1)
}

func (m *mockAccessTokenRepo) MarkExpired(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockAccessTokenRepo) ExpireAllForPatient(ctx context.Context, patientID string) (int64, error) {
	args := m.Called(ctx, patientID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockAccessTokenRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockAccessTokenRepo) WithTx(tx *sqlx.Tx) repository.AccessTokenRepository {
	return m
}

type mockDoctorSessionRepo struct {
	mock.Mock
}

func (m *mockDoctorSessionRepo) Create(ctx context.Context, params model.CreateDoctorSessionParams) (*model.DoctorSession, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DoctorSession), args.Error(1)
}

func (m *mockDoctorSessionRepo) FindByID(ctx context.Context, id string) (*model.DoctorSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DoctorSession), args.Error(1)
}

func (m *mockDoctorSessionRepo) CountActiveByDoctor(ctx context.Context, doctorID string, now time.Time) (int, error) {
	args := m.Called(ctx, doctorID, now)
	return args.Int(0), args.Error(1)
}

func (m *mockDoctorSessionRepo) LockDoctor(ctx context.Context, doctorID string) error {
	args := m.Called(ctx, doctorID)
	return args.Error(0)
}

func (m *mockDoctorSessionRepo) Deactivate(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockDoctorSessionRepo) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockDoctorSessionRepo) WithTx(tx *sqlx.Tx) repository.DoctorSessionRepository {
	return m
}

type mockAccessLogRepo struct {
	mock.Mock
}

func (m *mockAccessLogRepo) Append(ctx context.Context, params model.CreateAccessLogParams) (*model.AccessLog, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessLog), args.Error(1)
}

func (m *mockAccessLogRepo) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]model.AccessLog, error) {
	args := m.Called(ctx, patientID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AccessLog), args.Error(1)
}

func (m *mockAccessLogRepo) CountByPatient(ctx context.Context, patientID string) (int, error) {
	args := m.Called(ctx, patientID)
	return args.Int(0), args.Error(1)
}

// fakeTxRunner runs the transaction body directly; the mock repositories
// ignore the tx handle.
type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn database.TxFunc) error {
	return fn(nil)
}
