//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"attest/internal/certification/models"
	"attest/internal/certification/store"
	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
	"attest/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "certifications"))
}

func (s *PostgresStoreSuite) newCertification() *models.Certification {
	cert := models.NewCertification("quarterly review", models.CertTypeManager, time.Now().UTC())
	entity := models.NewEntity()
	entity.Identity = "jsmith"
	cert.AddEntity(entity)

	it := models.NewItem(entity.ID, models.ItemTypeException)
	it.Application = "HR System"
	it.NativeIdentity = "acct1"
	s.Require().NoError(cert.AddItem(it))
	return cert
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	cert := s.newCertification()
	cert.Phase = models.PhaseActive
	cert.ProcessRevokesImmediately = true

	s.Require().NoError(s.store.Save(ctx, cert))

	loaded, err := s.store.FindByID(ctx, cert.ID)
	s.Require().NoError(err)
	s.Equal(cert.ID, loaded.ID)
	s.Equal(models.PhaseActive, loaded.Phase)
	s.True(loaded.ProcessRevokesImmediately)
	s.Require().Len(loaded.Items, 1)
	for _, it := range loaded.Items {
		s.True(it.Persisted)
		s.Equal("HR System", it.Application)
	}
}

func (s *PostgresStoreSuite) TestUpsertReplacesPayload() {
	ctx := context.Background()
	cert := s.newCertification()
	s.Require().NoError(s.store.Save(ctx, cert))

	cert.Phase = models.PhaseChallenge
	s.Require().NoError(s.store.Save(ctx, cert))

	loaded, err := s.store.FindByID(ctx, cert.ID)
	s.Require().NoError(err)
	s.Equal(models.PhaseChallenge, loaded.Phase)
}

func (s *PostgresStoreSuite) TestNotFound() {
	_, err := s.store.FindByID(context.Background(), id.NewCertificationID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestChildrenProjection() {
	ctx := context.Background()
	parent := s.newCertification()
	s.Require().NoError(s.store.Save(ctx, parent))

	unsigned := s.newCertification()
	unsigned.Parent = parent.ID
	unsigned.BulkReassignment = true
	s.Require().NoError(s.store.Save(ctx, unsigned))

	signed := s.newCertification()
	signed.Parent = parent.ID
	signed.Signed = time.Now().UTC()
	s.Require().NoError(s.store.Save(ctx, signed))

	children, err := s.store.Children(ctx, parent.ID)
	s.Require().NoError(err)
	s.Require().Len(children, 2)

	byID := map[id.CertificationID]store.ChildRecord{}
	for _, c := range children {
		byID[c.ID] = c
	}
	s.True(byID[unsigned.ID].Signed.IsZero())
	s.False(byID[signed.ID].Signed.IsZero())
}
