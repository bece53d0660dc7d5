package integrity

import (
	"testing"
	"time"

	"caretrail/internal/visit/models"
	id "caretrail/pkg/domain"
	dErrors "caretrail/pkg/domain-errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(t *testing.T) *models.VisitRecord {
	t.Helper()
	lat, lng := 40.758, -73.9855
	start := time.Date(2025, time.March, 3, 14, 2, 0, 0, time.UTC)
	end := time.Date(2025, time.March, 3, 16, 10, 0, 0, time.UTC)
	return &models.VisitRecord{
		ID:          id.VisitID(uuid.MustParse("0d9a9e4e-3e63-4c1e-9a36-25d1b3f37d10")),
		OrgID:       id.OrgID(uuid.MustParse("5f0f1f84-9f54-4f6e-9f6f-0a1b2c3d4e5f")),
		BranchID:    id.BranchID(uuid.MustParse("6a1b2c3d-4e5f-4a6b-8c9d-0e1f2a3b4c5d")),
		ClientID:    id.ClientID(uuid.MustParse("7b2c3d4e-5f6a-4b7c-9d0e-1f2a3b4c5d6e")),
		CaregiverID: id.CaregiverID(uuid.MustParse("8c3d4e5f-6a7b-4c8d-a0e1-2f3a4b5c6d7e")),
		Schedule: models.Schedule{
			ServiceDate: time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC),
			StartTime:   "09:00",
			EndTime:     "11:00",
			Duration:    2 * time.Hour,
		},
		Address: models.Address{
			Street:               "350 W 42nd St",
			City:                 "New York",
			Region:               "NY",
			PostalCode:           "10036",
			Latitude:             &lat,
			Longitude:            &lng,
			GeofenceRadiusMeters: 100,
		},
		ActualStart:     &start,
		ActualEnd:       &end,
		ActualDuration:  128 * time.Minute,
		AddressVerified: true,
		Status:          id.StatusCheckedOut,
		Version:         1,
	}
}

func TestCompute_Deterministic(t *testing.T) {
	h := NewHasher("")
	record := testRecord(t)

	first, err := h.Compute(record, GenesisSeed)
	require.NoError(t, err)
	second, err := h.Compute(record, GenesisSeed)
	require.NoError(t, err)

	assert.Equal(t, first.Hash, second.Hash)
	assert.Equal(t, first.Canonical, second.Canonical)
	assert.Empty(t, first.Signature, "no signature without a secret")
	assert.Len(t, first.Hash, 64)
}

func TestCompute_PreviousHashChangesResult(t *testing.T) {
	h := NewHasher("")
	record := testRecord(t)

	fromGenesis, err := h.Compute(record, GenesisSeed)
	require.NoError(t, err)
	fromOther, err := h.Compute(record, fromGenesis.Hash)
	require.NoError(t, err)

	assert.NotEqual(t, fromGenesis.Hash, fromOther.Hash)
}

func TestCompute_RequiresPreviousHash(t *testing.T) {
	h := NewHasher("")
	_, err := h.Compute(testRecord(t), "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestVerify_RoundTrip(t *testing.T) {
	h := NewHasher("")
	record := testRecord(t)

	seal, err := h.Compute(record, GenesisSeed)
	require.NoError(t, err)
	record.IntegrityHash = seal.Hash
	record.PreviousHash = GenesisSeed

	assert.NoError(t, h.Verify(record))
}

func TestVerify_DetectsFieldTampering(t *testing.T) {
	h := NewHasher("")
	record := testRecord(t)

	seal, err := h.Compute(record, GenesisSeed)
	require.NoError(t, err)
	record.IntegrityHash = seal.Hash
	record.PreviousHash = GenesisSeed

	// Shave 20 minutes off the actual duration after sealing.
	record.ActualDuration = 108 * time.Minute

	err = h.Verify(record)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeIntegrityMismatch))
}

func TestVerify_DetectsMissingHash(t *testing.T) {
	h := NewHasher("")
	err := h.Verify(testRecord(t))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeIntegrityMismatch))
}

func TestKeyedSignature(t *testing.T) {
	record := testRecord(t)

	t.Run("computed alongside the hash", func(t *testing.T) {
		withSecret := NewHasher("org-shared-secret")
		withoutSecret := NewHasher("")

		signed, err := withSecret.Compute(record, GenesisSeed)
		require.NoError(t, err)
		unsigned, err := withoutSecret.Compute(record, GenesisSeed)
		require.NoError(t, err)

		assert.Equal(t, unsigned.Hash, signed.Hash, "hash must not depend on the secret")
		assert.NotEmpty(t, signed.Signature)
	})

	t.Run("verifies with the secret", func(t *testing.T) {
		h := NewHasher("org-shared-secret")
		seal, err := h.Compute(record, GenesisSeed)
		require.NoError(t, err)
		record.IntegrityHash = seal.Hash
		record.PreviousHash = GenesisSeed
		record.Signature = seal.Signature

		assert.NoError(t, h.Verify(record))
	})

	t.Run("hash-only verification works without the secret", func(t *testing.T) {
		signer := NewHasher("org-shared-secret")
		seal, err := signer.Compute(record, GenesisSeed)
		require.NoError(t, err)
		record.IntegrityHash = seal.Hash
		record.PreviousHash = GenesisSeed
		record.Signature = seal.Signature

		verifier := NewHasher("")
		assert.NoError(t, verifier.Verify(record))
	})

	t.Run("wrong secret is a mismatch", func(t *testing.T) {
		signer := NewHasher("org-shared-secret")
		seal, err := signer.Compute(record, GenesisSeed)
		require.NoError(t, err)
		record.IntegrityHash = seal.Hash
		record.PreviousHash = GenesisSeed
		record.Signature = seal.Signature

		other := NewHasher("a-different-secret")
		err = other.Verify(record)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeIntegrityMismatch))
	})
}

func TestVerifyChain(t *testing.T) {
	h := NewHasher("")

	v1 := testRecord(t)
	v1.Status = id.StatusCheckedIn
	v1.Version = 1
	seal1, err := h.Compute(v1, GenesisSeed)
	require.NoError(t, err)
	v1.PreviousHash = GenesisSeed
	v1.IntegrityHash = seal1.Hash

	v2 := v1.Clone()
	v2.Status = id.StatusCheckedOut
	v2.Version = 2
	seal2, err := h.Compute(v2, v1.IntegrityHash)
	require.NoError(t, err)
	v2.PreviousHash = v1.IntegrityHash
	v2.IntegrityHash = seal2.Hash

	t.Run("intact chain verifies", func(t *testing.T) {
		assert.NoError(t, h.VerifyChain([]*models.VisitRecord{v1, v2}))
	})

	t.Run("altering an old version breaks every later link", func(t *testing.T) {
		tampered := v1.Clone()
		tampered.AddressVerified = false
		seal, err := h.Compute(tampered, GenesisSeed)
		require.NoError(t, err)
		tampered.IntegrityHash = seal.Hash

		// v1's own hash recomputes, but v2 no longer chains from it.
		err = h.VerifyChain([]*models.VisitRecord{tampered, v2})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeIntegrityMismatch))
	})

	t.Run("broken link reported", func(t *testing.T) {
		orphan := v2.Clone()
		orphan.PreviousHash = GenesisSeed
		err := h.VerifyChain([]*models.VisitRecord{v1, orphan})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeIntegrityMismatch))
	})
}

func TestCanonicalize_StableAcrossZones(t *testing.T) {
	record := testRecord(t)
	canonical1, err := Canonicalize(record)
	require.NoError(t, err)

	// Same instant expressed in a different zone must canonicalize the same.
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	shifted := record.Clone()
	s := shifted.ActualStart.In(loc)
	e := shifted.ActualEnd.In(loc)
	shifted.ActualStart = &s
	shifted.ActualEnd = &e

	canonical2, err := Canonicalize(shifted)
	require.NoError(t, err)
	assert.Equal(t, canonical1, canonical2)
}
