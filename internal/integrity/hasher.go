// Package integrity produces and verifies the tamper-evident hash chain
// over visit records.
//
// Every committed version n gets a hash that is a pure function of the
// canonical serialization of that version's hashable fields and the hash of
// version n-1 (a fixed seed for n=1). Altering any past version therefore
// invalidates every hash after it. Canonicalization follows RFC 8785 (JCS)
// so an external auditor can recompute each hash from the exported
// serialization with no knowledge of this codebase.
//
// When a shared secret is configured, a keyed HMAC-SHA256 signature is
// computed in addition to (never instead of) the hash, so deployments
// without the secret still get tamper detection while deployments with it
// get non-repudiation.
package integrity

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"caretrail/internal/visit/models"
	dErrors "caretrail/pkg/domain-errors"

	"github.com/gowebpki/jcs"
)

// GenesisSeed anchors every chain: version 1 of a visit hashes against it.
// SHA-256 of the literal "caretrail/evv-chain:genesis".
var GenesisSeed = func() string {
	sum := sha256.Sum256([]byte("caretrail/evv-chain:genesis"))
	return hex.EncodeToString(sum[:])
}()

// Seal is the result of hashing one record version.
type Seal struct {
	Hash      string
	Signature string // empty when no secret is configured
	Canonical []byte // the exact bytes hashed, minus the previous-hash suffix
}

// Hasher computes and verifies chain links.
type Hasher struct {
	secret []byte
}

// NewHasher builds a Hasher. An empty secret disables keyed signatures;
// hashing works either way.
func NewHasher(secret string) *Hasher {
	var key []byte
	if secret != "" {
		key = []byte(secret)
	}
	return &Hasher{secret: key}
}

// canonicalRecord fixes the hashable field set and its order. Field names
// are part of the audit-export contract; changing any of them breaks
// recomputability of existing chains.
type canonicalRecord struct {
	VisitID     string `json:"visitId"`
	OrgID       string `json:"orgId"`
	BranchID    string `json:"branchId"`
	ClientID    string `json:"clientId"`
	CaregiverID string `json:"caregiverId,omitempty"`

	ServiceDate      string `json:"serviceDate"`
	ScheduledStart   string `json:"scheduledStart"`
	ScheduledEnd     string `json:"scheduledEnd"`
	ScheduledMinutes int64  `json:"scheduledMinutes"`

	Street       string   `json:"street"`
	City         string   `json:"city"`
	Region       string   `json:"region"`
	PostalCode   string   `json:"postalCode"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	RadiusMeters float64  `json:"radiusMeters"`

	ActualStart     string `json:"actualStart,omitempty"`
	ActualEnd       string `json:"actualEnd,omitempty"`
	ActualMinutes   int64  `json:"actualMinutes"`
	AddressVerified bool   `json:"addressVerified"`

	Status    string             `json:"status"`
	Anomalies []canonicalAnomaly `json:"anomalies"`

	ResolutionNote string `json:"resolutionNote,omitempty"`
	ResolvedBy     string `json:"resolvedBy,omitempty"`
	Overridden     bool   `json:"overridden"`

	Version int64 `json:"version"`
}

type canonicalAnomaly struct {
	Code       string `json:"code"`
	Detail     string `json:"detail"`
	RecordedAt string `json:"recordedAt"`
	Resolved   bool   `json:"resolved"`
	Note       string `json:"note,omitempty"`
}

// Canonicalize renders the hashable field set as RFC 8785 canonical JSON.
// Timestamps are normalized to UTC RFC 3339 so the representation never
// depends on the serving host's zone database.
func Canonicalize(record *models.VisitRecord) ([]byte, error) {
	if record == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "record is required")
	}

	cr := canonicalRecord{
		VisitID:          record.ID.String(),
		OrgID:            record.OrgID.String(),
		BranchID:         record.BranchID.String(),
		ClientID:         record.ClientID.String(),
		ServiceDate:      record.Schedule.ServiceDate.UTC().Format("2006-01-02"),
		ScheduledStart:   record.Schedule.StartTime,
		ScheduledEnd:     record.Schedule.EndTime,
		ScheduledMinutes: int64(record.Schedule.Duration.Minutes()),
		Street:           record.Address.Street,
		City:             record.Address.City,
		Region:           record.Address.Region,
		PostalCode:       record.Address.PostalCode,
		Latitude:         record.Address.Latitude,
		Longitude:        record.Address.Longitude,
		RadiusMeters:     record.Address.GeofenceRadiusMeters,
		ActualMinutes:    int64(record.ActualDuration.Minutes()),
		AddressVerified:  record.AddressVerified,
		Status:           record.Status.String(),
		Anomalies:        make([]canonicalAnomaly, 0, len(record.Anomalies)),
		ResolutionNote:   record.ResolutionNote,
		Overridden:       record.Overridden,
		Version:          record.Version,
	}
	if !record.CaregiverID.IsNil() {
		cr.CaregiverID = record.CaregiverID.String()
	}
	if record.ActualStart != nil {
		cr.ActualStart = record.ActualStart.UTC().Format(time.RFC3339)
	}
	if record.ActualEnd != nil {
		cr.ActualEnd = record.ActualEnd.UTC().Format(time.RFC3339)
	}
	if !record.ResolvedBy.IsNil() {
		cr.ResolvedBy = record.ResolvedBy.String()
	}
	for _, a := range record.Anomalies {
		cr.Anomalies = append(cr.Anomalies, canonicalAnomaly{
			Code:       a.Code.String(),
			Detail:     a.Detail,
			RecordedAt: a.RecordedAt.UTC().Format(time.RFC3339),
			Resolved:   a.Resolved,
			Note:       a.ResolutionNote,
		})
	}

	raw, err := json.Marshal(cr)
	if err != nil {
		return nil, fmt.Errorf("marshal canonical record: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize record: %w", err)
	}
	return canonical, nil
}

// Compute derives the chain hash for a record version:
// SHA-256(canonical(record) ‖ previousHash). previousHash must be the hex
// hash of the prior version, or GenesisSeed for version 1.
func (h *Hasher) Compute(record *models.VisitRecord, previousHash string) (Seal, error) {
	if previousHash == "" {
		return Seal{}, dErrors.New(dErrors.CodeBadRequest, "previous hash is required (use GenesisSeed for version 1)")
	}

	canonical, err := Canonicalize(record)
	if err != nil {
		return Seal{}, err
	}

	sum := sha256.New()
	sum.Write(canonical)
	sum.Write([]byte(previousHash))
	hash := hex.EncodeToString(sum.Sum(nil))

	seal := Seal{Hash: hash, Canonical: canonical}
	if len(h.secret) > 0 {
		seal.Signature = h.sign(hash)
	}
	return seal, nil
}

// Verify recomputes the record's hash from its own fields and previous-hash
// link and compares against the stored value. A mismatch indicates a bug or
// tampering; callers must treat it as fatal and never repair it.
func (h *Hasher) Verify(record *models.VisitRecord) error {
	if record.IntegrityHash == "" {
		return dErrors.New(dErrors.CodeIntegrityMismatch,
			"visit %s version %d has no integrity hash", record.ID, record.Version)
	}
	seal, err := h.Compute(record, record.PreviousHash)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(seal.Hash), []byte(record.IntegrityHash)) != 1 {
		return dErrors.New(dErrors.CodeIntegrityMismatch,
			"visit %s version %d: stored hash %s does not match recomputed %s",
			record.ID, record.Version, record.IntegrityHash, seal.Hash)
	}
	if len(h.secret) > 0 && record.Signature != "" {
		if subtle.ConstantTimeCompare([]byte(h.sign(record.IntegrityHash)), []byte(record.Signature)) != 1 {
			return dErrors.New(dErrors.CodeIntegrityMismatch,
				"visit %s version %d: keyed signature does not verify", record.ID, record.Version)
		}
	}
	return nil
}

// VerifyChain walks a visit's history oldest-first and confirms every link:
// each version's previous-hash must equal the prior version's hash, and
// each stored hash must recompute.
func (h *Hasher) VerifyChain(versions []*models.VisitRecord) error {
	expectedPrevious := GenesisSeed
	for _, version := range versions {
		if version.PreviousHash != expectedPrevious {
			return dErrors.New(dErrors.CodeIntegrityMismatch,
				"visit %s version %d: chain link broken (previous hash %s, expected %s)",
				version.ID, version.Version, version.PreviousHash, expectedPrevious)
		}
		if err := h.Verify(version); err != nil {
			return err
		}
		expectedPrevious = version.IntegrityHash
	}
	return nil
}

func (h *Hasher) sign(hash string) string {
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(hash))
	return hex.EncodeToString(mac.Sum(nil))
}
