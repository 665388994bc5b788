package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lifeboard/internal/domain"
	"lifeboard/internal/domain/model"
	"lifeboard/internal/domain/ports/adapter"
	"lifeboard/internal/domain/ports/repository"
	"lifeboard/internal/infra/logging"
	"lifeboard/internal/infra/metrics"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// EventManualOverride is recorded as last_event_type for admin changes.
const EventManualOverride = "MANUAL_OVERRIDE"

// Compile-time check
var _ LicenseUseCase = (*licenseUC)(nil)

// LicenseUseCase applies provider events to licenses and answers license queries.
type LicenseUseCase interface {
	// ApplyEvent normalizes and decides an already authenticated payload, then
	// persists the result. Errors: domain.ErrMissingEmail, domain.ErrOperationFailed (wrapped).
	ApplyEvent(ctx context.Context, payload map[string]any) (*model.ActivationOutcome, error)
	// IsActive reports whether email currently holds an active license. A missing row is not an error.
	IsActive(ctx context.Context, email string) (bool, error)
	Get(ctx context.Context, email string) (*model.License, error)
	// SetStatus is the manual override used by the admin API and the seed tool.
	SetStatus(ctx context.Context, email string, status model.LicenseStatus) (*model.License, error)
}

type licenseUC struct {
	licenses   repository.LicenseRepository
	tm         repository.TransactionManager
	identity   adapter.IdentityProvisioner
	normalizer *Normalizer
	log        *zerolog.Logger
	dev        bool
}

func NewLicenseUseCase(
	licenses repository.LicenseRepository,
	tm repository.TransactionManager,
	identity adapter.IdentityProvisioner,
	normalizer *Normalizer,
	logger *zerolog.Logger,
	dev bool,
) *licenseUC {
	if normalizer == nil {
		normalizer = NewNormalizer(NormalizerConfig{})
	}
	return &licenseUC{
		licenses:   licenses,
		tm:         tm,
		identity:   identity,
		normalizer: normalizer,
		log:        logger,
		dev:        dev,
	}
}

func (u *licenseUC) ApplyEvent(ctx context.Context, payload map[string]any) (*model.ActivationOutcome, error) {
	defer logging.TraceDuration(u.log, "LicenseUC.ApplyEvent")()

	ev, err := u.normalizer.Normalize(payload)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithEmail(ctx, logging.Redact(ev.Email, u.dev))
	l := logging.With(ctx, u.log)

	out := Evaluate(ev)
	lic, err := model.NewLicenseFromOutcome(ev, out)
	if err != nil {
		return nil, err
	}

	applied, err := u.licenses.Upsert(ctx, repository.NoTX, lic)
	if err != nil {
		l.Error().Err(err).Msg("license upsert failed")
		return nil, fmt.Errorf("%w: upsert license: %v", domain.ErrOperationFailed, err)
	}
	out.Applied = applied
	metrics.IncLicenseDecision(out.Label(), applied)

	if !applied {
		l.Warn().
			Str("status", ev.Status).
			Str("event", ev.EventType).
			Time("occurred_at", derefTime(ev.OccurredAt)).
			Msg("stale license event ignored")
		return &out, nil
	}

	if out.Activate {
		out.Provisioning = u.ensureAccount(ctx, ev.Email)
	}

	l.Info().
		Str("status", ev.Status).
		Str("event", ev.EventType).
		Str("decision", out.Label()).
		Str("provisioning", string(out.Provisioning)).
		Msg("license event applied")
	return &out, nil
}

func (u *licenseUC) IsActive(ctx context.Context, email string) (bool, error) {
	defer logging.TraceDuration(u.log, "LicenseUC.IsActive")()

	lic, err := u.licenses.FindByEmail(ctx, repository.NoTX, model.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return lic.IsActive(), nil
}

func (u *licenseUC) Get(ctx context.Context, email string) (*model.License, error) {
	defer logging.TraceDuration(u.log, "LicenseUC.Get")()
	return u.licenses.FindByEmail(ctx, repository.NoTX, model.NormalizeEmail(email))
}

func (u *licenseUC) SetStatus(ctx context.Context, email string, status model.LicenseStatus) (*model.License, error) {
	defer logging.TraceDuration(u.log, "LicenseUC.SetStatus")()

	email = model.NormalizeEmail(email)
	if email == "" {
		return nil, domain.ErrMissingEmail
	}
	if status != model.LicenseStatusActive && status != model.LicenseStatusInactive {
		return nil, domain.ErrInvalidArgument
	}

	var result *model.License
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		prev, err := u.licenses.FindByEmail(ctx, tx, email)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		now := time.Now().UTC()
		evType := EventManualOverride
		next := &model.License{
			Email:         email,
			Status:        status,
			LastEventType: &evType,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if prev != nil {
			next.ExternalPurchaseID = prev.ExternalPurchaseID
			next.LastEventStatus = prev.LastEventStatus
			next.CreatedAt = prev.CreatedAt
			u.log.Info().
				Str("email", logging.Redact(email, u.dev)).
				Str("from", string(prev.Status)).
				Str("to", string(status)).
				Msg("manual license override")
		}
		// No event time: a manual override always applies.
		if _, err := u.licenses.Upsert(ctx, tx, next); err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: set license status: %v", domain.ErrOperationFailed, err)
	}

	if status == model.LicenseStatusActive {
		u.ensureAccount(ctx, email)
	}
	return result, nil
}

// ensureAccount is best effort: failures are logged and counted, never returned.
func (u *licenseUC) ensureAccount(ctx context.Context, email string) model.ProvisionResult {
	if u.identity == nil {
		return model.ProvisionSkipped
	}
	res, err := u.identity.EnsureUser(ctx, email)
	if err != nil {
		logging.With(ctx, u.log).Warn().
			Err(err).
			Str("provider", u.identity.Name()).
			Msg("identity account provisioning failed")
		metrics.IncLicenseProvisioning(string(model.ProvisionFailed))
		return model.ProvisionFailed
	}
	metrics.IncLicenseProvisioning(string(res))
	return res
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
