// Package merge folds one user account into another when a provider identity
// proves both belong to the same person.
package merge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"dojotrack/internal/identity"
	"dojotrack/internal/platform/metrics"
	"dojotrack/internal/user"
	id "dojotrack/pkg/domain"
	dErrors "dojotrack/pkg/domain-errors"
)

// TxRunner executes fn inside a single transaction. Stores read the
// transaction from the context, so everything fn does through them commits or
// rolls back together.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// MergedUser is the surviving account after a merge.
type MergedUser struct {
	UserID      id.UserID
	Email       string
	DisplayName string
	ImageURL    string
	Role        user.Role
	Providers   []identity.Provider
}

// Engine performs account merges. The target account survives; the source
// account's identities move over and its rows are deleted.
type Engine struct {
	tx         TxRunner
	identities identity.Store
	users      user.Store
	adminEmail string
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

func NewEngine(tx TxRunner, identities identity.Store, users user.Store, adminEmail string, logger *slog.Logger, m *metrics.Metrics) *Engine {
	return &Engine{
		tx:         tx,
		identities: identities,
		users:      users,
		adminEmail: adminEmail,
		logger:     logger,
		metrics:    m,
		tracer:     otel.Tracer("dojotrack/merge"),
	}
}

// Merge folds source into target atomically:
//
//   - every identity of source moves to target (duplicate pairs resolve in
//     target's favor)
//   - target's role becomes the union of both roles
//   - target's empty profile fields are filled from source
//   - source's settings, role, and user rows are deleted
//
// incomingEmail is the email asserted by the identity that triggered the
// merge; it joins both account emails in the admin override check. Empty when
// the trigger carried no email.
//
// If source no longer exists the merge already happened; Merge returns the
// target's current state without error. Any failure inside the transaction
// rolls everything back and surfaces as MergeFailed.
func (e *Engine) Merge(ctx context.Context, sourceID, targetID id.UserID, incomingEmail string) (MergedUser, error) {
	ctx, span := e.tracer.Start(ctx, "merge.accounts", trace.WithAttributes(
		attribute.String("merge.source_id", sourceID.String()),
		attribute.String("merge.target_id", targetID.String()),
	))
	defer span.End()

	if sourceID == targetID {
		return MergedUser{}, dErrors.New(dErrors.CodeMergeFailed, "cannot merge an account into itself")
	}

	var result MergedUser
	err := e.tx.RunInTx(ctx, func(ctx context.Context) error {
		target, err := e.users.FindByID(ctx, targetID)
		if err != nil {
			return fmt.Errorf("load target user: %w", err)
		}

		source, err := e.users.FindByID(ctx, sourceID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				// A previous merge already consumed the source. Report the
				// target as-is so retries converge on the same answer.
				result, err = e.mergedState(ctx, target)
				return err
			}
			return fmt.Errorf("load source user: %w", err)
		}

		moved, err := e.identities.ReassignAll(ctx, sourceID, targetID)
		if err != nil {
			return fmt.Errorf("reassign identities: %w", err)
		}

		role := target.Role.Union(source.Role)
		if e.matchesAdminEmail(target.Email, source.Email, incomingEmail) {
			role = user.RoleAdmin
		}
		if role != target.Role {
			if err := e.users.SetRole(ctx, targetID, role); err != nil {
				return fmt.Errorf("set merged role: %w", err)
			}
			target.Role = role
		}

		displayName, imageURL := target.DisplayName, target.ImageURL
		if displayName == "" {
			displayName = source.DisplayName
		}
		if imageURL == "" {
			imageURL = source.ImageURL
		}
		if displayName != target.DisplayName || imageURL != target.ImageURL {
			if err := e.users.UpdateProfile(ctx, targetID, displayName, imageURL); err != nil {
				return fmt.Errorf("fill merged profile: %w", err)
			}
			target.DisplayName, target.ImageURL = displayName, imageURL
		}

		if err := e.users.Delete(ctx, sourceID); err != nil {
			return fmt.Errorf("delete source user: %w", err)
		}

		e.logger.InfoContext(ctx, "accounts merged",
			slog.String("source_id", sourceID.String()),
			slog.String("target_id", targetID.String()),
			slog.Int("identities_moved", moved),
		)

		result, err = e.mergedState(ctx, target)
		return err
	})
	if err != nil {
		e.metrics.RecordMergeFailure()
		if dErrors.HasCode(err, dErrors.CodeMergeFailed) {
			return MergedUser{}, err
		}
		return MergedUser{}, dErrors.Wrap(err, dErrors.CodeMergeFailed, "account merge failed")
	}

	e.metrics.RecordMerge()
	return result, nil
}

// matchesAdminEmail reports whether any of the given emails is the configured
// admin email. Either account's email counts, not just the surviving one.
func (e *Engine) matchesAdminEmail(emails ...string) bool {
	if e.adminEmail == "" {
		return false
	}
	for _, email := range emails {
		if email != "" && strings.EqualFold(email, e.adminEmail) {
			return true
		}
	}
	return false
}

func (e *Engine) mergedState(ctx context.Context, target user.User) (MergedUser, error) {
	providers, err := e.identities.ListProviders(ctx, target.ID)
	if err != nil {
		return MergedUser{}, fmt.Errorf("list merged providers: %w", err)
	}
	return MergedUser{
		UserID:      target.ID,
		Email:       target.Email,
		DisplayName: target.DisplayName,
		ImageURL:    target.ImageURL,
		Role:        target.Role,
		Providers:   providers,
	}, nil
}
