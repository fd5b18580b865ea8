// Package linking orchestrates sign-in, identity linking, unlinking, and the
// account merges that linking can trigger.
package linking

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Verifier,TokenIssuer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"dojotrack/internal/identity"
	"dojotrack/internal/merge"
	"dojotrack/internal/pendinglink"
	"dojotrack/internal/platform/metrics"
	"dojotrack/internal/user"
	id "dojotrack/pkg/domain"
	dErrors "dojotrack/pkg/domain-errors"
	"dojotrack/pkg/email"
	"dojotrack/pkg/platform/audit"
	"dojotrack/pkg/requestcontext"
)

// Verifier routes a credential to the right provider verifier.
type Verifier interface {
	Verify(ctx context.Context, provider identity.Provider, cred Credential) (ProviderIdentity, error)
}

// TokenIssuer mints session tokens for signed-in users.
type TokenIssuer interface {
	GenerateSessionToken(userID id.UserID, expiresIn time.Duration) (string, error)
}

// LoginStatus tells the client how a sign-in attempt resolved.
type LoginStatus string

const (
	// LoginOK means a session was issued.
	LoginOK LoginStatus = "ok"
	// LoginLinkRequired means the identity's email already belongs to an
	// existing account; the client must sign in to that account and confirm
	// the link with the returned code.
	LoginLinkRequired LoginStatus = "link_required"
)

// LoginResult is the outcome of a sign-in attempt.
type LoginResult struct {
	Status          LoginStatus
	Token           string
	UserID          id.UserID
	PendingLinkCode string
	ReturnTo        string
}

// LinkOutcome tells the client what a link operation actually did.
type LinkOutcome string

const (
	// OutcomeLinked means the identity was newly attached.
	OutcomeLinked LinkOutcome = "linked"
	// OutcomeNoop means the identity was already attached to this account.
	OutcomeNoop LinkOutcome = "already_linked"
	// OutcomeMerged means the identity belonged to another account, which was
	// folded into this one.
	OutcomeMerged LinkOutcome = "merged"
)

// LinkResult is the outcome of a link or confirm operation.
type LinkResult struct {
	Outcome   LinkOutcome
	UserID    id.UserID
	Providers []identity.Provider
	ReturnTo  string
}

// LinkedAccount is one entry in the authenticated user's provider list.
type LinkedAccount struct {
	Provider       identity.Provider
	ProviderUserID string
	LinkedAt       time.Time
}

// Profile is the authenticated user's account summary.
type Profile struct {
	UserID      id.UserID
	Email       string
	DisplayName string
	ImageURL    string
	Role        user.Role
	Accounts    []LinkedAccount
}

// Service implements the sign-in and linking flows on top of the identity
// and user stores, the pending-link registry, and the merge engine.
type Service struct {
	verifier   Verifier
	identities identity.Store
	users      user.Store
	pending    *pendinglink.Registry
	merger     *merge.Engine
	tokens     TokenIssuer
	sessionTTL time.Duration
	adminEmail string
	auditor    *audit.Publisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Config struct {
	Verifier   Verifier
	Identities identity.Store
	Users      user.Store
	Pending    *pendinglink.Registry
	Merger     *merge.Engine
	Tokens     TokenIssuer
	SessionTTL time.Duration
	AdminEmail string
	Auditor    *audit.Publisher
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

func NewService(cfg Config) *Service {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	return &Service{
		verifier:   cfg.Verifier,
		identities: cfg.Identities,
		users:      cfg.Users,
		pending:    cfg.Pending,
		merger:     cfg.Merger,
		tokens:     cfg.Tokens,
		sessionTTL: cfg.SessionTTL,
		adminEmail: cfg.AdminEmail,
		auditor:    cfg.Auditor,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
}

// Login verifies the credential and signs the user in. Three cases:
//
//   - the identity is already linked: sign into its owner
//   - the identity is unknown and its email is free: provision a new account
//   - the identity is unknown but its email belongs to an existing account:
//     park the identity behind a pending-link code and ask the client to
//     confirm from an authenticated session
func (s *Service) Login(ctx context.Context, provider identity.Provider, cred Credential, returnTo string) (LoginResult, error) {
	pi, err := s.verifier.Verify(ctx, provider, cred)
	if err != nil {
		return LoginResult{}, err
	}

	owner, err := s.identities.FindOwner(ctx, pi.Provider, pi.ProviderUserID)
	switch {
	case err == nil:
		return s.issueSession(ctx, owner, returnTo)
	case errors.Is(err, identity.ErrNotFound):
		// fall through to provisioning
	default:
		return LoginResult{}, fmt.Errorf("find identity owner: %w", err)
	}

	if pi.Email != "" {
		existing, err := s.users.FindByEmail(ctx, pi.Email)
		switch {
		case err == nil:
			code, err := s.pending.Create(ctx, pi.Provider, pi.ProviderUserID, returnTo)
			if err != nil {
				return LoginResult{}, err
			}
			s.metrics.RecordPendingLinkCreated()
			s.auditor.Emit(ctx, audit.Event{
				Action:   audit.ActionPendingLinkCreated,
				UserID:   existing.ID.String(),
				Provider: string(pi.Provider),
				Email:    pi.Email,
			})
			s.logger.InfoContext(ctx, "login deferred to pending link",
				slog.String("provider", string(pi.Provider)),
				slog.String("existing_user_id", existing.ID.String()),
			)
			return LoginResult{Status: LoginLinkRequired, PendingLinkCode: code, ReturnTo: returnTo}, nil
		case errors.Is(err, user.ErrNotFound):
			// email is free, provision below
		default:
			return LoginResult{}, fmt.Errorf("find user by email: %w", err)
		}
	}

	userID, err := s.provision(ctx, pi)
	if err != nil {
		return LoginResult{}, err
	}
	return s.issueSession(ctx, userID, returnTo)
}

// provision creates a user for a first-time sign-in and attaches the
// verified identity.
func (s *Service) provision(ctx context.Context, pi ProviderIdentity) (id.UserID, error) {
	role := user.RoleUser
	if s.adminEmail != "" && strings.EqualFold(pi.Email, s.adminEmail) {
		role = user.RoleAdmin
	}

	displayName := pi.DisplayName
	if displayName == "" && pi.Email != "" {
		displayName = email.DeriveDisplayName(pi.Email)
	}

	newUser := user.User{
		ID:          id.NewUserID(),
		Email:       pi.Email,
		DisplayName: displayName,
		ImageURL:    pi.ImageURL,
		Role:        role,
	}
	if err := s.users.Create(ctx, newUser); err != nil {
		return id.UserID{}, fmt.Errorf("provision user: %w", err)
	}

	if err := s.identities.Attach(ctx, identity.Identity{
		ID:             id.NewIdentityID(),
		UserID:         newUser.ID,
		Provider:       pi.Provider,
		ProviderUserID: pi.ProviderUserID,
	}); err != nil {
		return id.UserID{}, fmt.Errorf("attach first identity: %w", err)
	}

	s.metrics.RecordUserCreated()
	s.metrics.RecordLink(string(pi.Provider))
	s.auditor.Emit(ctx, audit.Event{
		Action:   audit.ActionUserCreated,
		UserID:   newUser.ID.String(),
		Provider: string(pi.Provider),
		Email:    pi.Email,
	})
	s.logger.InfoContext(ctx, "user provisioned",
		slog.String("user_id", newUser.ID.String()),
		slog.String("provider", string(pi.Provider)),
	)
	return newUser.ID, nil
}

func (s *Service) issueSession(ctx context.Context, userID id.UserID, returnTo string) (LoginResult, error) {
	token, err := s.tokens.GenerateSessionToken(userID, s.sessionTTL)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue session token: %w", err)
	}
	s.auditor.Emit(ctx, audit.Event{Action: audit.ActionLogin, UserID: userID.String()})
	return LoginResult{Status: LoginOK, Token: token, UserID: userID, ReturnTo: returnTo}, nil
}

// Link attaches a freshly verified identity to the authenticated user. If the
// identity already belongs to another account, that account is merged into
// this one: the session the user is actually in survives.
func (s *Service) Link(ctx context.Context, provider identity.Provider, cred Credential) (LinkResult, error) {
	requester := requestcontext.UserID(ctx)
	if requester.IsNil() {
		return LinkResult{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	pi, err := s.verifier.Verify(ctx, provider, cred)
	if err != nil {
		return LinkResult{}, err
	}
	return s.attachVerified(ctx, requester, pi, "")
}

// ConfirmPendingLink redeems a pending-link code from an authenticated
// session and attaches the parked identity to that session's account. The
// provider must match the one the code was created for.
func (s *Service) ConfirmPendingLink(ctx context.Context, provider identity.Provider, code string) (LinkResult, error) {
	requester := requestcontext.UserID(ctx)
	if requester.IsNil() {
		return LinkResult{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	link, err := s.pending.Consume(ctx, code)
	if err != nil {
		switch {
		case dErrors.HasCode(err, dErrors.CodePendingLinkExpired):
			s.metrics.RecordPendingConsume("expired")
		default:
			s.metrics.RecordPendingConsume("not_found")
		}
		return LinkResult{}, err
	}
	if link.Provider != provider {
		return LinkResult{}, dErrors.New(dErrors.CodeBadRequest, "pending link was created for provider "+string(link.Provider))
	}
	s.metrics.RecordPendingConsume("ok")
	s.auditor.Emit(ctx, audit.Event{
		Action:   audit.ActionPendingLinkUsed,
		UserID:   requester.String(),
		Provider: string(link.Provider),
	})

	pi := ProviderIdentity{Provider: link.Provider, ProviderUserID: link.ProviderUserID}
	return s.attachVerified(ctx, requester, pi, link.ReturnTo)
}

// attachVerified is the shared tail of Link and ConfirmPendingLink: the
// identity has been proven, now bind it to the requester.
func (s *Service) attachVerified(ctx context.Context, requester id.UserID, pi ProviderIdentity, returnTo string) (LinkResult, error) {
	owner, err := s.identities.FindOwner(ctx, pi.Provider, pi.ProviderUserID)
	switch {
	case errors.Is(err, identity.ErrNotFound):
		attachErr := s.identities.Attach(ctx, identity.Identity{
			ID:             id.NewIdentityID(),
			UserID:         requester,
			Provider:       pi.Provider,
			ProviderUserID: pi.ProviderUserID,
		})
		if attachErr != nil {
			if errors.Is(attachErr, identity.ErrAlreadyLinkedElsewhere) {
				// Lost a race with a concurrent link. Re-resolve the owner
				// and fall into the merge path on retry.
				return LinkResult{}, dErrors.Wrap(attachErr, dErrors.CodeAlreadyLinked, "identity was linked concurrently, retry")
			}
			return LinkResult{}, fmt.Errorf("attach identity: %w", attachErr)
		}
		s.metrics.RecordLink(string(pi.Provider))
		s.auditor.Emit(ctx, audit.Event{
			Action:   audit.ActionIdentityLinked,
			UserID:   requester.String(),
			Provider: string(pi.Provider),
		})
		providers, err := s.identities.ListProviders(ctx, requester)
		if err != nil {
			return LinkResult{}, fmt.Errorf("list providers: %w", err)
		}
		return LinkResult{Outcome: OutcomeLinked, UserID: requester, Providers: providers, ReturnTo: returnTo}, nil

	case err != nil:
		return LinkResult{}, fmt.Errorf("find identity owner: %w", err)

	case owner == requester:
		providers, err := s.identities.ListProviders(ctx, requester)
		if err != nil {
			return LinkResult{}, fmt.Errorf("list providers: %w", err)
		}
		return LinkResult{Outcome: OutcomeNoop, UserID: requester, Providers: providers, ReturnTo: returnTo}, nil

	default:
		// The identity belongs to another account that the requester just
		// proved control of. Fold that account into the current one.
		merged, err := s.merger.Merge(ctx, owner, requester, pi.Email)
		if err != nil {
			return LinkResult{}, err
		}
		s.auditor.Emit(ctx, audit.Event{
			Action:   audit.ActionAccountsMerged,
			UserID:   requester.String(),
			Provider: string(pi.Provider),
			Detail:   "absorbed account " + owner.String(),
		})
		return LinkResult{Outcome: OutcomeMerged, UserID: merged.UserID, Providers: merged.Providers, ReturnTo: returnTo}, nil
	}
}

// Unlink detaches the authenticated user's identity for the provider. The
// last identity can never be detached.
func (s *Service) Unlink(ctx context.Context, provider identity.Provider) ([]identity.Provider, error) {
	requester := requestcontext.UserID(ctx)
	if requester.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	if err := s.identities.Detach(ctx, requester, provider); err != nil {
		switch {
		case errors.Is(err, identity.ErrLastIdentity):
			return nil, dErrors.Wrap(err, dErrors.CodeLastIdentity, "cannot unlink the only sign-in method")
		case errors.Is(err, identity.ErrNotFound):
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "no linked identity for provider "+string(provider))
		default:
			return nil, fmt.Errorf("detach identity: %w", err)
		}
	}

	s.metrics.RecordUnlink(string(provider))
	s.auditor.Emit(ctx, audit.Event{
		Action:   audit.ActionIdentityUnlinked,
		UserID:   requester.String(),
		Provider: string(provider),
	})

	providers, err := s.identities.ListProviders(ctx, requester)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	return providers, nil
}

// LinkedAccounts returns the authenticated user's profile and linked
// identities. The user record and identity list load concurrently.
func (s *Service) LinkedAccounts(ctx context.Context) (Profile, error) {
	requester := requestcontext.UserID(ctx)
	if requester.IsNil() {
		return Profile{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	var (
		u      user.User
		idents []identity.Identity
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		u, err = s.users.FindByID(gctx, requester)
		if errors.Is(err, user.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeNotFound, "user not found")
		}
		return err
	})
	g.Go(func() error {
		var err error
		idents, err = s.identities.ListByUser(gctx, requester)
		return err
	})
	if err := g.Wait(); err != nil {
		return Profile{}, err
	}

	accounts := make([]LinkedAccount, 0, len(idents))
	for _, ident := range idents {
		accounts = append(accounts, LinkedAccount{
			Provider:       ident.Provider,
			ProviderUserID: ident.ProviderUserID,
			LinkedAt:       ident.CreatedAt,
		})
	}
	return Profile{
		UserID:      u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		ImageURL:    u.ImageURL,
		Role:        u.Role,
		Accounts:    accounts,
	}, nil
}
